package processor

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 30 * time.Second
	DefaultTimeout       = 5 * time.Second
	DefaultQueueCapacity = 1000
)

// Config configures the batch processor. Zero or negative values fall back
// to the defaults.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	Timeout       time.Duration
	QueueCapacity int
}

// withDefaults resolves every missing or invalid value once, at construction
func (c Config) withDefaults(log *zap.Logger) Config {
	if c.BatchSize <= 0 {
		log.Info("Using default value for batch_size",
			zap.Int("invalid", c.BatchSize),
			zap.Int("default", DefaultBatchSize))
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		log.Info("Using default value for flush_interval",
			zap.Duration("invalid", c.FlushInterval),
			zap.Duration("default", DefaultFlushInterval))
		c.FlushInterval = DefaultFlushInterval
	}
	if c.Timeout <= 0 {
		log.Info("Using default value for timeout_interval",
			zap.Duration("invalid", c.Timeout),
			zap.Duration("default", DefaultTimeout))
		c.Timeout = DefaultTimeout
	}
	if c.QueueCapacity <= 0 {
		log.Info("Using default value for queue_capacity",
			zap.Int("invalid", c.QueueCapacity),
			zap.Int("default", DefaultQueueCapacity))
		c.QueueCapacity = DefaultQueueCapacity
	}
	return c
}
