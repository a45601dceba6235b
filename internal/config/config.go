package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Processor kinds accepted by EVENTS_PROCESSOR
const (
	ProcessorBatch      = "batch"
	ProcessorForwarding = "forwarding"
)

// Dispatcher kinds accepted by EVENTS_DISPATCHER
const (
	DispatcherHTTP       = "http"
	DispatcherSQS        = "sqs"
	DispatcherClickHouse = "clickhouse"
)

type Config struct {
	Service    Service
	Datafile   Datafile
	Events     Events
	SQS        SQS
	ClickHouse ClickHouse
	CMAB       CMAB
}

type Service struct {
	Environment string `env:"SERVICE_ENVIRONMENT" envDefault:"development"`
	APIPort     string `env:"SERVICE_API_PORT" envDefault:"8080"`
}

type Datafile struct {
	Path string `env:"DATAFILE_PATH,required,notEmpty"`
}

// Events configures the batch processor and the dispatcher it flushes to.
// Zero or negative sizes and durations fall back to the processor defaults.
// An empty Endpoint keeps the collection endpoint carried by each payload.
type Events struct {
	BatchSize       int           `env:"EVENTS_BATCH_SIZE" envDefault:"10"`
	FlushInterval   time.Duration `env:"EVENTS_FLUSH_INTERVAL" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"EVENTS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	QueueCapacity   int           `env:"EVENTS_QUEUE_CAPACITY" envDefault:"1000"`
	Processor       string        `env:"EVENTS_PROCESSOR" envDefault:"batch"`
	Dispatcher      string        `env:"EVENTS_DISPATCHER" envDefault:"http"`
	Endpoint        string        `env:"EVENTS_ENDPOINT"`
	MaxRetries      int           `env:"EVENTS_MAX_RETRIES" envDefault:"3"`
	HTTPTimeout     time.Duration `env:"EVENTS_HTTP_TIMEOUT" envDefault:"10s"`
}

type SQS struct {
	Endpoint string `env:"SQS_ENDPOINT"`
	QueueURL string `env:"SQS_QUEUE_URL"`
	Region   string `env:"SQS_REGION" envDefault:"us-east-1"`
}

type ClickHouse struct {
	Host            string `env:"CLICKHOUSE_HOST" envDefault:"localhost"`
	Port            string `env:"CLICKHOUSE_PORT" envDefault:"9000"`
	Database        string `env:"CLICKHOUSE_DB" envDefault:"default"`
	User            string `env:"CLICKHOUSE_USER"`
	Password        string `env:"CLICKHOUSE_PASSWORD"`
	UseTLS          bool   `env:"CLICKHOUSE_USE_TLS" envDefault:"false"`
	MaxOpenConns    int    `env:"CLICKHOUSE_MAX_OPEN_CONNS" envDefault:"5"`
	MaxIdleConns    int    `env:"CLICKHOUSE_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime int    `env:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" envDefault:"3600"`
}

type CMAB struct {
	CacheSize          int           `env:"CMAB_CACHE_SIZE" envDefault:"10000"`
	CacheTTL           time.Duration `env:"CMAB_CACHE_TTL" envDefault:"30m"`
	PredictionEndpoint string        `env:"CMAB_PREDICTION_ENDPOINT" envDefault:"https://prediction.cmab.optimizely.com/predict/%s"`
	MaxRetries         int           `env:"CMAB_MAX_RETRIES" envDefault:"1"`
	Timeout            time.Duration `env:"CMAB_TIMEOUT" envDefault:"10s"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	// The .env file is optional
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Events.Processor != ProcessorBatch && c.Events.Processor != ProcessorForwarding {
		return fmt.Errorf("unsupported EVENTS_PROCESSOR value: %s (supported: batch, forwarding)", c.Events.Processor)
	}

	switch c.Events.Dispatcher {
	case DispatcherHTTP:
	case DispatcherSQS:
		if c.SQS.QueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when EVENTS_DISPATCHER is %q", DispatcherSQS)
		}
	case DispatcherClickHouse:
	default:
		return fmt.Errorf("unsupported EVENTS_DISPATCHER value: %s (supported: http, sqs, clickhouse)", c.Events.Dispatcher)
	}
	return nil
}
