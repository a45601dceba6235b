package processor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
	"github.com/BarkinBalci/feature-flag-events/internal/event"
	"github.com/BarkinBalci/feature-flag-events/internal/notification"
)

// BatchProcessor queues user events and dispatches them from a single
// background goroutine in batches, flushing on batch size, on the flush
// interval, on request and on shutdown.
type BatchProcessor struct {
	builder    PayloadBuilder
	dispatcher Dispatcher
	notifier   Notifier
	config     Config
	queue      *eventQueue
	log        *zap.Logger

	// mu guards currentBatch
	mu           sync.Mutex
	currentBatch []domain.UserEvent

	lifecycle sync.Mutex
	running   atomic.Bool
	done      chan struct{}
}

// NewBatchProcessor creates a new batch processor. notifier may be nil.
func NewBatchProcessor(builder PayloadBuilder, dispatcher Dispatcher, notifier Notifier, config Config, log *zap.Logger) *BatchProcessor {
	config = config.withDefaults(log)

	return &BatchProcessor{
		builder:    builder,
		dispatcher: dispatcher,
		notifier:   notifier,
		config:     config,
		queue:      newEventQueue(config.QueueCapacity),
		log:        log,
	}
}

// Start launches the consumer goroutine. Calling it while running is a no-op.
func (p *BatchProcessor) Start() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.running.Load() {
		p.log.Warn("Batch event processor already started")
		return
	}

	deadline := time.Now().Add(p.config.FlushInterval)
	done := make(chan struct{})
	p.done = done
	p.running.Store(true)

	p.log.Info("Starting batch event processor",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("flush_interval", p.config.FlushInterval),
		zap.Int("queue_capacity", p.config.QueueCapacity))

	go p.run(deadline, done)
}

// IsRunning reports whether the consumer goroutine is alive
func (p *BatchProcessor) IsRunning() bool {
	return p.running.Load()
}

// Process enqueues an event without blocking. The event is dropped when the
// queue is full.
func (p *BatchProcessor) Process(ev domain.UserEvent) {
	if !isValidEvent(ev) {
		p.log.Error("Provided event is in an invalid format")
		return
	}

	p.log.Debug("Received event",
		zap.String("type", fmt.Sprintf("%T", ev)),
		zap.String("user_id", ev.User()))

	if !p.queue.offer(item{kind: itemEvent, event: ev}) {
		p.log.Warn("Payload not accepted by the queue",
			zap.Int("queue_size", p.queue.len()))
	}
}

// Flush asks the consumer to flush everything queued before this call
func (p *BatchProcessor) Flush() {
	if !p.queue.offer(item{kind: itemFlush}) {
		p.log.Warn("Flush signal not accepted by the queue",
			zap.Int("queue_size", p.queue.len()))
	}
}

// Stop signals shutdown and waits up to the configured timeout for pending
// events to be flushed. A consumer that does not finish in time is left
// running.
func (p *BatchProcessor) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if !p.running.Load() {
		return
	}

	if !p.queue.put(item{kind: itemShutdown}, p.config.Timeout) {
		p.log.Error("Timeout exceeded while sending shutdown signal",
			zap.Duration("timeout", p.config.Timeout))
		return
	}

	timer := time.NewTimer(p.config.Timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		p.log.Info("Batch event processor stopped")
	case <-timer.C:
		p.log.Error("Timeout exceeded while attempting to close",
			zap.Duration("timeout", p.config.Timeout))
	}
}

// BatchSize returns the number of events waiting in the current batch
func (p *BatchProcessor) BatchSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.currentBatch)
}

// QueueLen returns the number of items waiting in the queue
func (p *BatchProcessor) QueueLen() int {
	return p.queue.len()
}

func (p *BatchProcessor) run(deadline time.Time, done chan struct{}) {
	defer func() {
		p.running.Store(false)
		close(done)
	}()
	defer p.drain()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Uncaught panic processing buffer", zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		now := time.Now()
		if !now.Before(deadline) {
			p.flushBatch()
			deadline = now.Add(p.config.FlushInterval)
			p.log.Debug("Flush interval deadline reached")
		}

		timer.Reset(time.Until(deadline))

		select {
		case it := <-p.queue.items:
			switch it.kind {
			case itemShutdown:
				p.log.Debug("Received shutdown signal")
				return
			case itemFlush:
				p.log.Debug("Received flush signal")
				p.flushBatch()
			case itemEvent:
				p.addToBatch(it.event)
			}
		case <-timer.C:
		}
	}
}

// drain flushes whatever is left once the loop has exited for any reason
func (p *BatchProcessor) drain() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Final flush failed", zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	p.log.Info("Exiting processing loop, attempting to flush pending events")
	p.flushBatch()
}

func (p *BatchProcessor) addToBatch(ev domain.UserEvent) {
	if p.shouldSplit(ev) {
		p.log.Debug("Flushing batch on split")
		p.flushBatch()
	}

	p.mu.Lock()
	p.currentBatch = append(p.currentBatch, ev)
	size := len(p.currentBatch)
	p.mu.Unlock()

	if size >= p.config.BatchSize {
		p.log.Debug("Flushing on batch size", zap.Int("batch_size", size))
		p.flushBatch()
	}
}

// shouldSplit reports whether ev belongs to a different revision or project
// than the events already batched
func (p *BatchProcessor) shouldSplit(ev domain.UserEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.currentBatch) == 0 {
		return false
	}

	current := p.currentBatch[len(p.currentBatch)-1].Context()
	next := ev.Context()
	return current.Revision != next.Revision || current.ProjectID != next.ProjectID
}

func (p *BatchProcessor) flushBatch() {
	p.mu.Lock()
	batch := p.currentBatch
	p.currentBatch = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		p.log.Debug("Nothing to flush")
		return
	}

	p.log.Debug("Flushing batch", zap.Int("batch_size", len(batch)))
	dispatchLogEvent(p.builder, p.dispatcher, p.notifier, batch, p.log)
}

// dispatchLogEvent builds, announces and sends one batch. Build and dispatch
// failures, panics included, are logged and never reach the consumer loop.
func dispatchLogEvent(builder PayloadBuilder, dispatcher Dispatcher, notifier Notifier, batch []domain.UserEvent, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Error dispatching event",
				zap.Int("event_count", len(batch)),
				zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	logEvent := builder.Build(batch)
	if logEvent == nil {
		log.Error("Error dispatching event: cannot dispatch nil event",
			zap.Int("event_count", len(batch)))
		return
	}

	notify(notifier, logEvent, log)

	if err := dispatcher.Dispatch(context.Background(), logEvent); err != nil {
		log.Error("Error dispatching event",
			zap.Error(err),
			zap.Int("visitor_count", len(logEvent.Params.Visitors)),
			zap.String("revision", logEvent.Params.Revision))
	}
}

func notify(notifier Notifier, logEvent *event.LogEvent, log *zap.Logger) {
	if notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("Log event notification failed", zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()
	notifier.Send(notification.LogEvent, logEvent)
}

func isValidEvent(ev domain.UserEvent) bool {
	switch e := ev.(type) {
	case *domain.ImpressionEvent:
		return e != nil
	case *domain.ConversionEvent:
		return e != nil
	}
	return false
}
