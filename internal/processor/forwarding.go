package processor

import (
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
)

// ForwardingProcessor dispatches every event synchronously as its own batch
type ForwardingProcessor struct {
	builder    PayloadBuilder
	dispatcher Dispatcher
	notifier   Notifier
	log        *zap.Logger
}

// NewForwardingProcessor creates a new forwarding processor. notifier may be nil.
func NewForwardingProcessor(builder PayloadBuilder, dispatcher Dispatcher, notifier Notifier, log *zap.Logger) *ForwardingProcessor {
	return &ForwardingProcessor{
		builder:    builder,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log,
	}
}

// Process builds and dispatches the event on the caller's goroutine
func (p *ForwardingProcessor) Process(ev domain.UserEvent) {
	if !isValidEvent(ev) {
		p.log.Error("Provided event is in an invalid format")
		return
	}

	dispatchLogEvent(p.builder, p.dispatcher, p.notifier, []domain.UserEvent{ev}, p.log)
}

// Flush is a no-op, nothing is ever buffered
func (p *ForwardingProcessor) Flush() {}
