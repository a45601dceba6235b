package processor

import (
	"context"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
	"github.com/BarkinBalci/feature-flag-events/internal/event"
	"github.com/BarkinBalci/feature-flag-events/internal/notification"
)

// Processor accepts user events for delivery
type Processor interface {
	Process(ev domain.UserEvent)
}

// PayloadBuilder turns a batch of events into a wire payload. It returns nil
// when the batch cannot be dispatched.
type PayloadBuilder interface {
	Build(events []domain.UserEvent) *event.LogEvent
}

// Dispatcher delivers a built payload
type Dispatcher interface {
	Dispatch(ctx context.Context, logEvent *event.LogEvent) error
}

// Notifier is told about every payload before it is dispatched
type Notifier interface {
	Send(notificationType notification.Type, payload any)
}
