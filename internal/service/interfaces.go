package service

import (
	"context"

	"github.com/BarkinBalci/feature-flag-events/internal/cmab"
	"github.com/BarkinBalci/feature-flag-events/internal/domain"
	"github.com/BarkinBalci/feature-flag-events/internal/dto"
	"github.com/BarkinBalci/feature-flag-events/internal/notification"
	"github.com/BarkinBalci/feature-flag-events/internal/projectconfig"
)

// Servicer defines the operations exposed by the agent API
type Servicer interface {
	DecideCmab(ctx context.Context, req *dto.DecideRequest) (*dto.DecideResponse, error)
	Track(ctx context.Context, req *dto.TrackRequest) (*dto.TrackResponse, error)
	Flush()
}

// DecisionResolver resolves bandit decisions
type DecisionResolver interface {
	GetDecision(ctx context.Context, cfg projectconfig.ProjectConfig, user domain.UserContext, ruleID string, opts []cmab.Option) (cmab.Decision, []string, error)
}

// EventProcessor queues user events for delivery
type EventProcessor interface {
	Process(ev domain.UserEvent)
	Flush()
}

// Notifier receives decision and track notifications
type Notifier interface {
	Send(notificationType notification.Type, payload any)
}
