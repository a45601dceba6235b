package event

import (
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
)

// Builder turns a homogeneous batch of user events into a LogEvent
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a new payload builder
func NewBuilder(log *zap.Logger) *Builder {
	return &Builder{log: log}
}

// Build returns nil when no event in the batch produced a visitor. The batch
// context is taken from the first event.
func (b *Builder) Build(events []domain.UserEvent) *LogEvent {
	if len(events) == 0 {
		return nil
	}

	visitors := make([]Visitor, 0, len(events))
	for _, ev := range events {
		visitor, ok := b.createVisitor(ev)
		if !ok {
			continue
		}
		visitors = append(visitors, visitor)
	}

	if len(visitors) == 0 {
		return nil
	}

	ctx := events[0].Context()
	return &LogEvent{
		URL:      EventEndpoint,
		HTTPVerb: HTTPVerb,
		Headers:  map[string]string{"Content-Type": "application/json"},
		Params: EventBatch{
			AccountID:       ctx.AccountID,
			ProjectID:       ctx.ProjectID,
			Revision:        ctx.Revision,
			ClientName:      ctx.ClientName,
			ClientVersion:   ctx.ClientVersion,
			AnonymizeIP:     ctx.AnonymizeIP,
			EnrichDecisions: true,
			Visitors:        visitors,
		},
	}
}

func (b *Builder) createVisitor(ev domain.UserEvent) (Visitor, bool) {
	switch e := ev.(type) {
	case *domain.ImpressionEvent:
		if e == nil || e.Experiment == nil {
			break
		}
		return impressionVisitor(e), true
	case *domain.ConversionEvent:
		if e == nil || e.Event == nil {
			break
		}
		return conversionVisitor(e), true
	}

	b.log.Error("Invalid user event", zap.String("type", typeName(ev)))
	return Visitor{}, false
}

func impressionVisitor(e *domain.ImpressionEvent) Visitor {
	var variationID, variationKey string
	if e.Variation != nil {
		variationID = e.Variation.ID
		variationKey = e.Variation.Key
	}

	decision := Decision{
		CampaignID:   e.Experiment.LayerID,
		ExperimentID: e.Experiment.ID,
		VariationID:  variationID,
		Metadata: DecisionMetadata{
			FlagKey:      e.FlagKey,
			RuleKey:      e.RuleKey,
			RuleType:     e.RuleType,
			VariationKey: variationKey,
			Enabled:      e.Enabled,
			CmabUUID:     e.CmabUUID,
		},
	}

	return Visitor{
		Snapshots: []Snapshot{{
			Decisions: []Decision{decision},
			Events: []SnapshotEvent{{
				EntityID:  e.Experiment.LayerID,
				UUID:      e.UUID,
				Key:       activateEventKey,
				Timestamp: e.Timestamp,
			}},
		}},
		Attributes: attributesOrEmpty(e.VisitorAttributes),
		VisitorID:  e.UserID,
	}
}

func conversionVisitor(e *domain.ConversionEvent) Visitor {
	snapshotEvent := SnapshotEvent{
		EntityID:  e.Event.ID,
		UUID:      e.UUID,
		Key:       e.Event.Key,
		Timestamp: e.Timestamp,
		Tags:      e.EventTags,
	}
	if revenue, ok := RevenueValue(e.EventTags); ok {
		snapshotEvent.Revenue = &revenue
	}
	if value, ok := NumericValue(e.EventTags); ok {
		snapshotEvent.Value = &value
	}

	return Visitor{
		Snapshots:  []Snapshot{{Events: []SnapshotEvent{snapshotEvent}}},
		Attributes: attributesOrEmpty(e.VisitorAttributes),
		VisitorID:  e.UserID,
	}
}

func attributesOrEmpty(attrs []domain.VisitorAttribute) []domain.VisitorAttribute {
	if attrs == nil {
		return []domain.VisitorAttribute{}
	}
	return attrs
}

func typeName(ev domain.UserEvent) string {
	switch ev.(type) {
	case nil:
		return "nil"
	case *domain.ImpressionEvent:
		return "impression"
	case *domain.ConversionEvent:
		return "conversion"
	}
	return "unknown"
}
