package event

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
	"github.com/BarkinBalci/feature-flag-events/internal/projectconfig"
)

const (
	ClientName    = "go-sdk"
	ClientVersion = "1.0.0"
)

// ImpressionParams describes a decision that should be recorded
type ImpressionParams struct {
	Experiment *domain.Experiment
	Variation  *domain.Variation
	FlagKey    string
	RuleKey    string
	RuleType   string
	Enabled    bool
	CmabUUID   string
	UserID     string
	Attributes map[string]any
}

// Factory creates user events stamped with a uuid and a timestamp
type Factory struct {
	now     func() time.Time
	newUUID func() string
}

// NewFactory creates a new user event factory
func NewFactory() *Factory {
	return &Factory{
		now:     time.Now,
		newUUID: uuid.NewString,
	}
}

// CreateImpressionEvent builds an impression for a decision
func (f *Factory) CreateImpressionEvent(cfg projectconfig.ProjectConfig, params ImpressionParams) *domain.ImpressionEvent {
	return &domain.ImpressionEvent{
		BaseEvent:  f.base(cfg, params.UserID, params.Attributes),
		Experiment: params.Experiment,
		Variation:  params.Variation,
		FlagKey:    params.FlagKey,
		RuleKey:    params.RuleKey,
		RuleType:   params.RuleType,
		Enabled:    params.Enabled,
		CmabUUID:   params.CmabUUID,
	}
}

// CreateConversionEvent builds a conversion for a tracked event key
func (f *Factory) CreateConversionEvent(cfg projectconfig.ProjectConfig, eventKey, userID string, attributes, tags map[string]any) (*domain.ConversionEvent, error) {
	definition, ok := cfg.EventByKey(eventKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", projectconfig.ErrEventNotFound, eventKey)
	}

	return &domain.ConversionEvent{
		BaseEvent: f.base(cfg, userID, attributes),
		Event:     definition,
		EventTags: tags,
	}, nil
}

func (f *Factory) base(cfg projectconfig.ProjectConfig, userID string, attributes map[string]any) domain.BaseEvent {
	return domain.BaseEvent{
		EventContext: domain.EventContext{
			AccountID:     cfg.AccountID(),
			ProjectID:     cfg.ProjectID(),
			Revision:      cfg.Revision(),
			ClientName:    ClientName,
			ClientVersion: ClientVersion,
			AnonymizeIP:   cfg.AnonymizeIP(),
		},
		UserID:            userID,
		VisitorAttributes: BuildAttributeList(cfg, attributes),
		BotFiltering:      cfg.BotFiltering(),
		UUID:              f.newUUID(),
		Timestamp:         f.now().UnixMilli(),
	}
}

// BuildAttributeList converts user attributes into visitor attributes. Only
// attributes declared in the datafile with a string, bool or finite numeric
// value are kept.
func BuildAttributeList(cfg projectconfig.ProjectConfig, attributes map[string]any) []domain.VisitorAttribute {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]domain.VisitorAttribute, 0, len(keys)+1)
	for _, key := range keys {
		value := attributes[key]
		if !isValidAttributeValue(value) {
			continue
		}
		attr, ok := cfg.AttributeByKey(key)
		if !ok {
			continue
		}
		list = append(list, domain.VisitorAttribute{
			EntityID: attr.ID,
			Key:      attr.Key,
			Type:     customAttribute,
			Value:    value,
		})
	}

	if botFiltering := cfg.BotFiltering(); botFiltering != nil {
		list = append(list, domain.VisitorAttribute{
			EntityID: botFilteringKey,
			Key:      botFilteringKey,
			Type:     customAttribute,
			Value:    *botFiltering,
		})
	}

	return list
}

func isValidAttributeValue(value any) bool {
	switch v := value.(type) {
	case string, bool, int, int32, int64:
		return true
	case float32:
		return isFinite(float64(v)) && math.Abs(float64(v)) <= maxAttributeNumber
	case float64:
		return isFinite(v) && math.Abs(v) <= maxAttributeNumber
	}
	return false
}

// 2^53, the largest integer a JSON number round-trips exactly
const maxAttributeNumber = 1 << 53
