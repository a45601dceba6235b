package event

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
	"github.com/BarkinBalci/feature-flag-events/internal/projectconfig"
)

const testTimestamp int64 = 1766702552000

func newTestConfig(botFiltering *bool) *projectconfig.Config {
	return projectconfig.New(projectconfig.Datafile{
		AccountID:    "12001",
		ProjectID:    "111001",
		Revision:     "42",
		AnonymizeIP:  true,
		BotFiltering: botFiltering,
		Experiments: []domain.Experiment{{
			ID:         "exp_1",
			Key:        "cmab_rule",
			LayerID:    "layer_1",
			Variations: []domain.Variation{{ID: "var_a", Key: "a", FeatureEnabled: true}},
			Cmab:       &domain.Cmab{AttributeIDs: []string{"attr_1"}},
		}},
		Attributes: []domain.Attribute{{ID: "attr_1", Key: "age"}, {ID: "attr_2", Key: "country"}},
		Events:     []domain.EventDefinition{{ID: "ev_1", Key: "purchase"}},
	})
}

func newTestFactory() *Factory {
	f := NewFactory()
	f.now = func() time.Time { return time.UnixMilli(testTimestamp) }
	f.newUUID = func() string { return "uuid-1" }
	return f
}

func TestFactory_CreateImpressionEvent(t *testing.T) {
	cfg := newTestConfig(nil)
	exp, _ := cfg.ExperimentByID("exp_1")
	variation, _ := exp.VariationByID("var_a")

	ev := newTestFactory().CreateImpressionEvent(cfg, ImpressionParams{
		Experiment: exp,
		Variation:  variation,
		FlagKey:    "flag",
		RuleKey:    exp.Key,
		RuleType:   "experiment",
		Enabled:    true,
		CmabUUID:   "cmab-uuid",
		UserID:     "user123",
		Attributes: map[string]any{"age": 31, "unknown": "x"},
	})

	assert.Equal(t, "111001", ev.Context().ProjectID)
	assert.Equal(t, "42", ev.Context().Revision)
	assert.Equal(t, ClientName, ev.Context().ClientName)
	assert.Equal(t, "user123", ev.User())
	assert.Equal(t, "uuid-1", ev.EventUUID())
	assert.Equal(t, testTimestamp, ev.EventTimestamp())
	assert.Equal(t, []domain.VisitorAttribute{{EntityID: "attr_1", Key: "age", Type: "custom", Value: 31}}, ev.VisitorAttributes)
}

func TestFactory_CreateConversionEvent_UnknownEvent(t *testing.T) {
	_, err := newTestFactory().CreateConversionEvent(newTestConfig(nil), "missing", "user123", nil, nil)
	assert.ErrorIs(t, err, projectconfig.ErrEventNotFound)
}

func TestBuildAttributeList_FiltersInvalidValues(t *testing.T) {
	enabled := true
	cfg := newTestConfig(&enabled)

	attrs := BuildAttributeList(cfg, map[string]any{
		"age":     math.Inf(1),
		"country": "de",
		"nope":    "ignored",
	})

	require.Len(t, attrs, 2)
	assert.Equal(t, "country", attrs[0].Key)
	assert.Equal(t, botFilteringKey, attrs[1].EntityID)
	assert.Equal(t, true, attrs[1].Value)
}

func TestBuilder_Build_Impression(t *testing.T) {
	cfg := newTestConfig(nil)
	exp, _ := cfg.ExperimentByID("exp_1")
	variation, _ := exp.VariationByID("var_a")

	ev := newTestFactory().CreateImpressionEvent(cfg, ImpressionParams{
		Experiment: exp,
		Variation:  variation,
		FlagKey:    "flag",
		RuleKey:    exp.Key,
		RuleType:   "experiment",
		Enabled:    true,
		CmabUUID:   "cmab-uuid",
		UserID:     "user123",
	})

	logEvent := NewBuilder(zap.NewNop()).Build([]domain.UserEvent{ev})
	require.NotNil(t, logEvent)

	assert.Equal(t, EventEndpoint, logEvent.URL)
	assert.Equal(t, "POST", logEvent.HTTPVerb)
	assert.Equal(t, "application/json", logEvent.Headers["Content-Type"])
	assert.True(t, logEvent.Params.EnrichDecisions)
	require.Len(t, logEvent.Params.Visitors, 1)

	snapshot := logEvent.Params.Visitors[0].Snapshots[0]
	require.Len(t, snapshot.Decisions, 1)
	assert.Equal(t, "layer_1", snapshot.Decisions[0].CampaignID)
	assert.Equal(t, "var_a", snapshot.Decisions[0].VariationID)
	assert.Equal(t, "a", snapshot.Decisions[0].Metadata.VariationKey)
	assert.Equal(t, "cmab-uuid", snapshot.Decisions[0].Metadata.CmabUUID)
	assert.Equal(t, "campaign_activated", snapshot.Events[0].Key)
	assert.Equal(t, testTimestamp, snapshot.Events[0].Timestamp)
}

func TestBuilder_Build_ConversionWireFormat(t *testing.T) {
	cfg := newTestConfig(nil)
	ev, err := newTestFactory().CreateConversionEvent(cfg, "purchase", "user123", nil, map[string]any{
		"revenue": float64(4200),
		"value":   1.5,
	})
	require.NoError(t, err)

	logEvent := NewBuilder(zap.NewNop()).Build([]domain.UserEvent{ev})
	require.NotNil(t, logEvent)

	body, err := json.Marshal(logEvent.Params)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "111001", decoded["project_id"])
	assert.Equal(t, true, decoded["anonymize_ip"])

	visitor := decoded["visitors"].([]any)[0].(map[string]any)
	assert.Equal(t, "user123", visitor["visitor_id"])
	assert.Equal(t, []any{}, visitor["attributes"])

	snapshotEvent := visitor["snapshots"].([]any)[0].(map[string]any)["events"].([]any)[0].(map[string]any)
	assert.Equal(t, "ev_1", snapshotEvent["entity_id"])
	assert.Equal(t, "purchase", snapshotEvent["key"])
	assert.Equal(t, float64(4200), snapshotEvent["revenue"])
	assert.Equal(t, 1.5, snapshotEvent["value"])
}

func TestBuilder_Build_EmptyOrInvalid(t *testing.T) {
	builder := NewBuilder(zap.NewNop())

	assert.Nil(t, builder.Build(nil))
	assert.Nil(t, builder.Build([]domain.UserEvent{&domain.ConversionEvent{}}))
	assert.Nil(t, builder.Build([]domain.UserEvent{(*domain.ImpressionEvent)(nil)}))
}

func TestEventTags(t *testing.T) {
	revenue, ok := RevenueValue(map[string]any{"revenue": 10})
	assert.True(t, ok)
	assert.Equal(t, int64(10), revenue)

	_, ok = RevenueValue(map[string]any{"revenue": 10.5})
	assert.False(t, ok)

	_, ok = RevenueValue(map[string]any{"revenue": "10"})
	assert.False(t, ok)

	value, ok := NumericValue(map[string]any{"value": int64(3)})
	assert.True(t, ok)
	assert.Equal(t, 3.0, value)

	_, ok = NumericValue(map[string]any{"value": math.NaN()})
	assert.False(t, ok)

	_, ok = NumericValue(nil)
	assert.False(t, ok)
}
