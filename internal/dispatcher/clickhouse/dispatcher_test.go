package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/event"
)

func TestFlatten(t *testing.T) {
	revenue := int64(4200)
	batch := event.EventBatch{
		AccountID: "12001",
		ProjectID: "111001",
		Revision:  "42",
		Visitors: []event.Visitor{
			{
				VisitorID: "user1",
				Snapshots: []event.Snapshot{{
					Decisions: []event.Decision{{
						CampaignID:   "layer_1",
						ExperimentID: "exp_1",
						VariationID:  "var_1",
						Metadata:     event.DecisionMetadata{FlagKey: "flag", RuleKey: "rule", CmabUUID: "uuid-123"},
					}},
					Events: []event.SnapshotEvent{{EntityID: "layer_1", UUID: "ev-1", Key: "campaign_activated", Timestamp: 1000}},
				}},
			},
			{
				VisitorID: "user2",
				Snapshots: []event.Snapshot{{
					Events: []event.SnapshotEvent{{
						EntityID:  "evt_1",
						UUID:      "ev-2",
						Key:       "purchase",
						Timestamp: 2000,
						Revenue:   &revenue,
						Tags:      map[string]any{"revenue": 4200},
					}},
				}},
			},
		},
	}

	rows, err := flatten(batch)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "user1", rows[0].VisitorID)
	assert.Equal(t, "exp_1", rows[0].ExperimentID)
	assert.Equal(t, "uuid-123", rows[0].CmabUUID)
	assert.Equal(t, "{}", rows[0].Tags)
	assert.Nil(t, rows[0].Revenue)

	assert.Equal(t, "user2", rows[1].VisitorID)
	assert.Equal(t, "111001", rows[1].ProjectID)
	assert.Empty(t, rows[1].ExperimentID)
	assert.Equal(t, &revenue, rows[1].Revenue)
	assert.JSONEq(t, `{"revenue":4200}`, rows[1].Tags)
}

func TestDispatch_EmptyBatchSkipsInsert(t *testing.T) {
	// A nil client would panic if the dispatcher tried to reach ClickHouse
	d := NewDispatcher(nil, zap.NewNop())

	err := d.Dispatch(context.Background(), &event.LogEvent{Params: event.EventBatch{ProjectID: "111001"}})
	assert.NoError(t, err)
}
