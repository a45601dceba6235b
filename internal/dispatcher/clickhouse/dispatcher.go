package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/event"
)

// Dispatcher stores event batches in ClickHouse, one row per snapshot event
type Dispatcher struct {
	client *Client
	log    *zap.Logger
}

// row is one snapshot event together with its visitor and decision
type row struct {
	EventUUID    string
	EventKey     string
	EntityID     string
	VisitorID    string
	AccountID    string
	ProjectID    string
	Revision     string
	CampaignID   string
	ExperimentID string
	VariationID  string
	FlagKey      string
	RuleKey      string
	CmabUUID     string
	Revenue      *int64
	Value        *float64
	Tags         string
	Timestamp    int64
}

// NewDispatcher creates a new ClickHouse dispatcher
func NewDispatcher(client *Client, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		log:    log,
	}
}

// InitSchema creates the events table when it does not exist
func (d *Dispatcher) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS decision_events (
		event_uuid String,
		event_key LowCardinality(String),
		entity_id String,
		visitor_id String,
		account_id LowCardinality(String),
		project_id LowCardinality(String),
		revision LowCardinality(String),
		campaign_id String,
		experiment_id String,
		variation_id String,
		flag_key String,
		rule_key String,
		cmab_uuid String,
		revenue Nullable(Int64),
		value Nullable(Float64),
		tags String,
		timestamp Int64,
		inserted_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree
	ORDER BY (project_id, event_uuid)
	PARTITION BY toYYYYMM(toDateTime(intDiv(timestamp, 1000)))
	`

	if err := d.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create decision_events table: %w", err)
	}

	d.log.Info("ClickHouse schema initialized")
	return nil
}

// Dispatch inserts the batch with a single prepared insert
func (d *Dispatcher) Dispatch(ctx context.Context, logEvent *event.LogEvent) error {
	rows, err := flatten(logEvent.Params)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	batch, err := d.client.Conn().PrepareBatch(ctx, "INSERT INTO decision_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range rows {
		err := batch.Append(
			r.EventUUID,
			r.EventKey,
			r.EntityID,
			r.VisitorID,
			r.AccountID,
			r.ProjectID,
			r.Revision,
			r.CampaignID,
			r.ExperimentID,
			r.VariationID,
			r.FlagKey,
			r.RuleKey,
			r.CmabUUID,
			r.Revenue,
			r.Value,
			r.Tags,
			r.Timestamp,
		)
		if err != nil {
			if abortErr := batch.Abort(); abortErr != nil {
				d.log.Error("Failed to abort batch", zap.Error(abortErr))
			}
			return fmt.Errorf("failed to append event to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	d.log.Debug("Event batch stored in ClickHouse", zap.Int("rows", len(rows)))
	return nil
}

// Ping checks if the ClickHouse connection is alive
func (d *Dispatcher) Ping(ctx context.Context) error {
	return d.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (d *Dispatcher) Close() error {
	return d.client.Close()
}

func flatten(batch event.EventBatch) ([]row, error) {
	var rows []row
	for _, visitor := range batch.Visitors {
		for _, snapshot := range visitor.Snapshots {
			var decision event.Decision
			if len(snapshot.Decisions) > 0 {
				decision = snapshot.Decisions[0]
			}

			for _, ev := range snapshot.Events {
				tags := "{}"
				if len(ev.Tags) > 0 {
					data, err := json.Marshal(ev.Tags)
					if err != nil {
						return nil, fmt.Errorf("failed to encode tags for event %s: %w", ev.UUID, err)
					}
					tags = string(data)
				}

				rows = append(rows, row{
					EventUUID:    ev.UUID,
					EventKey:     ev.Key,
					EntityID:     ev.EntityID,
					VisitorID:    visitor.VisitorID,
					AccountID:    batch.AccountID,
					ProjectID:    batch.ProjectID,
					Revision:     batch.Revision,
					CampaignID:   decision.CampaignID,
					ExperimentID: decision.ExperimentID,
					VariationID:  decision.VariationID,
					FlagKey:      decision.Metadata.FlagKey,
					RuleKey:      decision.Metadata.RuleKey,
					CmabUUID:     decision.Metadata.CmabUUID,
					Revenue:      ev.Revenue,
					Value:        ev.Value,
					Tags:         tags,
					Timestamp:    ev.Timestamp,
				})
			}
		}
	}
	return rows, nil
}
