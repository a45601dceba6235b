package event

import "github.com/BarkinBalci/feature-flag-events/internal/domain"

const (
	EventEndpoint = "https://logx.optimizely.com/v1/events"
	HTTPVerb      = "POST"

	activateEventKey = "campaign_activated"
	customAttribute  = "custom"
	botFilteringKey  = "$opt_bot_filtering"
)

// LogEvent is a fully built batch ready for a dispatcher
type LogEvent struct {
	URL      string
	HTTPVerb string
	Headers  map[string]string
	Params   EventBatch
}

// EventBatch is the JSON body accepted by the collection endpoint
type EventBatch struct {
	AccountID       string    `json:"account_id"`
	ProjectID       string    `json:"project_id"`
	Revision        string    `json:"revision"`
	ClientName      string    `json:"client_name"`
	ClientVersion   string    `json:"client_version"`
	AnonymizeIP     bool      `json:"anonymize_ip"`
	EnrichDecisions bool      `json:"enrich_decisions"`
	Visitors        []Visitor `json:"visitors"`
}

// Visitor groups the snapshots of one user
type Visitor struct {
	Snapshots  []Snapshot                `json:"snapshots"`
	Attributes []domain.VisitorAttribute `json:"attributes"`
	VisitorID  string                    `json:"visitor_id"`
}

type Snapshot struct {
	Decisions []Decision      `json:"decisions,omitempty"`
	Events    []SnapshotEvent `json:"events"`
}

type Decision struct {
	CampaignID   string           `json:"campaign_id"`
	ExperimentID string           `json:"experiment_id"`
	VariationID  string           `json:"variation_id"`
	Metadata     DecisionMetadata `json:"metadata"`
}

type DecisionMetadata struct {
	FlagKey      string `json:"flag_key"`
	RuleKey      string `json:"rule_key"`
	RuleType     string `json:"rule_type"`
	VariationKey string `json:"variation_key"`
	Enabled      bool   `json:"enabled"`
	CmabUUID     string `json:"cmab_uuid,omitempty"`
}

type SnapshotEvent struct {
	EntityID  string         `json:"entity_id"`
	UUID      string         `json:"uuid"`
	Key       string         `json:"key"`
	Timestamp int64          `json:"timestamp"`
	Revenue   *int64         `json:"revenue,omitempty"`
	Value     *float64       `json:"value,omitempty"`
	Tags      map[string]any `json:"tags,omitempty"`
}
