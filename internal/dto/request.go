package dto

// ForcedDecision pins a variation for a flag, or for one rule of a flag
type ForcedDecision struct {
	FlagKey      string `json:"flag_key" binding:"required"`
	RuleKey      string `json:"rule_key"`
	VariationKey string `json:"variation_key" binding:"required"`
}

// DecideRequest represents a bandit decision request
type DecideRequest struct {
	UserID               string           `json:"user_id" binding:"required"`
	FlagKey              string           `json:"flag_key" binding:"required"`
	RuleKey              string           `json:"rule_key" binding:"required"`
	Attributes           map[string]any   `json:"attributes"`
	Options              []string         `json:"options" binding:"dive,oneof=IGNORE_CMAB_CACHE RESET_CMAB_CACHE INVALIDATE_USER_CMAB_CACHE"`
	ForcedDecisions      []ForcedDecision `json:"forced_decisions" binding:"dive"`
	DisableDecisionEvent bool             `json:"disable_decision_event"`
}

// TrackRequest represents a conversion tracking request
type TrackRequest struct {
	UserID     string         `json:"user_id" binding:"required"`
	EventKey   string         `json:"event_key" binding:"required"`
	Attributes map[string]any `json:"attributes"`
	Tags       map[string]any `json:"tags"`
}
