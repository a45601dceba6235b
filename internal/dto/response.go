package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DecideResponse represents the decision returned to the caller
type DecideResponse struct {
	FlagKey      string   `json:"flag_key"`
	RuleKey      string   `json:"rule_key"`
	VariationKey string   `json:"variation_key"`
	VariationID  string   `json:"variation_id"`
	Enabled      bool     `json:"enabled"`
	CmabUUID     string   `json:"cmab_uuid,omitempty"`
	Reasons      []string `json:"reasons"`
}

// TrackResponse represents an accepted conversion
type TrackResponse struct {
	EventUUID string `json:"event_uuid"`
	Status    string `json:"status"`
}

// FlushResponse represents an accepted flush request
type FlushResponse struct {
	Status string `json:"status"`
}
