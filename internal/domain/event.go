package domain

// EventContext identifies the batch an event belongs to. Events with a
// different Revision or ProjectID are never dispatched together.
type EventContext struct {
	AccountID     string
	ProjectID     string
	Revision      string
	ClientName    string
	ClientVersion string
	AnonymizeIP   bool
}

// VisitorAttribute is a user attribute in the shape the collection endpoint expects
type VisitorAttribute struct {
	EntityID string `json:"entity_id"`
	Key      string `json:"key"`
	Type     string `json:"type"`
	Value    any    `json:"value"`
}

// UserEvent is an impression or conversion waiting to be dispatched
type UserEvent interface {
	Context() EventContext
	User() string
	EventUUID() string
	EventTimestamp() int64

	userEvent()
}

// BaseEvent holds the fields shared by every user event
type BaseEvent struct {
	EventContext      EventContext
	UserID            string
	VisitorAttributes []VisitorAttribute
	BotFiltering      *bool
	UUID              string
	Timestamp         int64 // unix milliseconds
}

func (e *BaseEvent) Context() EventContext { return e.EventContext }
func (e *BaseEvent) User() string          { return e.UserID }
func (e *BaseEvent) EventUUID() string     { return e.UUID }
func (e *BaseEvent) EventTimestamp() int64 { return e.Timestamp }
func (e *BaseEvent) userEvent()            {}

// ImpressionEvent records that a user was shown a variation
type ImpressionEvent struct {
	BaseEvent
	Experiment *Experiment
	Variation  *Variation
	FlagKey    string
	RuleKey    string
	RuleType   string
	Enabled    bool
	CmabUUID   string
}

// ConversionEvent records a tracked user action
type ConversionEvent struct {
	BaseEvent
	Event     *EventDefinition
	EventTags map[string]any
}
