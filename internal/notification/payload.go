package notification

// DecisionPayload is sent with Decision notifications
type DecisionPayload struct {
	Type         string
	UserID       string
	Attributes   map[string]any
	DecisionInfo map[string]any
}

// TrackPayload is sent with Track notifications. Event is the queued
// conversion event.
type TrackPayload struct {
	EventKey   string
	UserID     string
	Attributes map[string]any
	EventTags  map[string]any
	Event      any
}
