package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the dotted event name, used as the bus subject suffix.
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const TypeSessionStatusChanged = "session.status_changed"

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSessionStatusChanged builds the event emitted on every pipeline
// transition. errMsg is empty unless status is "error".
func NewSessionStatusChanged(sessionID, status, errMsg string, at time.Time) BaseEvent {
	data := map[string]interface{}{
		"session_id":  sessionID,
		"status":      status,
		"occurred_at": at.UTC().Format(time.RFC3339Nano),
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	return BaseEvent{Type: TypeSessionStatusChanged, Data: data, OccurredAt: at}
}
