package events

import "time"

// Report lifecycle event types.
const (
	TypeReportStarted   = "REPORT_STARTED"
	TypeReportCompleted = "REPORT_COMPLETED"
	TypeReportFailed    = "REPORT_FAILED"
)

// Event is anything that can be mirrored onto an external bus.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used for report lifecycle events.
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
