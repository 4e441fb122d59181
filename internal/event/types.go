package event

import (
	"time"

	"github.com/Iron-Ham/photogram/internal/recon"
)

// Event is the interface that all bus events implement.
type Event interface {
	// EventType returns a "category.action" identifier.
	EventType() string

	// Timestamp returns when the event was published.
	Timestamp() time.Time
}

// baseEvent provides the common fields. Embed it in concrete event types.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// SessionTypePrefix prefixes the type of every SessionEvent.
const SessionTypePrefix = "session."

// SessionType returns the bus type used for an engine event kind.
func SessionType(kind recon.EventKind) string {
	return SessionTypePrefix + string(kind)
}

// SessionEvent wraps one engine event.
type SessionEvent struct {
	baseEvent
	SessionID string
	Seq       uint64 // 1-based position in the session's stream
	Payload   recon.Event
}

// NewSessionEvent creates a SessionEvent for payload.
func NewSessionEvent(sessionID string, seq uint64, payload recon.Event) SessionEvent {
	return SessionEvent{
		baseEvent: newBaseEvent(SessionType(payload.Kind())),
		SessionID: sessionID,
		Seq:       seq,
		Payload:   payload,
	}
}

// ExportEvent reports the outcome of the post-processing export.
type ExportEvent struct {
	baseEvent
	Source      string
	Destination string
	Err         error // nil on success
}

// NewExportEvent creates an ExportEvent.
func NewExportEvent(src, dst string, err error) ExportEvent {
	return ExportEvent{
		baseEvent:   newBaseEvent("export.finished"),
		Source:      src,
		Destination: dst,
		Err:         err,
	}
}

// ExitEvent reports the exit code the observer decided on.
type ExitEvent struct {
	baseEvent
	Code   int
	Reason string
}

// NewExitEvent creates an ExitEvent.
func NewExitEvent(code int, reason string) ExitEvent {
	return ExitEvent{
		baseEvent: newBaseEvent("run.exit"),
		Code:      code,
		Reason:    reason,
	}
}
