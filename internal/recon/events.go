package recon

import (
	"fmt"
	"time"
)

// EventKind tags an Event variant. The values double as the wire names used
// by the process engine and replay scripts.
type EventKind string

const (
	EventInputComplete         EventKind = "inputComplete"
	EventInvalidSample         EventKind = "invalidSample"
	EventSkippedSample         EventKind = "skippedSample"
	EventAutomaticDownsampling EventKind = "automaticDownsampling"
	EventRequestProgress       EventKind = "requestProgress"
	EventRequestProgressInfo   EventKind = "requestProgressInfo"
	EventRequestComplete       EventKind = "requestComplete"
	EventRequestError          EventKind = "requestError"
	EventProcessingComplete    EventKind = "processingComplete"
	EventProcessingCancelled   EventKind = "processingCancelled"
	EventUnknown               EventKind = "unknown"
)

// Event is one entry of a session's ordered output stream.
type Event interface {
	Kind() EventKind
}

// InputComplete reports that all input samples were ingested.
type InputComplete struct{}

func (InputComplete) Kind() EventKind { return EventInputComplete }

// InvalidSample reports a sample the engine could not use.
type InvalidSample struct {
	ID     int
	Reason string
}

func (InvalidSample) Kind() EventKind { return EventInvalidSample }

// SkippedSample reports a sample the engine ignored.
type SkippedSample struct {
	ID int
}

func (SkippedSample) Kind() EventKind { return EventSkippedSample }

// AutomaticDownsampling reports that the engine reduced the input resolution
// to fit the available memory.
type AutomaticDownsampling struct{}

func (AutomaticDownsampling) Kind() EventKind { return EventAutomaticDownsampling }

// RequestProgress reports a completed fraction in [0, 1] for a request.
type RequestProgress struct {
	Request  Request
	Fraction float64
}

func (RequestProgress) Kind() EventKind { return EventRequestProgress }

// RequestProgressInfo carries the engine's current processing stage and its
// estimate of the remaining time. Remaining is zero when unknown.
type RequestProgressInfo struct {
	Request   Request
	Stage     string
	Remaining time.Duration
}

func (RequestProgressInfo) Kind() EventKind { return EventRequestProgressInfo }

// RequestComplete reports that a request produced its result.
type RequestComplete struct {
	Request Request
	Result  Result
}

func (RequestComplete) Kind() EventKind { return EventRequestComplete }

// RequestError reports that a request failed. The session keeps running.
type RequestError struct {
	Request Request
	Err     error
}

func (RequestError) Kind() EventKind { return EventRequestError }

// ProcessingComplete reports that every submitted request has finished.
type ProcessingComplete struct{}

func (ProcessingComplete) Kind() EventKind { return EventProcessingComplete }

// ProcessingCancelled reports that the session stopped before finishing.
type ProcessingCancelled struct{}

func (ProcessingCancelled) Kind() EventKind { return EventProcessingCancelled }

// Unknown is an event kind this build does not recognize.
type Unknown struct {
	Name        string
	Description string
}

func (Unknown) Kind() EventKind { return EventUnknown }

// Describe returns a one-line human readable description of e.
func Describe(e Event) string {
	switch ev := e.(type) {
	case InputComplete:
		return "input ingestion complete"
	case InvalidSample:
		return fmt.Sprintf("invalid sample %d: %s", ev.ID, ev.Reason)
	case SkippedSample:
		return fmt.Sprintf("skipped sample %d", ev.ID)
	case AutomaticDownsampling:
		return "automatic downsampling applied"
	case RequestProgress:
		return fmt.Sprintf("%s progress %.1f%%", ev.Request, ev.Fraction*100)
	case RequestProgressInfo:
		if ev.Remaining > 0 {
			return fmt.Sprintf("%s stage %s, about %s remaining", ev.Request, ev.Stage, ev.Remaining.Round(time.Second))
		}
		return fmt.Sprintf("%s stage %s", ev.Request, ev.Stage)
	case RequestComplete:
		return fmt.Sprintf("%s complete: %s", ev.Request, ev.Result)
	case RequestError:
		return fmt.Sprintf("%s failed: %v", ev.Request, ev.Err)
	case ProcessingComplete:
		return "processing complete"
	case ProcessingCancelled:
		return "processing cancelled"
	case Unknown:
		if ev.Description != "" {
			return fmt.Sprintf("unhandled event %s: %s", ev.Name, ev.Description)
		}
		return fmt.Sprintf("unhandled event %s", ev.Name)
	default:
		return fmt.Sprintf("unhandled event %T", e)
	}
}
