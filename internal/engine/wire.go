package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/recon"
	"github.com/Iron-Ham/photogram/internal/util"
)

// Handshake records precede the event stream of a process engine session.
const (
	HandshakeReady = "ready"
	HandshakeFatal = "fatal"
)

// Record is the wire form of one event. The process engine reads records as
// JSON lines and the replay engine reads them from YAML scripts.
type Record struct {
	Event            string         `json:"event" yaml:"event"`
	ID               int            `json:"id,omitempty" yaml:"id,omitempty"`
	Reason           string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Request          *recon.Request `json:"request,omitempty" yaml:"request,omitempty"`
	Fraction         float64        `json:"fraction,omitempty" yaml:"fraction,omitempty"`
	Stage            string         `json:"stage,omitempty" yaml:"stage,omitempty"`
	RemainingSeconds float64        `json:"remainingSeconds,omitempty" yaml:"remainingSeconds,omitempty"`
	Result           *recon.Result  `json:"result,omitempty" yaml:"result,omitempty"`
	Error            string         `json:"error,omitempty" yaml:"error,omitempty"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsHandshake reports whether r is a ready or fatal record.
func (r Record) IsHandshake() bool {
	return r.Event == HandshakeReady || r.Event == HandshakeFatal
}

// Decode converts a record into a recon event. Unrecognized event names
// become recon.Unknown so newer engines keep working.
func Decode(r Record) (recon.Event, error) {
	if r.Event == "" {
		return nil, fmt.Errorf("record has no event name")
	}

	var req recon.Request
	if r.Request != nil {
		req = *r.Request
	}

	switch recon.EventKind(r.Event) {
	case recon.EventInputComplete:
		return recon.InputComplete{}, nil
	case recon.EventInvalidSample:
		return recon.InvalidSample{ID: r.ID, Reason: r.Reason}, nil
	case recon.EventSkippedSample:
		return recon.SkippedSample{ID: r.ID}, nil
	case recon.EventAutomaticDownsampling:
		return recon.AutomaticDownsampling{}, nil
	case recon.EventRequestProgress:
		return recon.RequestProgress{Request: req, Fraction: clampFraction(r.Fraction)}, nil
	case recon.EventRequestProgressInfo:
		return recon.RequestProgressInfo{
			Request:   req,
			Stage:     r.Stage,
			Remaining: time.Duration(r.RemainingSeconds * float64(time.Second)),
		}, nil
	case recon.EventRequestComplete:
		var res recon.Result
		if r.Result != nil {
			res = *r.Result
		}
		return recon.RequestComplete{Request: req, Result: res}, nil
	case recon.EventRequestError:
		return recon.RequestError{Request: req, Err: errors.NewRequestError(req.String(), r.Error)}, nil
	case recon.EventProcessingComplete:
		return recon.ProcessingComplete{}, nil
	case recon.EventProcessingCancelled:
		return recon.ProcessingCancelled{}, nil
	default:
		return recon.Unknown{Name: r.Event, Description: r.Description}, nil
	}
}

// Encode converts a recon event into its wire record.
func Encode(e recon.Event) Record {
	switch ev := e.(type) {
	case recon.InvalidSample:
		return Record{Event: string(ev.Kind()), ID: ev.ID, Reason: ev.Reason}
	case recon.SkippedSample:
		return Record{Event: string(ev.Kind()), ID: ev.ID}
	case recon.RequestProgress:
		return Record{Event: string(ev.Kind()), Request: &ev.Request, Fraction: ev.Fraction}
	case recon.RequestProgressInfo:
		return Record{
			Event:            string(ev.Kind()),
			Request:          &ev.Request,
			Stage:            ev.Stage,
			RemainingSeconds: ev.Remaining.Seconds(),
		}
	case recon.RequestComplete:
		return Record{Event: string(ev.Kind()), Request: &ev.Request, Result: &ev.Result}
	case recon.RequestError:
		msg := ""
		var re *errors.RequestError
		if errors.As(ev.Err, &re) {
			msg = re.Detail()
		} else if ev.Err != nil {
			msg = ev.Err.Error()
		}
		return Record{Event: string(ev.Kind()), Request: &ev.Request, Error: msg}
	case recon.Unknown:
		return Record{Event: ev.Name, Description: ev.Description}
	default:
		return Record{Event: string(e.Kind())}
	}
}

// ParseLine decodes one JSON line. Blank lines yield ok == false.
func ParseLine(line []byte) (rec Record, ok bool, err error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, false, nil
	}
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, false, fmt.Errorf("malformed event line %q: %w", util.Truncate(string(line), 80), err)
	}
	return rec, true, nil
}

// MarshalLine encodes a record as a newline-terminated JSON line.
func MarshalLine(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func clampFraction(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
