// Package observer drains a reconstruction session's event stream and decides
// how the run ends.
//
// Events are handled strictly in emission order on a single goroutine. Only
// processing-complete ends the drain early; every other event, including
// request errors and cancellation notices, is logged and the drain continues
// until the stream closes. The observer never returns a non-zero exit code:
// the failures that abort a run happen before draining starts.
package observer

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/photogram/internal/asset"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/event"
	"github.com/Iron-Ham/photogram/internal/logging"
	"github.com/Iron-Ham/photogram/internal/recon"
)

// Stream is the consuming side of a session.
type Stream interface {
	Events() <-chan recon.Event
	// Err reports why the stream failed. Valid once Events is closed.
	Err() error
}

// Reason names how a drain ended.
type Reason string

const (
	ReasonCompleted   Reason = "processing-complete"
	ReasonCancelled   Reason = "processing-cancelled"
	ReasonStreamError Reason = "stream-error"
	ReasonStreamEnded Reason = "stream-ended"
)

// Outcome summarizes a finished drain.
type Outcome struct {
	Code   int
	Reason Reason
	// Events is the number of events handled
	Events uint64
	// RequestErrors counts request-error events
	RequestErrors int
	// StreamErr is set when the stream failed
	StreamErr error
	// ExportErr is the swallowed post-processing failure, if any
	ExportErr error
}

// ExportOptions configures the post-processing export run on
// processing-complete.
type ExportOptions struct {
	Enabled bool
	// Destination is the auxiliary path the model is converted to
	Destination string
	Loader      asset.Loader
	// WaitTimeout bounds the wait for the model file to appear. Zero checks once.
	WaitTimeout time.Duration
}

// Options configures an Observer.
type Options struct {
	SessionID string
	// Output is the model path the submitted request writes
	Output string
	Export ExportOptions
	// Bus receives every handled event. Optional.
	Bus    *event.Bus
	Logger *logging.Logger
}

// Observer drains one session.
type Observer struct {
	opts   Options
	logger *logging.Logger

	// model is the path reported by the last modelFile result
	model string
	seq   uint64

	done    chan struct{}
	once    sync.Once
	outcome Outcome
}

// New creates an Observer.
func New(opts Options) *Observer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Observer{
		opts:   opts,
		logger: logger.WithPhase("drain"),
		done:   make(chan struct{}),
	}
}

// Start drains s on a new goroutine. Call Wait for the result. Start may be
// called at most once.
func (o *Observer) Start(ctx context.Context, s Stream) {
	o.once.Do(func() {
		go func() {
			defer close(o.done)
			o.outcome = o.Drain(ctx, s)
		}()
	})
}

// Wait blocks until the drain started by Start finishes.
func (o *Observer) Wait() Outcome {
	<-o.done
	return o.outcome
}

// Drain consumes s until it closes or processing completes. ctx bounds only
// the post-processing export; the stream itself is always drained, since the
// engine reports cancellation through it.
func (o *Observer) Drain(ctx context.Context, s Stream) Outcome {
	var out Outcome

	for ev := range s.Events() {
		o.seq++
		out.Events = o.seq
		o.publish(event.NewSessionEvent(o.opts.SessionID, o.seq, ev))

		switch e := ev.(type) {
		case recon.InputComplete:
			o.logger.Info("input ingestion complete")

		case recon.InvalidSample:
			o.logger.Warn("invalid sample", "sample_id", e.ID, "reason", e.Reason)

		case recon.SkippedSample:
			o.logger.Warn("skipped sample", "sample_id", e.ID)

		case recon.AutomaticDownsampling:
			o.logger.Warn("automatic downsampling applied")

		case recon.RequestProgress:
			o.logger.WithRequest(e.Request.String()).Info("request progress", "fraction", e.Fraction)

		case recon.RequestProgressInfo:
			args := []any{"stage", e.Stage}
			if e.Remaining > 0 {
				args = append(args, "remaining", e.Remaining.Round(time.Second).String())
			}
			o.logger.WithRequest(e.Request.String()).Debug("request progress info", args...)

		case recon.RequestComplete:
			o.requestComplete(e)

		case recon.RequestError:
			out.RequestErrors++
			o.logger.WithRequest(e.Request.String()).Error("request failed", "error", e.Err)

		case recon.ProcessingComplete:
			o.logger.Info("processing complete")
			out.ExportErr = o.export(ctx)
			return o.finish(out, ReasonCompleted)

		case recon.ProcessingCancelled:
			out.Reason = ReasonCancelled
			o.logger.Warn("processing cancelled")

		default:
			o.logger.Warn("unhandled event", "kind", string(ev.Kind()), "description", recon.Describe(ev))
		}
	}

	if err := s.Err(); err != nil {
		out.StreamErr = errors.NewStreamError(err)
		logFailure(o.logger, "event stream failed", out.StreamErr)
		return o.finish(out, ReasonStreamError)
	}
	if out.Reason == ReasonCancelled {
		return o.finish(out, ReasonCancelled)
	}
	o.logger.Warn("event stream ended without a terminal event")
	return o.finish(out, ReasonStreamEnded)
}

func (o *Observer) requestComplete(e recon.RequestComplete) {
	log := o.logger.WithRequest(e.Request.String())
	log.Info("request complete", "result", e.Result.String())

	if !e.Result.IsModelFile() {
		log.Warn("unexpected result", "kind", string(e.Result.Kind))
		return
	}
	path := e.Result.Path
	if path == "" {
		path = e.Request.Path
	}
	o.model = path
	log.Info("model written", "path", path)
}

func (o *Observer) finish(out Outcome, reason Reason) Outcome {
	out.Code = errors.ExitOK
	out.Reason = reason
	o.publish(event.NewExitEvent(out.Code, string(reason)))
	o.logger.Debug("drain finished", "reason", string(reason), "events", out.Events)
	return out
}

// logFailure logs err at the level matching its severity.
func logFailure(log *logging.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err)
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug:
		log.Debug(msg, args...)
	case errors.SeverityInfo:
		log.Info(msg, args...)
	case errors.SeverityWarning:
		log.Warn(msg, args...)
	default:
		log.Error(msg, args...)
	}
}

func (o *Observer) publish(e event.Event) {
	if o.opts.Bus != nil {
		o.opts.Bus.Publish(e)
	}
}
