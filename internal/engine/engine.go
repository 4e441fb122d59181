// Package engine defines the boundary between photogram and a reconstruction
// engine. An Engine answers the host capability query and creates sessions; a
// Session accepts requests and emits an ordered stream of recon events.
//
// Two implementations ship with photogram: engine/process drives an external
// engine executable over a line-delimited JSON protocol, and engine/replay
// plays a scripted event sequence from a YAML file.
package engine

import (
	"context"

	"github.com/Iron-Ham/photogram/internal/recon"
)

// Name identifies an engine implementation in configuration.
type Name string

const (
	NameProcess Name = "process"
	NameReplay  Name = "replay"
)

// Engine is a reconstruction backend.
type Engine interface {
	// Name returns the configured engine name.
	Name() Name

	// CheckSupport reports whether the host can run reconstructions.
	// It returns an error wrapping errors.ErrUnsupportedHardware,
	// errors.ErrUnsupportedPlatform or errors.ErrEngineUnavailable.
	CheckSupport(ctx context.Context) error

	// NewSession creates a session bound to the input folder and
	// configuration. Both bindings are fixed for the session's lifetime.
	NewSession(ctx context.Context, input string, cfg recon.Configuration) (Session, error)
}

// Session is a live reconstruction session.
//
// Events returns the same channel on every call. The engine closes it exactly
// once, after which Err reports whether the stream failed. Close cancels any
// outstanding work; an engine that was still processing emits
// recon.ProcessingCancelled before closing the stream. Close is idempotent.
type Session interface {
	Process(ctx context.Context, requests []recon.Request) error
	Events() <-chan recon.Event
	Err() error
	Close() error
}

// EventBuffer is the capacity engines use for their event channels.
const EventBuffer = 64
