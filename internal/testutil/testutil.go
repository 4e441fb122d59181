// Package testutil provides testing utilities for photogram tests: a scripted
// engine double, log capture and input folder fixtures.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Iron-Ham/photogram/internal/engine"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/logging"
	"github.com/Iron-Ham/photogram/internal/recon"
)

// FakeEngine is an engine.Engine whose behavior is set by its fields.
type FakeEngine struct {
	// SupportErr is returned by CheckSupport
	SupportErr error
	// CreateErr is returned by NewSession
	CreateErr error
	// Session is returned by NewSession; a fresh one is made when nil
	Session *FakeSession

	mu             sync.Mutex
	supportChecks  int
	sessionInputs  []string
	sessionConfigs []recon.Configuration
}

// NewFakeEngine creates an engine whose sessions play events.
func NewFakeEngine(events ...recon.Event) *FakeEngine {
	return &FakeEngine{Session: NewFakeSession(events...)}
}

func (e *FakeEngine) Name() engine.Name { return "fake" }

func (e *FakeEngine) CheckSupport(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supportChecks++
	return e.SupportErr
}

func (e *FakeEngine) NewSession(ctx context.Context, input string, cfg recon.Configuration) (engine.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionInputs = append(e.sessionInputs, input)
	e.sessionConfigs = append(e.sessionConfigs, cfg)
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	if e.Session == nil {
		e.Session = NewFakeSession()
	}
	return e.Session, nil
}

// SupportChecks returns how many times CheckSupport was called.
func (e *FakeEngine) SupportChecks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.supportChecks
}

// SessionInputs returns the input folders passed to NewSession.
func (e *FakeEngine) SessionInputs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.sessionInputs...)
}

// SessionConfigs returns the configurations passed to NewSession.
func (e *FakeEngine) SessionConfigs() []recon.Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recon.Configuration(nil), e.sessionConfigs...)
}

// FakeSession plays a fixed event script after Process is called.
type FakeSession struct {
	// Script is played in order by Process
	Script []recon.Event
	// StreamErr is reported by Err after the script
	StreamErr error
	// SubmitErr is returned by Process
	SubmitErr error
	// Hold keeps the stream open after the script until Close, which then
	// emits ProcessingCancelled
	Hold bool

	events    chan recon.Event
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	started     bool
	closed      bool
	err         error
	submissions [][]recon.Request
}

// NewFakeSession creates a session that plays events.
func NewFakeSession(events ...recon.Event) *FakeSession {
	return &FakeSession{
		Script: events,
		events: make(chan recon.Event, engine.EventBuffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *FakeSession) Process(ctx context.Context, requests []recon.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSessionClosed
	}
	s.submissions = append(s.submissions, requests)
	if s.SubmitErr != nil {
		return s.SubmitErr
	}
	if !s.started {
		s.started = true
		go s.play()
	}
	return nil
}

func (s *FakeSession) play() {
	defer close(s.done)
	defer close(s.events)

	for _, ev := range s.Script {
		select {
		case s.events <- ev:
		case <-s.stop:
			return
		}
	}
	if s.Hold {
		<-s.stop
		select {
		case s.events <- recon.ProcessingCancelled{}:
		default:
		}
		return
	}

	s.mu.Lock()
	s.err = s.StreamErr
	s.mu.Unlock()
}

func (s *FakeSession) Events() <-chan recon.Event { return s.events }

func (s *FakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *FakeSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		s.mu.Unlock()

		close(s.stop)
		if started {
			<-s.done
		} else {
			close(s.events)
		}
	})
	return nil
}

// Submissions returns the request lists passed to Process.
func (s *FakeSession) Submissions() [][]recon.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]recon.Request(nil), s.submissions...)
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SafeBuffer is a bytes.Buffer safe for concurrent writes and reads.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogger returns a debug-level text logger writing to the returned
// buffer.
func CaptureLogger(t *testing.T) (*logging.Logger, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger, err := logging.New(logging.Options{
		Level:  logging.LevelDebug,
		Format: logging.FormatText,
		Writer: buf,
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger, buf
}

// WriteImages creates empty files named names in a new temporary folder and
// returns its path.
func WriteImages(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return dir
}
