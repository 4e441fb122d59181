package process

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/Iron-Ham/photogram/internal/engine"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/logging"
	"github.com/Iron-Ham/photogram/internal/recon"
	"github.com/Iron-Ham/photogram/internal/util"
)

// command is one line written to the engine's stdin.
type command struct {
	Op       string          `json:"op"`
	Requests []recon.Request `json:"requests,omitempty"`
}

// Session is a running reconstruct subcommand.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	pty    bool
	grace  time.Duration
	logger *logging.Logger

	events     chan recon.Event
	stop       chan struct{}
	done       chan struct{}
	stderrDone chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	mu         sync.Mutex
	closing    bool
	terminal   bool
	err        error
	stderrTail string
}

func newSession(cmd *exec.Cmd, stdin io.WriteCloser, stdout io.ReadCloser, usePTY bool, grace time.Duration, logger *logging.Logger) *Session {
	return &Session{
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		pty:        usePTY,
		grace:      grace,
		logger:     logger,
		events:     make(chan recon.Event, engine.EventBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		stderrDone: make(chan struct{}),
	}
}

// Process writes the requests to the engine. It returns once the line is
// written; the engine reports progress on the event stream.
func (s *Session) Process(_ context.Context, requests []recon.Request) error {
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		return errors.ErrSessionClosed
	}

	line, err := json.Marshal(command{Op: "process", Requests: requests})
	if err != nil {
		return fmt.Errorf("failed to encode requests: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.stdin.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write to engine: %w", err)
	}
	return nil
}

func (s *Session) Events() <-chan recon.Event { return s.events }

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close interrupts the engine and kills it if it has not exited after the
// grace period. It returns once the event stream is closed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		close(s.stop)

		s.writeMu.Lock()
		_ = s.stdin.Close()
		s.writeMu.Unlock()

		select {
		case <-s.done:
			return
		default:
		}

		_ = s.cmd.Process.Signal(os.Interrupt)
		grace := time.NewTimer(s.grace)
		defer grace.Stop()
		select {
		case <-s.done:
		case <-grace.C:
			s.logger.Warn("engine did not exit after interrupt, killing", "grace_period", s.grace)
			_ = s.cmd.Process.Kill()
			<-s.done
		}
	})
	return nil
}

// run reads the handshake and then the event stream until stdout closes.
// ready receives exactly one value: nil after a ready handshake or the
// reason the session could not start.
func (s *Session) run(lines *bufio.Scanner, ready chan<- error) {
	defer close(s.done)
	defer close(s.events)

	started := false
	var cause error

	for lines.Scan() {
		rec, ok, err := engine.ParseLine(lines.Bytes())
		if err != nil {
			cause = err
			s.abort()
			break
		}
		if !ok {
			continue
		}

		if !started {
			switch rec.Event {
			case engine.HandshakeReady:
				started = true
				ready <- nil
				continue
			case engine.HandshakeFatal:
				cause = fmt.Errorf("engine refused session: %s", rec.Error)
			default:
				cause = fmt.Errorf("expected %q handshake, got %q", engine.HandshakeReady, rec.Event)
			}
			s.abort()
			break
		}

		if rec.IsHandshake() {
			s.logger.Debug("ignoring handshake record after start", "event", rec.Event)
			continue
		}

		ev, err := engine.Decode(rec)
		if err != nil {
			cause = err
			s.abort()
			break
		}
		if s.emit(ev) && isTerminal(ev) {
			s.mu.Lock()
			s.terminal = true
			s.mu.Unlock()
		}
	}

	if err := lines.Err(); err != nil && cause == nil && !(s.pty && errors.Is(err, syscall.EIO)) {
		cause = err
	}

	waitErr := s.wait()

	if !started {
		if cause == nil {
			cause = fmt.Errorf("engine exited before handshake: %s", s.exitDetail(waitErr))
		}
		ready <- cause
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.terminal:
	case cause != nil:
		s.err = errors.NewStreamError(cause)
	case s.closing:
		// A cancelled engine may exit without saying so
		select {
		case s.events <- recon.ProcessingCancelled{}:
		default:
			s.logger.Debug("cancellation event dropped, event buffer full", "buffer", cap(s.events))
		}
	case waitErr != nil:
		s.err = errors.NewStreamError(fmt.Errorf("engine exited: %s", s.exitDetail(waitErr)))
	}
}

// emit delivers ev unless Close was called and nobody is draining.
func (s *Session) emit(ev recon.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.stop:
		select {
		case s.events <- ev:
			return true
		default:
			return false
		}
	}
}

// abort kills the engine and discards the rest of its output.
func (s *Session) abort() {
	_ = s.cmd.Process.Kill()
	_, _ = io.Copy(io.Discard, s.stdout)
}

// wait reaps the engine once its output is fully read.
func (s *Session) wait() error {
	<-s.stderrDone
	err := s.cmd.Wait()
	if s.pty {
		_ = s.stdout.Close()
	}
	s.logger.Debug("engine exited", "error", err)
	return err
}

func (s *Session) exitDetail(waitErr error) string {
	s.mu.Lock()
	tail := s.stderrTail
	s.mu.Unlock()

	status := "status 0"
	if waitErr != nil {
		status = waitErr.Error()
	}
	if tail == "" {
		return status
	}
	return fmt.Sprintf("%s: %s", status, tail)
}

// drainStderr logs the engine's stderr and keeps its last line for error
// messages.
func (s *Session) drainStderr(r io.Reader) {
	defer close(s.stderrDone)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		s.logger.Debug("engine stderr", "line", line)
		s.mu.Lock()
		s.stderrTail = util.Truncate(line, maxTailLen)
		s.mu.Unlock()
	}
}

func isTerminal(ev recon.Event) bool {
	switch ev.Kind() {
	case recon.EventProcessingComplete, recon.EventProcessingCancelled:
		return true
	}
	return false
}
