package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/photogram/internal/engine"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/logging"
	"github.com/Iron-Ham/photogram/internal/recon"
)

// Engine replays a Script.
type Engine struct {
	script *Script
	logger *logging.Logger
}

// New creates an engine for an already parsed script.
func New(script *Script) *Engine {
	return &Engine{script: script, logger: logging.NopLogger()}
}

// WithLogger sets the logger passed to new sessions and returns e.
func (e *Engine) WithLogger(logger *logging.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Open loads the script at path. A relative model path in the script is
// resolved against the script's directory.
func Open(path string) (*Engine, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	if s.Model != "" && !filepath.IsAbs(s.Model) {
		s.Model = filepath.Join(filepath.Dir(path), s.Model)
	}
	return New(s), nil
}

func (e *Engine) Name() engine.Name { return engine.NameReplay }

// CheckSupport honors the script's supported and unsupported fields.
func (e *Engine) CheckSupport(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.script.IsSupported() {
		return nil
	}
	if e.script.Unsupported == UnsupportedPlatform {
		return errors.ErrUnsupportedPlatform
	}
	return errors.ErrUnsupportedHardware
}

// NewSession fails when the script says so or when input is not a directory.
func (e *Engine) NewSession(ctx context.Context, input string, cfg recon.Configuration) (engine.Session, error) {
	if e.script.FailCreate != "" {
		return nil, errors.New(e.script.FailCreate)
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", input)
	}

	sctx, cancel := context.WithCancel(context.Background())
	return &Session{
		script: e.script,
		input:  input,
		config: cfg,
		logger: e.logger,
		events: make(chan recon.Event, engine.EventBuffer),
		done:   make(chan struct{}),
		ctx:    sctx,
		cancel: cancel,
	}, nil
}

// Session plays the script once Process is called.
type Session struct {
	script *Script
	input  string
	config recon.Configuration
	logger *logging.Logger

	events chan recon.Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	closed   bool
	terminal bool
	err      error
}

// Configuration returns the configuration the session was created with.
func (s *Session) Configuration() recon.Configuration { return s.config }

// Process starts playback. A session accepts a single submission.
func (s *Session) Process(ctx context.Context, requests []recon.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return errors.ErrSessionClosed
	case s.started:
		return fmt.Errorf("replay session already processing")
	case len(requests) == 0:
		return fmt.Errorf("no requests")
	case s.script.FailSubmit != "":
		return errors.New(s.script.FailSubmit)
	}

	s.started = true
	go s.play(requests)
	return nil
}

func (s *Session) Events() <-chan recon.Event { return s.events }

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops playback and waits for the stream to close.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	s.cancel()
	if started {
		<-s.done
	} else {
		close(s.events)
	}
	return nil
}

func (s *Session) play(requests []recon.Request) {
	defer close(s.done)
	defer close(s.events)

	for _, step := range s.script.Events {
		if step.Delay > 0 {
			timer := time.NewTimer(time.Duration(step.Delay))
			select {
			case <-s.ctx.Done():
				timer.Stop()
				s.cancelled()
				return
			case <-timer.C:
			}
		}
		if s.ctx.Err() != nil {
			s.cancelled()
			return
		}

		if step.StreamError != "" {
			s.fail(errors.NewStreamError(errors.New(step.StreamError)))
			return
		}

		ev, err := engine.Decode(step.Record)
		if err != nil {
			s.fail(errors.NewStreamError(err))
			return
		}
		ev = s.bind(ev, requests[0])

		select {
		case s.events <- ev:
		case <-s.ctx.Done():
			s.cancelled()
			return
		}

		if ev.Kind() == recon.EventProcessingComplete || ev.Kind() == recon.EventProcessingCancelled {
			s.mu.Lock()
			s.terminal = true
			s.mu.Unlock()
		}
	}
}

// bind fills in the submitted request for steps that omit one and writes the
// scripted model before announcing a completed request.
func (s *Session) bind(ev recon.Event, req recon.Request) recon.Event {
	switch e := ev.(type) {
	case recon.RequestProgress:
		if e.Request.Kind == "" {
			e.Request = req
		}
		return e
	case recon.RequestProgressInfo:
		if e.Request.Kind == "" {
			e.Request = req
		}
		return e
	case recon.RequestError:
		if e.Request.Kind == "" {
			e.Request = req
			e.Err = errors.NewRequestError(req.String(), errorDetail(e.Err))
		}
		return e
	case recon.RequestComplete:
		if e.Request.Kind == "" {
			e.Request = req
		}
		if e.Result.Kind == "" {
			e.Result = recon.Result{Kind: recon.KindModelFile, Path: e.Request.Path}
		}
		if s.script.Model != "" && e.Result.IsModelFile() {
			if err := copyFile(s.script.Model, e.Result.Path); err != nil {
				return recon.RequestError{Request: e.Request, Err: errors.NewRequestError(e.Request.String(), err.Error())}
			}
		}
		return e
	default:
		return ev
	}
}

func errorDetail(err error) string {
	var re *errors.RequestError
	if errors.As(err, &re) {
		return re.Detail()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// cancelled emits ProcessingCancelled unless the stream already ended. The
// send never blocks; a full buffer means nobody is draining.
func (s *Session) cancelled() {
	s.mu.Lock()
	terminal := s.terminal
	s.mu.Unlock()
	if terminal {
		return
	}
	select {
	case s.events <- recon.ProcessingCancelled{}:
	default:
		s.logger.Debug("cancellation event dropped, event buffer full", "buffer", cap(s.events))
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
