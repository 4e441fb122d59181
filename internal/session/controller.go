// Package session owns the lifetime of a reconstruction session: it checks
// that the host is supported, creates the session, submits the run's single
// request and releases everything once the event stream has been drained.
//
// Every failure here is fatal. Host problems are reported as
// *errors.EnvironmentError and engine refusals as *errors.SessionError; both
// map to exit code 1.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/Iron-Ham/photogram/internal/engine"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/logging"
	"github.com/Iron-Ham/photogram/internal/recon"
)

// Controller creates and releases sessions on one engine.
type Controller struct {
	engine  engine.Engine
	images  glob.Glob
	logger  *logging.Logger
	newUUID func() string
}

// NewController creates a Controller. pattern is the glob used to count image
// files in the input folder; it is matched against lower-cased base names.
func NewController(eng engine.Engine, pattern string, logger *logging.Logger) (*Controller, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid image pattern %q", pattern)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Controller{
		engine:  eng,
		images:  g,
		logger:  logger,
		newUUID: uuid.NewString,
	}, nil
}

// Handle is a created session together with the resources the controller
// holds for it. The embedded engine.Session stays referenced until Release.
type Handle struct {
	engine.Session

	ID     string
	Input  string
	Logger *logging.Logger

	lock        *Lock
	mu          sync.Mutex
	submitted   bool
	releaseOnce sync.Once
	releaseErr  error
}

// CreateOption customizes Create.
type CreateOption func(*createOptions)

type createOptions struct {
	lockOutput string
}

// WithOutputLock makes Create take the lock for output before the session
// starts, so two runs cannot write the same model.
func WithOutputLock(output string) CreateOption {
	return func(o *createOptions) { o.lockOutput = output }
}

// Create checks host support and creates a session bound to inputFolder and
// cfg. No session is created when the host is unsupported.
func (c *Controller) Create(ctx context.Context, inputFolder string, cfg recon.Configuration, opts ...CreateOption) (*Handle, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	id := c.newUUID()
	logger := c.logger.WithSession(id)
	log := logger.WithPhase("session")

	if err := c.engine.CheckSupport(ctx); err != nil {
		log.Error("reconstruction not supported", "engine", string(c.engine.Name()), "error", err)
		return nil, errors.NewEnvironmentError("host cannot run reconstruction", err).WithEngine(string(c.engine.Name()))
	}

	input, err := filepath.Abs(inputFolder)
	if err != nil {
		return nil, errors.NewSessionError("failed to resolve input folder", err).WithSessionID(id).WithInput(inputFolder)
	}
	c.logInput(log, input)

	var lock *Lock
	if o.lockOutput != "" {
		lock, err = AcquireLock(o.lockOutput, id, log)
		if err != nil {
			return nil, errors.NewSessionError("failed to lock output", err).WithSessionID(id).WithInput(input)
		}
	}

	sess, err := c.engine.NewSession(ctx, input, cfg)
	if err != nil {
		_ = lock.Release()
		log.Error("failed to create session", "input", input, "error", err)
		return nil, errors.NewSessionError("failed to create session", fmt.Errorf("%w: %w", errors.ErrSessionCreate, err)).
			WithSessionID(id).
			WithInput(input)
	}

	log.Info("session created",
		"input", input,
		"sample_ordering", string(cfg.SampleOrdering),
		"feature_sensitivity", string(cfg.FeatureSensitivity),
	)

	return &Handle{
		Session: sess,
		ID:      id,
		Input:   input,
		Logger:  logger,
		lock:    lock,
	}, nil
}

// logInput reports how many files in input match the image pattern. The
// engine validates the folder's contents; the count is informational only.
func (c *Controller) logInput(log *logging.Logger, input string) {
	entries, err := os.ReadDir(input)
	if err != nil {
		log.Warn("cannot read input folder", "input", input, "error", err)
		return
	}

	images := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() && c.images.Match(strings.ToLower(entry.Name())) {
			images++
		}
	}
	if images == 0 {
		log.Warn("input folder contains no recognized images", "input", input)
		return
	}
	log.Info("input folder scanned", "input", input, "images", images)
}

// Submit queues requests on the session. A handle accepts exactly one
// submission; it returns once the engine has accepted the requests.
func (c *Controller) Submit(ctx context.Context, h *Handle, requests []recon.Request) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.submitted {
		return errors.NewSessionError("session already has a submission", errors.ErrSubmit).WithSessionID(h.ID)
	}
	if len(requests) == 0 {
		return errors.NewSessionError("no requests to submit", errors.ErrSubmit).WithSessionID(h.ID)
	}
	h.submitted = true

	log := h.Logger.WithPhase("session")
	if err := h.Session.Process(ctx, requests); err != nil {
		log.Error("failed to submit requests", "error", err)
		return errors.NewSessionError("failed to submit requests", fmt.Errorf("%w: %w", errors.ErrSubmit, err)).
			WithSessionID(h.ID).
			WithInput(h.Input)
	}

	for _, r := range requests {
		log.Info("request submitted", "request", r.String())
	}
	return nil
}

// Cancel asks the engine to stop. The event stream still closes normally, so
// observers keep draining until it does.
func (c *Controller) Cancel(h *Handle) {
	h.Logger.WithPhase("session").Warn("cancelling session")
	go func() { _ = h.Session.Close() }()
}

// Release closes the session and drops the output lock. Call it only after
// the event stream has been drained. Safe to call multiple times.
func (c *Controller) Release(h *Handle) error {
	h.releaseOnce.Do(func() {
		closeErr := h.Session.Close()
		lockErr := h.lock.Release()
		h.releaseErr = errors.Join(closeErr, lockErr)
		h.Logger.WithPhase("session").Debug("session released", "error", h.releaseErr)
	})
	return h.releaseErr
}
