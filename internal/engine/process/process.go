// Package process drives an external reconstruction engine executable.
//
// The executable is invoked with a subcommand after the configured args:
//
//	<command> <args...> probe
//	<command> <args...> reconstruct --input DIR --sample-ordering S --feature-sensitivity F
//	<command> <args...> export [--resolve-textures] SRC DST
//
// probe exits 0 when the host is supported, 3 for unsupported hardware and 4
// for an unsupported platform version. reconstruct writes a ready (or fatal)
// handshake followed by one JSON event per line on stdout, and reads
// {"op":"process","requests":[...]} lines on stdin.
package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"

	"github.com/Iron-Ham/photogram/internal/config"
	"github.com/Iron-Ham/photogram/internal/engine"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/logging"
	"github.com/Iron-Ham/photogram/internal/recon"
)

// Probe exit codes.
const (
	ExitUnsupportedHardware = 3
	ExitUnsupportedPlatform = 4
)

// maxLineSize bounds one event line.
const maxLineSize = 1 << 20

// maxTailLen bounds the stderr line quoted in exit errors.
const maxTailLen = 200

// Options configures an Engine.
type Options struct {
	Command      string
	Args         []string
	UsePTY       bool
	ProbeTimeout time.Duration
	StartTimeout time.Duration
	GracePeriod  time.Duration
}

// OptionsFromConfig converts the engine section of the configuration.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		Command:      cfg.Command,
		Args:         cfg.Args,
		UsePTY:       cfg.UsePTY,
		ProbeTimeout: cfg.ProbeTimeout(),
		StartTimeout: cfg.StartTimeout(),
		GracePeriod:  cfg.GracePeriod(),
	}
}

// Engine launches one engine process per session.
type Engine struct {
	opts   Options
	logger *logging.Logger
}

// New creates an Engine. A nil logger discards engine diagnostics.
func New(opts Options, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{opts: opts, logger: logger.With("engine", string(engine.NameProcess))}
}

func (e *Engine) Name() engine.Name { return engine.NameProcess }

func (e *Engine) args(sub ...string) []string {
	out := make([]string, 0, len(e.opts.Args)+len(sub))
	out = append(out, e.opts.Args...)
	return append(out, sub...)
}

// withTimeout applies d to ctx unless d is zero.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// CheckSupport runs the probe subcommand and maps its exit code.
func (e *Engine) CheckSupport(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, e.opts.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.opts.Command, e.args("probe")...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	detail := strings.TrimSpace(string(out))
	e.logger.Debug("probe failed", "error", err, "output", detail)

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		switch exitErr.ExitCode() {
		case ExitUnsupportedHardware:
			return errors.ErrUnsupportedHardware
		case ExitUnsupportedPlatform:
			return errors.ErrUnsupportedPlatform
		}
		return fmt.Errorf("%w: probe exited with status %d: %s", errors.ErrEngineUnavailable, exitErr.ExitCode(), detail)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: probe timed out after %s", errors.ErrEngineUnavailable, e.opts.ProbeTimeout)
	}
	return fmt.Errorf("%w: %v", errors.ErrEngineUnavailable, err)
}

// NewSession starts the reconstruct subcommand and waits for its handshake.
func (e *Engine) NewSession(ctx context.Context, input string, cfg recon.Configuration) (engine.Session, error) {
	cmd := exec.Command(e.opts.Command, e.args(
		"reconstruct",
		"--input", input,
		"--sample-ordering", string(cfg.SampleOrdering),
		"--feature-sensitivity", string(cfg.FeatureSensitivity),
	)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	var (
		stdout io.ReadCloser
		tty    *os.File
	)
	if e.opts.UsePTY {
		ptmx, t, err := pty.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open pty: %w", err)
		}
		cmd.Stdout = t
		stdout, tty = ptmx, t
	} else {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		if tty != nil {
			_ = tty.Close()
			_ = stdout.Close()
		}
		return nil, fmt.Errorf("failed to start %s: %w", e.opts.Command, err)
	}
	if tty != nil {
		// The child holds its own copy; ours would keep the pty open after exit
		_ = tty.Close()
	}

	s := newSession(cmd, stdin, stdout, e.opts.UsePTY, e.opts.GracePeriod, e.logger.With("pid", cmd.Process.Pid))
	go s.drainStderr(stderr)

	lines := bufio.NewScanner(stdout)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	ready := make(chan error, 1)
	go s.run(lines, ready)

	timeout := e.opts.StartTimeout
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err := <-ready:
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case <-timer:
		_ = s.Close()
		return nil, fmt.Errorf("engine did not become ready within %s", timeout)
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}
}
