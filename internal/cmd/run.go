package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/photogram/internal/config"
	"github.com/Iron-Ham/photogram/internal/console"
	"github.com/Iron-Ham/photogram/internal/engine"
	"github.com/Iron-Ham/photogram/internal/event"
	"github.com/Iron-Ham/photogram/internal/logging"
	"github.com/Iron-Ham/photogram/internal/observer"
	"github.com/Iron-Ham/photogram/internal/recon"
	"github.com/Iron-Ham/photogram/internal/session"
)

func (a *app) runReconstruct(cmd *cobra.Command, args []string) error {
	resolved, err := recon.Resolve(recon.Options{
		InputFolder:        args[0],
		OutputFile:         args[1],
		Detail:             flagValue(cmd.Flags(), "detail"),
		SampleOrdering:     flagValue(cmd.Flags(), "sampleOrdering"),
		FeatureSensitivity: flagValue(cmd.Flags(), "featureSensitivity"),
	})
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	con := console.New(console.Options{
		Out:         a.stdout,
		Mode:        console.Mode(cfg.Console.Mode),
		ProgressBar: cfg.Console.ProgressBar,
	})

	logger, err := newLogger(cfg, a, con.Enabled())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := a.reconstruct(ctx, cfg, resolved, con, logger)
	a.exitCode = code
	return err
}

// reconstruct runs one session to completion and returns the observer's exit
// code. Any returned error aborts the run before the stream is drained.
func (a *app) reconstruct(ctx context.Context, cfg *config.Config, resolved recon.Resolved, con *console.Console, logger *logging.Logger) (int, error) {
	log := logger.WithPhase("resolve")
	log.Debug("arguments resolved",
		"input", resolved.InputFolder,
		"output", resolved.OutputFile,
		"request", resolved.Request().String(),
	)

	eng, err := newEngine(cfg, logger)
	if err != nil {
		log.Error("failed to set up engine", "engine", cfg.Engine.Name, "error", err)
		return 0, err
	}

	ctrl, err := session.NewController(eng, cfg.Input.Pattern, logger)
	if err != nil {
		return 0, err
	}

	output, err := filepath.Abs(resolved.OutputFile)
	if err != nil {
		output = resolved.OutputFile
	}

	h, err := ctrl.Create(ctx, resolved.InputFolder, resolved.Configuration, session.WithOutputLock(output))
	if err != nil {
		return 0, err
	}
	// The session must outlive the drain; releasing it cancels outstanding work
	defer func() {
		if err := ctrl.Release(h); err != nil {
			h.Logger.Warn("failed to release session", "error", err)
		}
	}()

	bus := event.NewBus()
	bus.SetPanicHandler(func(eventType string, recovered any, stack []byte) {
		h.Logger.Error("event handler panicked", "event_type", eventType, "panic", recovered, "stack", string(stack))
	})
	con.Attach(bus)
	defer con.Detach(bus)

	obs := observer.New(observer.Options{
		SessionID: h.ID,
		Output:    resolved.OutputFile,
		Export:    exportOptions(cfg, eng, output, h.Logger),
		Bus:       bus,
		Logger:    h.Logger,
	})

	if err := ctrl.Submit(ctx, h, []recon.Request{resolved.Request()}); err != nil {
		return 0, err
	}
	obs.Start(ctx, h)

	drained := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			ctrl.Cancel(h)
		case <-drained:
		}
	}()

	out := obs.Wait()
	close(drained)

	h.Logger.Info("run finished",
		"reason", string(out.Reason),
		"exit_code", out.Code,
		"events", out.Events,
		"request_errors", out.RequestErrors,
	)
	return out.Code, nil
}

func exportOptions(cfg *config.Config, eng engine.Engine, output string, logger *logging.Logger) observer.ExportOptions {
	dst := cfg.Export.ResolvePath(output)
	if abs, err := filepath.Abs(dst); err == nil {
		dst = abs
	}
	opts := observer.ExportOptions{
		Enabled:     cfg.Export.Enabled,
		Destination: dst,
		Loader:      newLoader(cfg, eng),
		WaitTimeout: cfg.Export.WaitTimeout(),
	}
	if opts.Enabled && filepath.Clean(opts.Destination) == filepath.Clean(output) {
		logger.WithPhase("export").Warn("export destination equals the output, export disabled", "path", output)
		opts.Enabled = false
	}
	return opts
}

// logLevel resolves logging.level. With auto, informational entries are kept
// unless the console is already showing them on the same terminal.
func logLevel(cfg *config.Config, consoleEnabled bool) string {
	if cfg.Logging.Level != config.LogLevelAuto {
		return cfg.Logging.Level
	}
	if consoleEnabled && cfg.Logging.Dir == "" {
		return logging.LevelWarn
	}
	return logging.LevelInfo
}

func newLogger(cfg *config.Config, a *app, consoleEnabled bool) (*logging.Logger, error) {
	return logging.New(logging.Options{
		Dir:    cfg.Logging.Dir,
		Level:  logLevel(cfg, consoleEnabled),
		Format: cfg.Logging.Format,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
		Writer: a.stderr,
	})
}
