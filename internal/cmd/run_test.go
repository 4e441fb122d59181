package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/photogram/internal/config"
	"github.com/Iron-Ham/photogram/internal/logging"
)

func TestExportOptions(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	output := filepath.Join(dir, "model.stl")

	tests := []struct {
		name        string
		path        string
		format      string
		wantEnabled bool
		wantDst     string
	}{
		{name: "derived from output", format: "ply", wantEnabled: true, wantDst: filepath.Join(dir, "model.ply")},
		{name: "relative path is made absolute", path: "aux/model.obj", wantEnabled: true, wantDst: filepath.Join(dir, "aux", "model.obj")},
		{name: "relative path naming the output", path: "model.stl", wantEnabled: false, wantDst: output},
		{name: "dotted relative path naming the output", path: "./model.stl", wantEnabled: false, wantDst: output},
		{name: "absolute path naming the output", path: output, wantEnabled: false, wantDst: output},
		{name: "derived path equal to the output", format: "stl", wantEnabled: false, wantDst: output},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Export.Path = tt.path
			if tt.format != "" {
				cfg.Export.Format = tt.format
			}

			opts := exportOptions(cfg, nil, output, logging.NopLogger())
			if opts.Enabled != tt.wantEnabled {
				t.Errorf("Enabled = %v, want %v", opts.Enabled, tt.wantEnabled)
			}
			if opts.Destination != tt.wantDst {
				t.Errorf("Destination = %q, want %q", opts.Destination, tt.wantDst)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name           string
		level          string
		dir            string
		consoleEnabled bool
		want           string
	}{
		{name: "auto with console", level: config.LogLevelAuto, consoleEnabled: true, want: logging.LevelWarn},
		{name: "auto without console", level: config.LogLevelAuto, want: logging.LevelInfo},
		{name: "auto logging to a file", level: config.LogLevelAuto, dir: "/var/log/photogram", consoleEnabled: true, want: logging.LevelInfo},
		{name: "explicit level wins", level: "error", want: "error"},
		{name: "explicit level with console", level: "debug", consoleEnabled: true, want: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Level = tt.level
			cfg.Logging.Dir = tt.dir
			if got := logLevel(cfg, tt.consoleEnabled); got != tt.want {
				t.Errorf("logLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it during cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) error = %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}
