package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string // empty means valid
	}{
		{
			name:      "unknown engine",
			mutate:    func(c *Config) { c.Engine.Name = "cloud" },
			wantField: "engine.name",
		},
		{
			name:      "process engine without command",
			mutate:    func(c *Config) { c.Engine.Command = "  " },
			wantField: "engine.command",
		},
		{
			name: "replay engine without script",
			mutate: func(c *Config) {
				c.Engine.Name = "replay"
			},
			wantField: "engine.script",
		},
		{
			name: "replay engine with script",
			mutate: func(c *Config) {
				c.Engine.Name = "replay"
				c.Engine.Script = "events.yaml"
			},
		},
		{
			name:      "negative probe timeout",
			mutate:    func(c *Config) { c.Engine.ProbeTimeoutSeconds = -1 },
			wantField: "engine.probe_timeout_seconds",
		},
		{
			name:      "grace period too long",
			mutate:    func(c *Config) { c.Engine.GracePeriodSeconds = 7200 },
			wantField: "engine.grace_period_seconds",
		},
		{
			name:      "broken input pattern",
			mutate:    func(c *Config) { c.Input.Pattern = "*.{jpg" },
			wantField: "input.pattern",
		},
		{
			name:      "empty input pattern",
			mutate:    func(c *Config) { c.Input.Pattern = "" },
			wantField: "input.pattern",
		},
		{
			name:      "unknown converter",
			mutate:    func(c *Config) { c.Export.Converter = "blender" },
			wantField: "export.converter",
		},
		{
			name:      "format with dot",
			mutate:    func(c *Config) { c.Export.Format = ".obj" },
			wantField: "export.format",
		},
		{
			name: "format ignored when path is explicit",
			mutate: func(c *Config) {
				c.Export.Format = ""
				c.Export.Path = "/tmp/out.obj"
			},
		},
		{
			name: "disabled export skips checks",
			mutate: func(c *Config) {
				c.Export.Enabled = false
				c.Export.Converter = "nope"
			},
		},
		{
			name:      "negative wait timeout",
			mutate:    func(c *Config) { c.Export.WaitTimeoutSeconds = -5 },
			wantField: "export.wait_timeout_seconds",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
		{
			name:      "upper-case log level accepted",
			mutate:    func(c *Config) { c.Logging.Level = "DEBUG" },
			wantField: "",
		},
		{
			name:      "bad log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantField: "logging.format",
		},
		{
			name:      "negative max size",
			mutate:    func(c *Config) { c.Logging.MaxSizeMB = -1 },
			wantField: "logging.max_size_mb",
		},
		{
			name:      "negative max backups",
			mutate:    func(c *Config) { c.Logging.MaxBackups = -1 },
			wantField: "logging.max_backups",
		},
		{
			name:      "bad console mode",
			mutate:    func(c *Config) { c.Console.Mode = "sometimes" },
			wantField: "console.mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}

			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for %s, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Engine.Name = "bogus"
	cfg.Logging.Level = "bogus"
	cfg.Console.Mode = "bogus"

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}
