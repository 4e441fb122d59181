package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.command")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// formatRegex restricts export formats to plain file extensions
var formatRegex = regexp.MustCompile(`^[a-z0-9]+$`)

// ValidEngines returns the list of engine implementations
func ValidEngines() []string {
	return []string{"process", "replay"}
}

// ValidConverters returns the list of export converters
func ValidConverters() []string {
	return []string{"builtin", "engine"}
}

// LogLevelAuto picks the log level from whether the console is drawing.
const LogLevelAuto = "auto"

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{LogLevelAuto, "debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid stderr log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// ValidConsoleModes returns the list of valid console modes
func ValidConsoleModes() []string {
	return []string{"auto", "always", "never"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateInput()...)
	errors = append(errors, c.validateExport()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateConsole()...)

	return errors
}

func oneOf(field, value string, allowed []string) []ValidationError {
	if slices.Contains(allowed, strings.ToLower(value)) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}}
}

func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	errors = append(errors, oneOf("engine.name", c.Engine.Name, ValidEngines())...)

	switch strings.ToLower(c.Engine.Name) {
	case "process":
		if strings.TrimSpace(c.Engine.Command) == "" {
			errors = append(errors, ValidationError{
				Field:   "engine.command",
				Value:   c.Engine.Command,
				Message: "is required for the process engine",
			})
		}
	case "replay":
		if strings.TrimSpace(c.Engine.Script) == "" {
			errors = append(errors, ValidationError{
				Field:   "engine.script",
				Value:   c.Engine.Script,
				Message: "is required for the replay engine",
			})
		}
	}

	const maxTimeoutSeconds = 3600
	timeouts := []struct {
		field string
		value int
	}{
		{"engine.probe_timeout_seconds", c.Engine.ProbeTimeoutSeconds},
		{"engine.start_timeout_seconds", c.Engine.StartTimeoutSeconds},
		{"engine.grace_period_seconds", c.Engine.GracePeriodSeconds},
	}
	for _, to := range timeouts {
		if to.value < 0 || to.value > maxTimeoutSeconds {
			errors = append(errors, ValidationError{
				Field:   to.field,
				Value:   to.value,
				Message: fmt.Sprintf("must be between 0 and %d", maxTimeoutSeconds),
			})
		}
	}

	return errors
}

func (c *Config) validateInput() []ValidationError {
	if _, err := glob.Compile(c.Input.Pattern); err != nil || c.Input.Pattern == "" {
		return []ValidationError{{
			Field:   "input.pattern",
			Value:   c.Input.Pattern,
			Message: "must be a valid glob pattern",
		}}
	}
	return nil
}

func (c *Config) validateExport() []ValidationError {
	var errors []ValidationError

	if !c.Export.Enabled {
		return nil
	}

	errors = append(errors, oneOf("export.converter", c.Export.Converter, ValidConverters())...)

	if c.Export.Path == "" && !formatRegex.MatchString(c.Export.Format) {
		errors = append(errors, ValidationError{
			Field:   "export.format",
			Value:   c.Export.Format,
			Message: "must be a lower-case file extension without a dot",
		})
	}

	if c.Export.WaitTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "export.wait_timeout_seconds",
			Value:   c.Export.WaitTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	errors = append(errors, oneOf("logging.level", c.Logging.Level, ValidLogLevels())...)
	errors = append(errors, oneOf("logging.format", c.Logging.Format, ValidLogFormats())...)

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateConsole() []ValidationError {
	return oneOf("console.mode", c.Console.Mode, ValidConsoleModes())
}
