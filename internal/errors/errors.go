// Package errors provides centralized error definitions and error handling utilities
// for photogram. It defines the error taxonomy of a reconstruction run, error
// constructors with context wrapping, and classification helpers that decide
// whether a failure aborts the process.
//
// # Error Types
//
// Errors that abort the run before the event stream is drained:
//   - OptionError: an enumerated command-line value is not in its allowed set
//   - EnvironmentError: the host or hardware cannot run the reconstruction engine
//   - SessionError: the engine refused to create a session or accept a request
//
// Errors that are reported but never change control flow:
//   - RequestError: a single request failed inside the engine
//   - StreamError: the event stream itself failed
//   - ExportError: the post-processing asset export failed
//
// # Usage
//
//	err := errors.NewOptionError("detail", "ultra", []string{"preview", "full"})
//	if errors.Is(err, errors.ErrInvalidOption) { ... }
//
//	var envErr *errors.EnvironmentError
//	if errors.As(err, &envErr) { ... }
//
//	os.Exit(errors.ExitCode(err))
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Argument sentinel errors
var (
	// ErrInvalidOption indicates an enumerated option received a value outside its set.
	ErrInvalidOption = New("invalid option value")
	// ErrMissingArgument indicates a required positional argument was empty.
	ErrMissingArgument = New("missing argument")
	// ErrUsage indicates malformed command-line syntax.
	ErrUsage = New("usage error")
)

// Environment sentinel errors
var (
	// ErrUnsupportedHardware indicates the host lacks the reconstruction capability.
	ErrUnsupportedHardware = New("reconstruction is not supported on this hardware")
	// ErrUnsupportedPlatform indicates the host operating system version is too old.
	ErrUnsupportedPlatform = New("reconstruction is not supported on this platform version")
	// ErrEngineUnavailable indicates the engine could not be located or started.
	ErrEngineUnavailable = New("reconstruction engine unavailable")
)

// Session sentinel errors
var (
	// ErrSessionCreate indicates that the engine refused to create a session.
	ErrSessionCreate = New("session creation failed")
	// ErrSubmit indicates that the engine refused a request submission.
	ErrSubmit = New("request submission failed")
	// ErrSessionClosed indicates an operation on a released session.
	ErrSessionClosed = New("session is closed")
)

// Non-fatal sentinel errors
var (
	// ErrRequestFailed indicates that the engine reported a failed request.
	ErrRequestFailed = New("request failed")
	// ErrStream indicates that the event stream failed.
	ErrStream = New("event stream failed")
	// ErrExport indicates that the post-processing export failed.
	ErrExport = New("asset export failed")
	// ErrUnsupportedFormat indicates a mesh format the converter cannot handle.
	ErrUnsupportedFormat = New("unsupported mesh format")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PhotogramError is the base interface for all photogram errors.
type PhotogramError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsFatal returns true if the error must abort the process.
	IsFatal() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	fatal      bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsFatal returns whether the error aborts the process.
func (e *baseError) IsFatal() bool {
	return e.fatal
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Argument Errors
// -----------------------------------------------------------------------------

// OptionError reports an enumerated option whose raw value is not allowed.
//
// Example:
//
//	err := errors.NewOptionError("detail", "ultra", []string{"preview", "full"})
//	fmt.Println(err) // "invalid detail: "ultra" (allowed: preview, full)"
type OptionError struct {
	baseError
	Option  string
	Value   string
	Allowed []string
}

// NewOptionError creates a new OptionError.
func NewOptionError(option, value string, allowed []string) *OptionError {
	return &OptionError{
		baseError: baseError{
			message:    fmt.Sprintf("invalid %s", option),
			cause:      ErrInvalidOption,
			severity:   SeverityError,
			fatal:      true,
			userFacing: true,
		},
		Option:  option,
		Value:   value,
		Allowed: allowed,
	}
}

// Error returns the formatted error message.
func (e *OptionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s: %q", e.Option, e.Value)
	}
	return fmt.Sprintf("invalid %s: %q (allowed: %s)", e.Option, e.Value, strings.Join(e.Allowed, ", "))
}

// -----------------------------------------------------------------------------
// Environment Errors
// -----------------------------------------------------------------------------

// EnvironmentError represents a host that cannot run reconstruction.
// It is fatal and never retried.
type EnvironmentError struct {
	baseError
	Engine string
}

// NewEnvironmentError creates a new EnvironmentError.
func NewEnvironmentError(message string, cause error) *EnvironmentError {
	return &EnvironmentError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			fatal:      true,
			userFacing: true,
		},
	}
}

// WithEngine adds the engine name to the error context.
func (e *EnvironmentError) WithEngine(name string) *EnvironmentError {
	e.Engine = name
	return e
}

// Error returns the formatted error message.
func (e *EnvironmentError) Error() string {
	var parts []string
	if e.Engine != "" {
		parts = append(parts, fmt.Sprintf("engine=%s", e.Engine))
	}
	return e.format("environment error", parts)
}

// -----------------------------------------------------------------------------
// Session Errors
// -----------------------------------------------------------------------------

// SessionError represents a failure creating a session or submitting to it.
//
// Example:
//
//	err := errors.NewSessionError("failed to create session", errors.ErrSessionCreate)
//	err = err.WithSessionID("abc123").WithInput("/photos")
type SessionError struct {
	baseError
	SessionID string
	Input     string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			fatal:      true,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithInput adds the input folder to the error context.
func (e *SessionError) WithInput(path string) *SessionError {
	e.Input = path
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.Input != "" {
		parts = append(parts, fmt.Sprintf("input=%s", e.Input))
	}
	return e.format("session error", parts)
}

// -----------------------------------------------------------------------------
// Non-fatal Errors
// -----------------------------------------------------------------------------

// RequestError carries an engine-reported failure for a single request.
type RequestError struct {
	baseError
	Request string
}

// NewRequestError creates a new RequestError.
func NewRequestError(request, detail string) *RequestError {
	return &RequestError{
		baseError: baseError{
			message:    detail,
			cause:      ErrRequestFailed,
			severity:   SeverityError,
			userFacing: true,
		},
		Request: request,
	}
}

// Detail returns the engine's description of the failure.
func (e *RequestError) Detail() string {
	return e.message
}

// Error returns the formatted error message.
func (e *RequestError) Error() string {
	return fmt.Sprintf("request error [request=%s]: %s", e.Request, e.message)
}

// StreamError wraps a failure of the event stream itself.
type StreamError struct {
	baseError
}

// NewStreamError creates a new StreamError.
func NewStreamError(cause error) *StreamError {
	return &StreamError{
		baseError: baseError{
			message:  ErrStream.Error(),
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// Is reports ErrStream so callers can match on the sentinel.
func (e *StreamError) Is(target error) bool {
	return target == ErrStream
}

// ExportError wraps a failure of the post-processing export.
type ExportError struct {
	baseError
	Source      string
	Destination string
}

// NewExportError creates a new ExportError.
func NewExportError(message string, cause error) *ExportError {
	return &ExportError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithPaths adds the source and destination paths to the error context.
func (e *ExportError) WithPaths(src, dst string) *ExportError {
	e.Source = src
	e.Destination = dst
	return e
}

// Error returns the formatted error message.
func (e *ExportError) Error() string {
	var parts []string
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("src=%s", e.Source))
	}
	if e.Destination != "" {
		parts = append(parts, fmt.Sprintf("dst=%s", e.Destination))
	}
	return e.format("export error", parts)
}

// Is reports ErrExport so callers can match on the sentinel.
func (e *ExportError) Is(target error) bool {
	return target == ErrExport
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal returns true if the error must abort the process.
// Errors that don't implement PhotogramError are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var pe PhotogramError
	if As(err, &pe) {
		return pe.IsFatal()
	}
	return true
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var pe PhotogramError
	if As(err, &pe) {
		return pe.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PhotogramError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var pe PhotogramError
	if As(err, &pe) {
		return pe.Severity()
	}
	return SeverityError
}

// ExitCode maps an error to the process exit code.
//
//   - nil and non-fatal errors: 0
//   - argument errors: 2
//   - environment and session errors, and anything unclassified: 1
func ExitCode(err error) int {
	if err == nil || !IsFatal(err) {
		return ExitOK
	}

	var optErr *OptionError
	if As(err, &optErr) || Is(err, ErrMissingArgument) || Is(err, ErrUsage) {
		return ExitUsage
	}
	return ExitFailure
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to open input folder")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
