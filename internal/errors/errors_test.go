package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// OptionError Tests
// -----------------------------------------------------------------------------

func TestNewOptionError(t *testing.T) {
	err := NewOptionError("detail", "ultra", []string{"preview", "full"})

	if err.Option != "detail" {
		t.Errorf("Option = %q, want %q", err.Option, "detail")
	}
	if err.Value != "ultra" {
		t.Errorf("Value = %q, want %q", err.Value, "ultra")
	}
	if !err.IsFatal() {
		t.Error("IsFatal() = false, want true")
	}
	if !errors.Is(err, ErrInvalidOption) {
		t.Error("errors.Is(err, ErrInvalidOption) = false, want true")
	}

	want := `invalid detail: "ultra" (allowed: preview, full)`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOptionError_NoAllowedList(t *testing.T) {
	err := NewOptionError("featureSensitivity", "LOW", nil)
	want := `invalid featureSensitivity: "LOW"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// -----------------------------------------------------------------------------
// EnvironmentError Tests
// -----------------------------------------------------------------------------

func TestEnvironmentError(t *testing.T) {
	err := NewEnvironmentError("host check failed", ErrUnsupportedHardware).WithEngine("process")

	if err.Severity() != SeverityCritical {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityCritical)
	}
	if !errors.Is(err, ErrUnsupportedHardware) {
		t.Error("expected error to wrap ErrUnsupportedHardware")
	}
	if !strings.Contains(err.Error(), "engine=process") {
		t.Errorf("Error() = %q, want engine context", err.Error())
	}
}

// -----------------------------------------------------------------------------
// SessionError Tests
// -----------------------------------------------------------------------------

func TestSessionError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SessionError
		want string
	}{
		{
			name: "no context",
			err:  NewSessionError("failed to create session", nil),
			want: "session error: failed to create session",
		},
		{
			name: "with session and input",
			err:  NewSessionError("failed to create session", ErrSessionCreate).WithSessionID("abc").WithInput("/photos"),
			want: "session error [session=abc, input=/photos]: failed to create session: session creation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Non-fatal Error Tests
// -----------------------------------------------------------------------------

func TestNonFatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"request", NewRequestError("modelFile(out.usdz)", "out of memory"), ErrRequestFailed},
		{"stream", NewStreamError(fmt.Errorf("pipe closed")), ErrStream},
		{"export", NewExportError("convert failed", ErrUnsupportedFormat).WithPaths("a.usdz", "a.ply"), ErrExport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsFatal(tt.err) {
				t.Error("IsFatal() = true, want false")
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.sentinel)
			}
			if ExitCode(tt.err) != ExitOK {
				t.Errorf("ExitCode() = %d, want %d", ExitCode(tt.err), ExitOK)
			}
		})
	}
}

func TestExportError_UnwrapsCause(t *testing.T) {
	err := NewExportError("convert failed", ErrUnsupportedFormat)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Error("expected export error to unwrap to ErrUnsupportedFormat")
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"option", NewOptionError("detail", "x", nil), ExitUsage},
		{"wrapped option", Wrap(NewOptionError("detail", "x", nil), "resolve"), ExitUsage},
		{"missing argument", Wrap(ErrMissingArgument, "input folder"), ExitUsage},
		{"usage", Wrap(ErrUsage, "accepts 2 arg(s), received 1"), ExitUsage},
		{"environment", NewEnvironmentError("unsupported", ErrUnsupportedHardware), ExitFailure},
		{"session", NewSessionError("create", ErrSessionCreate), ExitFailure},
		{"unclassified", New("boom"), ExitFailure},
		{"stream", NewStreamError(New("eof")), ExitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want %v", got, SeverityDebug)
	}
	if got := GetSeverity(New("plain")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", got, SeverityError)
	}
	if got := GetSeverity(NewExportError("x", nil)); got != SeverityWarning {
		t.Errorf("GetSeverity(export) = %v, want %v", got, SeverityWarning)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
	if IsUserFacing(New("internal")) {
		t.Error("IsUserFacing(plain) = true, want false")
	}
	if !IsUserFacing(NewSessionError("x", nil)) {
		t.Error("IsUserFacing(session) = false, want true")
	}
	if IsUserFacing(NewStreamError(nil)) {
		t.Error("IsUserFacing(stream) = true, want false")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	err := Wrapf(ErrSubmit, "session %s", "abc")
	if !errors.Is(err, ErrSubmit) {
		t.Error("Wrapf should preserve the wrapped error")
	}
	if err.Error() != "session abc: request submission failed" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
}
