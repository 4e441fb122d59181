// Package replay implements an engine that plays a scripted event sequence
// from a YAML file. It is used for demos, for exercising the console without
// an engine installed, and by the command tests.
//
// A script looks like:
//
//	supported: true
//	events:
//	  - event: inputComplete
//	  - event: requestProgress
//	    fraction: 0.5
//	    delay: 200ms
//	  - event: requestComplete
//	    result: {kind: modelFile, path: out.stl}
//	  - event: processingComplete
//
// A step with streamError set ends the stream with that error.
package replay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/photogram/internal/engine"
)

// Unsupported reasons accepted by the script's unsupported field.
const (
	UnsupportedHardware = "hardware"
	UnsupportedPlatform = "platform"
)

// Script is a parsed replay file.
type Script struct {
	// Supported defaults to true when omitted
	Supported *bool `yaml:"supported,omitempty"`
	// Unsupported is "hardware" (default) or "platform"
	Unsupported string `yaml:"unsupported,omitempty"`
	// FailCreate makes NewSession fail with this message
	FailCreate string `yaml:"failCreate,omitempty"`
	// FailSubmit makes Process fail with this message
	FailSubmit string `yaml:"failSubmit,omitempty"`
	// Model is copied to the request's output path before processingComplete
	Model  string `yaml:"model,omitempty"`
	Events []Step `yaml:"events"`
}

// Step is one scripted event.
type Step struct {
	engine.Record `yaml:",inline"`
	Delay         Duration `yaml:"delay,omitempty"`
	StreamError   string   `yaml:"streamError,omitempty"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalYAML parses strings like "150ms" or "2s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid delay %q: %w", value.Line, s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("line %d: delay must not be negative", value.Line)
	}
	*d = Duration(parsed)
	return nil
}

// IsSupported reports whether the scripted host supports reconstruction.
func (s *Script) IsSupported() bool {
	return s.Supported == nil || *s.Supported
}

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse replay script: %w", err)
	}

	switch s.Unsupported {
	case "", UnsupportedHardware, UnsupportedPlatform:
	default:
		return nil, fmt.Errorf("unsupported: must be %q or %q, got %q", UnsupportedHardware, UnsupportedPlatform, s.Unsupported)
	}

	for i, step := range s.Events {
		if step.Event == "" && step.StreamError == "" {
			return nil, fmt.Errorf("events[%d]: event or streamError is required", i)
		}
	}
	return &s, nil
}

// Load reads a script from path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
