package recon

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/photogram/internal/errors"
)

// RequestKind tags a request or result variant.
type RequestKind string

// KindModelFile is the only request variant the command line issues.
const KindModelFile RequestKind = "modelFile"

// Request asks the engine for one output. Detail is nil when the engine's own
// default should apply.
type Request struct {
	Kind   RequestKind `json:"kind" yaml:"kind"`
	Path   string      `json:"path" yaml:"path"`
	Detail *Detail     `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// NewModelFileRequest creates a modelFile request for path.
func NewModelFileRequest(path string, detail *Detail) Request {
	return Request{Kind: KindModelFile, Path: path, Detail: detail}
}

// String renders the request as kind(path[, detail]).
func (r Request) String() string {
	if r.Detail != nil {
		return fmt.Sprintf("%s(%s, %s)", r.Kind, r.Path, *r.Detail)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Path)
}

// Result is what a completed request produced.
type Result struct {
	Kind RequestKind `json:"kind" yaml:"kind"`
	Path string      `json:"path,omitempty" yaml:"path,omitempty"`
}

// IsModelFile reports whether the result is the modelFile variant.
func (r Result) IsModelFile() bool {
	return r.Kind == KindModelFile
}

// String summarizes the result.
func (r Result) String() string {
	if r.Path == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Path)
}

// Options holds the raw command-line values before validation. A nil
// enumerated value means the flag was not given.
type Options struct {
	InputFolder        string
	OutputFile         string
	Detail             *string
	SampleOrdering     *string
	FeatureSensitivity *string
}

// Resolved is the validated form of Options.
type Resolved struct {
	InputFolder   string
	OutputFile    string
	Configuration Configuration
	Detail        *Detail
}

// Resolve validates raw options. Enumerated values are checked in the order
// detail, sampleOrdering, featureSensitivity and the first invalid one is
// reported. Resolve never touches the filesystem.
func Resolve(o Options) (Resolved, error) {
	if strings.TrimSpace(o.InputFolder) == "" {
		return Resolved{}, errors.Wrap(errors.ErrMissingArgument, "input folder")
	}
	if strings.TrimSpace(o.OutputFile) == "" {
		return Resolved{}, errors.Wrap(errors.ErrMissingArgument, "output filename")
	}

	r := Resolved{
		InputFolder:   o.InputFolder,
		OutputFile:    o.OutputFile,
		Configuration: DefaultConfiguration(),
	}

	if o.Detail != nil {
		d, err := ParseDetail(*o.Detail)
		if err != nil {
			return Resolved{}, err
		}
		r.Detail = &d
	}
	if o.SampleOrdering != nil {
		so, err := ParseSampleOrdering(*o.SampleOrdering)
		if err != nil {
			return Resolved{}, err
		}
		r.Configuration.SampleOrdering = so
	}
	if o.FeatureSensitivity != nil {
		fs, err := ParseFeatureSensitivity(*o.FeatureSensitivity)
		if err != nil {
			return Resolved{}, err
		}
		r.Configuration.FeatureSensitivity = fs
	}

	return r, nil
}

// Request returns the single request a run submits.
func (r Resolved) Request() Request {
	return NewModelFileRequest(r.OutputFile, r.Detail)
}
