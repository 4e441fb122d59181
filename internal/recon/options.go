// Package recon defines the reconstruction vocabulary shared by the
// command line, the session controller, the event observer and the engines:
// enumerated settings, the session configuration, requests, results and
// the events a session emits.
package recon

import (
	"slices"

	"github.com/Iron-Ham/photogram/internal/errors"
)

// Option names as they appear in errors and on the command line.
const (
	OptionDetail             = "detail"
	OptionSampleOrdering     = "sampleOrdering"
	OptionFeatureSensitivity = "featureSensitivity"
)

// Detail is the requested mesh fidelity tier.
type Detail string

const (
	DetailPreview Detail = "preview"
	DetailReduced Detail = "reduced"
	DetailMedium  Detail = "medium"
	DetailFull    Detail = "full"
	DetailRaw     Detail = "raw"
)

// Details returns the allowed detail levels, lowest fidelity first.
func Details() []Detail {
	return []Detail{DetailPreview, DetailReduced, DetailMedium, DetailFull, DetailRaw}
}

// ParseDetail matches s case-sensitively against the allowed detail levels.
func ParseDetail(s string) (Detail, error) {
	d := Detail(s)
	if !slices.Contains(Details(), d) {
		return "", errors.NewOptionError(OptionDetail, s, Names(Details()))
	}
	return d, nil
}

// SampleOrdering hints whether the images were captured along a sequential path.
type SampleOrdering string

const (
	SampleOrderingUnordered  SampleOrdering = "unordered"
	SampleOrderingSequential SampleOrdering = "sequential"
)

// SampleOrderings returns the allowed sample orderings.
func SampleOrderings() []SampleOrdering {
	return []SampleOrdering{SampleOrderingUnordered, SampleOrderingSequential}
}

// ParseSampleOrdering matches s case-sensitively against the allowed orderings.
func ParseSampleOrdering(s string) (SampleOrdering, error) {
	o := SampleOrdering(s)
	if !slices.Contains(SampleOrderings(), o) {
		return "", errors.NewOptionError(OptionSampleOrdering, s, Names(SampleOrderings()))
	}
	return o, nil
}

// FeatureSensitivity controls how aggressively the engine detects features.
type FeatureSensitivity string

const (
	FeatureSensitivityNormal FeatureSensitivity = "normal"
	FeatureSensitivityHigh   FeatureSensitivity = "high"
)

// FeatureSensitivities returns the allowed feature sensitivities.
func FeatureSensitivities() []FeatureSensitivity {
	return []FeatureSensitivity{FeatureSensitivityNormal, FeatureSensitivityHigh}
}

// ParseFeatureSensitivity matches s case-sensitively against the allowed sensitivities.
func ParseFeatureSensitivity(s string) (FeatureSensitivity, error) {
	f := FeatureSensitivity(s)
	if !slices.Contains(FeatureSensitivities(), f) {
		return "", errors.NewOptionError(OptionFeatureSensitivity, s, Names(FeatureSensitivities()))
	}
	return f, nil
}

// Names converts enumerated values to their strings.
func Names[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Configuration is the immutable set of session-wide settings.
type Configuration struct {
	SampleOrdering     SampleOrdering
	FeatureSensitivity FeatureSensitivity
}

// DefaultConfiguration returns the configuration used when no flags are given.
func DefaultConfiguration() Configuration {
	return Configuration{
		SampleOrdering:     SampleOrderingUnordered,
		FeatureSensitivity: FeatureSensitivityNormal,
	}
}
