package facet

import (
	"fmt"
	"strings"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

// Canonical profiles, listed in canonical facet order (HOW, WHAT, WHEN, WHERE, WHO, WHY).
var (
	Empirical    = Vector{0.25, 0.25, 0.15, 0.15, 0.05, 0.15}
	Interpretive = Vector{0.10, 0.15, 0.15, 0.10, 0.25, 0.25}
	Mathematics  = Vector{0.30, 0.35, 0.05, 0.05, 0.05, 0.20}
)

const (
	DefaultInterdisciplinaryMix = 0.5
	socialScienceMix            = 0.4
)

// Profile returns the normalized weights of a built-in course mode. mix only applies to
// INTERDISCIPLINARY; pass a negative value for the default.
func Profile(mode threads.CourseMode, mix float64) (Vector, bool) {
	switch mode {
	case threads.ModeMathematics:
		return Normalize(Mathematics), true
	case threads.ModeNaturalScience:
		return Normalize(Empirical), true
	case threads.ModeHumanities:
		return Normalize(Interpretive), true
	case threads.ModeSocialScience:
		return Blend(Empirical, Interpretive, socialScienceMix), true
	case threads.ModeInterdisciplinary:
		if mix < 0 {
			mix = DefaultInterdisciplinaryMix
		}
		return Blend(Empirical, Interpretive, mix), true
	case threads.ModeOpen:
		return Uniform(), true
	default:
		return Vector{}, false
	}
}

// Selection describes how a course's weights are chosen.
type Selection struct {
	// Mode selects a built-in or custom profile.
	Mode threads.CourseMode
	// Explicit weights win over Mode when non-nil.
	Explicit map[threads.Facet]float64
	// Mix, when set, blends EMPIRICAL (1) and INTERPRETIVE (0).
	Mix *float64
	// Fallback is used when the resolved weights sum to zero.
	Fallback map[threads.Facet]float64
	// Custom holds operator-defined profiles keyed by upper-case name.
	Custom map[string]map[threads.Facet]float64
}

// Resolution reports where the weights came from.
type Resolution struct {
	Weights  Vector
	Source   string
	Fallback bool
}

// ResolveWeights turns a Selection into normalized weights. It fails with
// ErrInvalidWeightConfiguration when the chosen weights sum to zero and no usable
// fallback exists, or when any entry is negative or not finite.
func ResolveWeights(s Selection) (Resolution, error) {
	raw, source, err := pick(s)
	if err != nil {
		return Resolution{}, err
	}
	if err := raw.Validate(); err != nil {
		return Resolution{}, err
	}
	if !raw.IsZero() {
		return Resolution{Weights: Normalize(raw), Source: source}, nil
	}

	if s.Fallback == nil {
		return Resolution{}, fmt.Errorf("%w: %s weights sum to zero and no fallback supplied", ErrInvalidWeightConfiguration, source)
	}
	fb := FromMap(s.Fallback)
	if err := fb.Validate(); err != nil {
		return Resolution{}, err
	}
	if fb.IsZero() {
		return Resolution{}, fmt.Errorf("%w: fallback weights sum to zero", ErrInvalidWeightConfiguration)
	}
	return Resolution{Weights: Normalize(fb), Source: "fallback", Fallback: true}, nil
}

func pick(s Selection) (Vector, string, error) {
	if s.Explicit != nil {
		return FromMap(s.Explicit), "explicit", nil
	}
	if s.Mix != nil && (s.Mode == "" || s.Mode == threads.ModeInterdisciplinary) {
		return Blend(Empirical, Interpretive, *s.Mix), "mix", nil
	}
	if s.Mode == "" {
		if s.Fallback != nil {
			return Vector{}, "mode", nil
		}
		return Vector{}, "", fmt.Errorf("%w: no course mode, mix or explicit weights", ErrInvalidWeightConfiguration)
	}
	if custom, ok := s.Custom[strings.ToUpper(string(s.Mode))]; ok {
		return FromMap(custom), "custom:" + strings.ToUpper(string(s.Mode)), nil
	}
	mix := -1.0
	if s.Mix != nil {
		mix = *s.Mix
	}
	if v, ok := Profile(s.Mode, mix); ok {
		return v, "mode:" + string(s.Mode), nil
	}
	return Vector{}, "", fmt.Errorf("%w: unknown course mode %q", ErrInvalidWeightConfiguration, s.Mode)
}
