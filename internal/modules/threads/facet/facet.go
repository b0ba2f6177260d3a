package facet

import (
	"errors"
	"math"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

// ErrInvalidWeightConfiguration is returned when weights cannot be resolved to a usable distribution.
var ErrInvalidWeightConfiguration = errors.New("facet: invalid weight configuration")

// Vector holds one value per facet, indexed by canonical facet order.
type Vector [threads.NumFacets]float64

// Uniform returns the vector with equal mass on every facet.
func Uniform() Vector {
	var v Vector
	for i := range v {
		v[i] = 1.0 / threads.NumFacets
	}
	return v
}

// FromMap builds a vector from a facet map; unknown keys are ignored.
func FromMap(m map[threads.Facet]float64) Vector {
	var v Vector
	for f, x := range m {
		if i := f.Index(); i >= 0 {
			v[i] = x
		}
	}
	return v
}

func (v Vector) Get(f threads.Facet) float64 {
	if i := f.Index(); i >= 0 {
		return v[i]
	}
	return 0
}

func (v *Vector) Set(f threads.Facet, x float64) {
	if i := f.Index(); i >= 0 {
		v[i] = x
	}
}

func (v Vector) Sum() float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Map returns the vector keyed by facet, for JSON records and logs.
func (v Vector) Map() map[threads.Facet]float64 {
	out := make(map[threads.Facet]float64, threads.NumFacets)
	for i, f := range threads.Facets {
		out[f] = v[i]
	}
	return out
}

// Validate rejects negative, NaN and infinite entries.
func (v Vector) Validate() error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return &WeightError{Facet: threads.Facets[i], Value: x}
		}
	}
	return nil
}

// WeightError describes the offending entry; it matches ErrInvalidWeightConfiguration.
type WeightError struct {
	Facet threads.Facet
	Value float64
}

func (e *WeightError) Error() string {
	return "facet: invalid weight for " + e.Facet.String()
}

func (e *WeightError) Is(target error) bool { return target == ErrInvalidWeightConfiguration }

// Normalize divides every entry by the sum. An all-zero vector is returned unchanged,
// so callers must check IsZero rather than expect NaN.
func Normalize(v Vector) Vector {
	sum := v.Sum()
	if sum == 0 {
		return v
	}
	var out Vector
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

// Blend mixes a and b with mix clamped to [0,1] (1 => a, 0 => b) and normalizes the result.
func Blend(a, b Vector, mix float64) Vector {
	mix = clamp01(mix)
	var out Vector
	for i := range out {
		out[i] = a[i]*mix + b[i]*(1-mix)
	}
	return Normalize(out)
}

// Combine folds one iteration's raw signals into the course weights.
//
// Signals are converted to shares of the total signal; with no signal at all the
// weights stand in for the shares. The target for facet f is
// influence*w_f + (1-influence)*share_f, which is nondecreasing in both w_f and s_f.
func Combine(weights, signals Vector, influence float64) Vector {
	influence = clamp01(influence)
	w := Normalize(weights)

	var clean Vector
	for i, s := range signals {
		if s > 0 && !math.IsInf(s, 0) {
			clean[i] = s
		}
	}
	share := w
	if !clean.IsZero() {
		share = Normalize(clean)
	}

	var out Vector
	for i := range out {
		out[i] = influence*w[i] + (1-influence)*share[i]
	}
	return Normalize(out)
}

// Dominant returns the highest entry; ties go to the earlier facet in canonical order.
func Dominant(v Vector) (threads.Facet, float64) {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return threads.Facets[best], v[best]
}

// Entropy is the Shannon entropy in bits of the normalized vector.
func Entropy(v Vector) float64 {
	p := Normalize(v)
	h := 0.0
	for _, x := range p {
		if x > 0 {
			h -= x * math.Log2(x)
		}
	}
	return h
}

// Skew is how concentrated the positive entries are on a single facet: 0 when they
// are spread evenly (or absent), 1 when one facet carries everything.
func Skew(v Vector) float64 {
	var clean Vector
	for i, x := range v {
		if x > 0 && !math.IsInf(x, 0) {
			clean[i] = x
		}
	}
	if clean.IsZero() {
		return 0
	}
	_, top := Dominant(Normalize(clean))
	even := 1 / float64(threads.NumFacets)
	return clamp01((top - even) / (1 - even))
}

// L1 is the sum of absolute differences.
func L1(a, b Vector) float64 {
	d := 0.0
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
