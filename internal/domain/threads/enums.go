package threads

import (
	"fmt"
	"strings"
)

// Facet is one of the six fixed analytical dimensions used to characterize lecture content.
type Facet string

const (
	FacetHow   Facet = "HOW"
	FacetWhat  Facet = "WHAT"
	FacetWhen  Facet = "WHEN"
	FacetWhere Facet = "WHERE"
	FacetWho   Facet = "WHO"
	FacetWhy   Facet = "WHY"
)

// NumFacets is the size of every score vector and permutation.
const NumFacets = 6

// Facets lists the facets in canonical order; index positions are used by score vectors.
var Facets = [NumFacets]Facet{FacetHow, FacetWhat, FacetWhen, FacetWhere, FacetWho, FacetWhy}

var facetColors = [NumFacets]string{"RED", "ORANGE", "YELLOW", "GREEN", "BLUE", "PURPLE"}

// Index returns the canonical position of f, or -1 when f is not a facet.
func (f Facet) Index() int {
	switch f {
	case FacetHow:
		return 0
	case FacetWhat:
		return 1
	case FacetWhen:
		return 2
	case FacetWhere:
		return 3
	case FacetWho:
		return 4
	case FacetWhy:
		return 5
	default:
		return -1
	}
}

func (f Facet) Valid() bool { return f.Index() >= 0 }

// Color is the dice color associated with the facet.
func (f Facet) Color() string {
	if i := f.Index(); i >= 0 {
		return facetColors[i]
	}
	return ""
}

func (f Facet) String() string { return string(f) }

// ParseFacet accepts a facet label or its color, case-insensitively.
func ParseFacet(raw string) (Facet, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for i, f := range Facets {
		if s == string(f) || s == facetColors[i] {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown facet %q", raw)
}

// ThreadStatus is derived from complexity and lecture continuity; it is never set freely.
type ThreadStatus string

const (
	ThreadStatusFoundational ThreadStatus = "foundational"
	ThreadStatusAdvanced     ThreadStatus = "advanced"
	// ThreadStatusArchived is only written by external deletion/archival workflows.
	ThreadStatusArchived ThreadStatus = "archived"
)

func (s ThreadStatus) Valid() bool {
	switch s {
	case ThreadStatusFoundational, ThreadStatusAdvanced, ThreadStatusArchived:
		return true
	default:
		return false
	}
}

// Open reports whether the thread participates in matching.
func (s ThreadStatus) Open() bool {
	return s == ThreadStatusFoundational || s == ThreadStatusAdvanced
}

// ChangeType classifies a ThreadUpdate.
type ChangeType string

const (
	ChangeRefinement         ChangeType = "refinement"
	ChangeContradiction      ChangeType = "contradiction"
	ChangeComplexityIncrease ChangeType = "complexity_increase"
	ChangeFaceShift          ChangeType = "face_shift"
	ChangeStatusPromotion    ChangeType = "status_promotion"
)

// ChangeTypes lists change types by precedence when a single match changes several fields.
var ChangeTypes = []ChangeType{
	ChangeContradiction,
	ChangeComplexityIncrease,
	ChangeRefinement,
	ChangeFaceShift,
	ChangeStatusPromotion,
}

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeRefinement, ChangeContradiction, ChangeComplexityIncrease, ChangeFaceShift, ChangeStatusPromotion:
		return true
	default:
		return false
	}
}

// Precedence is lower for change types that win when several apply.
func (c ChangeType) Precedence() int {
	for i, ct := range ChangeTypes {
		if ct == c {
			return i
		}
	}
	return len(ChangeTypes)
}

// RotationStatus is the state of a dice rotation run.
type RotationStatus string

const (
	RotationInProgress    RotationStatus = "in_progress"
	RotationEquilibrium   RotationStatus = "equilibrium"
	RotationCollapsed     RotationStatus = "collapsed"
	RotationMaxIterations RotationStatus = "max_iterations"
)

func (s RotationStatus) Terminal() bool {
	switch s {
	case RotationEquilibrium, RotationCollapsed, RotationMaxIterations:
		return true
	default:
		return false
	}
}

// CourseMode names a discipline weighting profile over the six facets.
type CourseMode string

const (
	ModeMathematics       CourseMode = "MATHEMATICS"
	ModeNaturalScience    CourseMode = "NATURAL_SCIENCE"
	ModeSocialScience     CourseMode = "SOCIAL_SCIENCE"
	ModeHumanities        CourseMode = "HUMANITIES"
	ModeInterdisciplinary CourseMode = "INTERDISCIPLINARY"
	ModeOpen              CourseMode = "OPEN"
)

func ParseCourseMode(raw string) (CourseMode, error) {
	m := CourseMode(strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(raw, "-", "_"))))
	switch m {
	case ModeMathematics, ModeNaturalScience, ModeSocialScience, ModeHumanities, ModeInterdisciplinary, ModeOpen:
		return m, nil
	default:
		return "", fmt.Errorf("unknown course mode %q", raw)
	}
}
