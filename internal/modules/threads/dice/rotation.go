package dice

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/facet"
)

type Config struct {
	MaxIterations     int
	EquilibriumGap    float64
	CollapseDominance float64
	CollapseFloor     float64
	// LearningRate is the step size of the first facet in a permutation.
	LearningRate float64
	// OrderBias scales how much earlier positions outweigh later ones (0 = order-blind).
	OrderBias float64
	// WeightInfluence is the share of the target taken from course weights vs signals
	// for evenly spread signals. It shrinks toward zero as signals concentrate on one facet.
	WeightInfluence float64
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:     12,
		EquilibriumGap:    0.05,
		CollapseDominance: 0.8,
		CollapseFloor:     0.05,
		LearningRate:      0.5,
		OrderBias:         0.5,
		WeightInfluence:   0.5,
	}
}

// Normalized repairs out-of-range values with defaults.
func (c Config) Normalized() Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxIterations > NumPermutations {
		c.MaxIterations = NumPermutations
	}
	if !(c.EquilibriumGap > 0) {
		c.EquilibriumGap = d.EquilibriumGap
	}
	if !(c.CollapseDominance > 0 && c.CollapseDominance <= 1) {
		c.CollapseDominance = d.CollapseDominance
	}
	if !(c.CollapseFloor >= 0 && c.CollapseFloor < c.CollapseDominance) {
		c.CollapseFloor = d.CollapseFloor
	}
	if !(c.LearningRate > 0 && c.LearningRate <= 1) {
		c.LearningRate = d.LearningRate
	}
	if !(c.OrderBias >= 0) || math.IsInf(c.OrderBias, 0) {
		c.OrderBias = d.OrderBias
	}
	if !(c.WeightInfluence >= 0 && c.WeightInfluence <= 1) {
		c.WeightInfluence = d.WeightInfluence
	}
	return c
}

// Input is everything one lecture's rotation needs.
type Input struct {
	LectureID uuid.UUID
	CourseID  uuid.UUID
	Mode      threads.CourseMode
	Weights   facet.Vector
	Signals   facet.Vector
	// Seed overrides the lecture-derived schedule offset.
	Seed *int
}

// IterationRecord is one row of the rotation history.
type IterationRecord struct {
	Iteration     int                       `json:"iteration"`
	Permutation   Permutation               `json:"permutation"`
	Scores        map[threads.Facet]float64 `json:"scores"`
	Entropy       float64                   `json:"entropy"`
	Gap           float64                   `json:"gap"`
	DominantFacet threads.Facet             `json:"dominant_facet"`
	DominantScore float64                   `json:"dominant_score"`
}

// RotationState is owned by exactly one run. It stops changing once Status is terminal.
type RotationState struct {
	LectureID uuid.UUID
	CourseID  uuid.UUID
	Mode      threads.CourseMode
	Weights   facet.Vector
	Signals   facet.Vector
	Target    facet.Vector
	Seed      int

	IterationsCompleted int
	MaxIterations       int

	Scores         facet.Vector
	Entropy        float64
	EquilibriumGap float64
	Status         threads.RotationStatus
	DominantFacet  threads.Facet
	DominantScore  float64

	Schedule []Permutation
	History  []IterationRecord

	cfg Config
}

// NewState validates the input and returns a state at iteration zero with uniform scores.
func NewState(cfg Config, in Input) (*RotationState, error) {
	cfg = cfg.Normalized()
	if err := in.Weights.Validate(); err != nil {
		return nil, err
	}
	if in.Weights.IsZero() {
		return nil, fmt.Errorf("%w: rotation weights sum to zero", facet.ErrInvalidWeightConfiguration)
	}
	seed := SeedFor(in.LectureID.String())
	if in.Seed != nil {
		seed = *in.Seed
	}
	s := &RotationState{
		LectureID:     in.LectureID,
		CourseID:      in.CourseID,
		Mode:          in.Mode,
		Weights:       facet.Normalize(in.Weights),
		Signals:       in.Signals,
		Target:        facet.Combine(in.Weights, in.Signals, cfg.WeightInfluence*(1-facet.Skew(in.Signals))),
		Seed:          seed,
		MaxIterations: cfg.MaxIterations,
		Scores:        facet.Uniform(),
		Status:        threads.RotationInProgress,
		cfg:           cfg,
	}
	s.Entropy = facet.Entropy(s.Scores)
	s.EquilibriumGap = facet.L1(s.Scores, s.Target)
	s.DominantFacet, s.DominantScore = facet.Dominant(s.Scores)
	return s, nil
}

// Advance runs one iteration and returns the resulting status. It is a no-op on a terminal state.
func (s *RotationState) Advance() threads.RotationStatus {
	if s.Status.Terminal() {
		return s.Status
	}
	perm := ScheduleAt(s.Seed, s.IterationsCompleted)
	prev := s.Scores
	x := s.Scores
	for k, f := range perm {
		i := f.Index()
		x[i] += s.step(k) * (s.Target[i] - x[i])
		if x[i] < 0 {
			x[i] = 0
		}
		x = facet.Normalize(x)
	}

	s.IterationsCompleted++
	s.Scores = x
	s.Schedule = append(s.Schedule, perm)
	s.Entropy = facet.Entropy(x)
	s.EquilibriumGap = facet.L1(x, prev)
	s.DominantFacet, s.DominantScore = facet.Dominant(x)

	switch {
	case s.collapsed():
		s.Status = threads.RotationCollapsed
	case s.EquilibriumGap < s.cfg.EquilibriumGap:
		s.Status = threads.RotationEquilibrium
	case s.IterationsCompleted >= s.MaxIterations:
		s.Status = threads.RotationMaxIterations
	}

	s.History = append(s.History, IterationRecord{
		Iteration:     s.IterationsCompleted,
		Permutation:   perm,
		Scores:        x.Map(),
		Entropy:       s.Entropy,
		Gap:           s.EquilibriumGap,
		DominantFacet: s.DominantFacet,
		DominantScore: s.DominantScore,
	})
	return s.Status
}

// step is the update rate for position k: earlier positions move further toward the target.
func (s *RotationState) step(k int) float64 {
	last := float64(threads.NumFacets - 1)
	bias := s.cfg.OrderBias
	return s.cfg.LearningRate * (1 + bias*(last-float64(k))/last) / (1 + bias)
}

func (s *RotationState) collapsed() bool {
	if s.DominantScore <= s.cfg.CollapseDominance {
		return false
	}
	for i, x := range s.Scores {
		if threads.Facets[i] != s.DominantFacet && x < s.cfg.CollapseFloor {
			return true
		}
	}
	return false
}

// Final returns the scores consumed downstream.
func (s *RotationState) Final() map[threads.Facet]float64 { return s.Scores.Map() }
