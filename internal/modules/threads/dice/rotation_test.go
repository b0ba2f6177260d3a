package dice

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/facet"
)

func weightsFor(t *testing.T, mode threads.CourseMode) facet.Vector {
	t.Helper()
	v, ok := facet.Profile(mode, -1)
	if !ok {
		t.Fatalf("no profile for %s", mode)
	}
	return v
}

func TestOpenModeReachesEquilibriumImmediately(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	s, err := e.Rotate(Input{LectureID: uuid.New(), Mode: threads.ModeOpen, Weights: weightsFor(t, threads.ModeOpen)})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if s.Status != threads.RotationEquilibrium {
		t.Fatalf("status = %s, want equilibrium", s.Status)
	}
	if s.IterationsCompleted != 1 {
		t.Fatalf("iterations = %d, want 1", s.IterationsCompleted)
	}
	if math.Abs(s.Entropy-math.Log2(6)) > 1e-9 {
		t.Fatalf("entropy = %v, want log2(6)", s.Entropy)
	}
	if s.DominantFacet != threads.FacetHow {
		t.Fatalf("ties must resolve to the first canonical facet, got %s", s.DominantFacet)
	}
}

func TestMathematicsReachesNonUniformEquilibrium(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	s, err := e.Rotate(Input{LectureID: uuid.New(), Mode: threads.ModeMathematics, Weights: weightsFor(t, threads.ModeMathematics)})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if s.Status != threads.RotationEquilibrium {
		t.Fatalf("status = %s after %d iterations, want equilibrium", s.Status, s.IterationsCompleted)
	}
	if s.DominantFacet != threads.FacetWhat {
		t.Fatalf("dominant = %s, want WHAT", s.DominantFacet)
	}
	if s.Scores.Get(threads.FacetWhat) <= s.Scores.Get(threads.FacetWhen) {
		t.Fatalf("equilibrium should be non-uniform: %v", s.Scores)
	}
	if s.Entropy >= math.Log2(6) {
		t.Fatalf("entropy %v should be below the uniform maximum", s.Entropy)
	}
}

func TestSkewedSignalsCollapse(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg, nil)
	modes := []threads.CourseMode{
		threads.ModeMathematics, threads.ModeNaturalScience, threads.ModeSocialScience,
		threads.ModeHumanities, threads.ModeInterdisciplinary, threads.ModeOpen,
	}
	for _, m := range modes {
		for _, f := range threads.Facets {
			var sig facet.Vector
			sig.Set(f, 10)
			s, err := e.Rotate(Input{LectureID: uuid.New(), Mode: m, Weights: weightsFor(t, m), Signals: sig})
			if err != nil {
				t.Fatalf("Rotate(%s, %s): %v", m, f, err)
			}
			if s.Status != threads.RotationCollapsed {
				t.Fatalf("%s with all signal on %s: status = %s after %d iterations, want collapsed", m, f, s.Status, s.IterationsCompleted)
			}
			if s.DominantFacet != f || s.DominantScore <= cfg.CollapseDominance {
				t.Fatalf("%s/%s: dominant = %s %.3f", m, f, s.DominantFacet, s.DominantScore)
			}
		}
	}
}

func TestBalancedSignalsDoNotCollapse(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	for _, sig := range []facet.Vector{{1, 1, 1, 1, 1, 1}, {3, 1, 1, 1, 1, 1}} {
		s, err := e.Rotate(Input{LectureID: uuid.New(), Mode: threads.ModeMathematics, Weights: weightsFor(t, threads.ModeMathematics), Signals: sig})
		if err != nil {
			t.Fatalf("Rotate(%v): %v", sig, err)
		}
		if s.Status != threads.RotationEquilibrium {
			t.Fatalf("signals %v: status = %s, want equilibrium", sig, s.Status)
		}
	}
}

func TestIterationBudgetExhausts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	cfg.WeightInfluence = 1
	e := NewEngine(cfg, nil)
	s, err := e.Rotate(Input{LectureID: uuid.New(), Weights: weightsFor(t, threads.ModeMathematics)})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if s.Status != threads.RotationMaxIterations {
		t.Fatalf("status = %s, want max_iterations", s.Status)
	}
	if len(s.Schedule) != 1 || len(s.History) != 1 {
		t.Fatalf("schedule/history length = %d/%d", len(s.Schedule), len(s.History))
	}
}

func TestRotationAlwaysTerminates(t *testing.T) {
	modes := []threads.CourseMode{
		threads.ModeMathematics, threads.ModeNaturalScience, threads.ModeSocialScience,
		threads.ModeHumanities, threads.ModeInterdisciplinary, threads.ModeOpen,
	}
	signals := []facet.Vector{
		{},
		{1, 1, 1, 1, 1, 1},
		{9, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0.001, 0},
		{5, 4, 3, 2, 1, 0},
	}
	for _, maxIter := range []int{1, 3, 12, 50} {
		for _, m := range modes {
			for _, sig := range signals {
				cfg := DefaultConfig()
				cfg.MaxIterations = maxIter
				s, err := NewEngine(cfg, nil).Rotate(Input{LectureID: uuid.New(), Weights: weightsFor(t, m), Signals: sig})
				if err != nil {
					t.Fatalf("Rotate(%s, %v): %v", m, sig, err)
				}
				if !s.Status.Terminal() {
					t.Fatalf("non-terminal status %s", s.Status)
				}
				if s.IterationsCompleted > maxIter || s.IterationsCompleted < 1 {
					t.Fatalf("iterations = %d with budget %d", s.IterationsCompleted, maxIter)
				}
				if math.Abs(s.Scores.Sum()-1) > 1e-9 {
					t.Fatalf("scores sum to %v", s.Scores.Sum())
				}
				for _, x := range s.Scores {
					if x < 0 || x > 1 {
						t.Fatalf("score out of range: %v", s.Scores)
					}
				}
			}
		}
	}
}

func TestRotationIsReproducible(t *testing.T) {
	in := Input{LectureID: uuid.MustParse("7f0c6a8e-9d3b-4a1f-8f5e-2c1d0b9a8e7f"), Weights: weightsFor(t, threads.ModeHumanities), Signals: facet.Vector{1, 0, 2, 0, 3, 0}}
	a, err := NewEngine(DefaultConfig(), nil).Rotate(in)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	b, _ := NewEngine(DefaultConfig(), nil).Rotate(in)
	if !reflect.DeepEqual(a.History, b.History) {
		t.Fatalf("history differs between identical runs")
	}
	if a.Seed != SeedFor(in.LectureID.String()) {
		t.Fatalf("seed = %d", a.Seed)
	}
}

func TestPermutationOrderMatters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	in := Input{LectureID: uuid.New(), Weights: weightsFor(t, threads.ModeMathematics)}
	first, second := 0, 5
	in.Seed = &first
	a, _ := NewEngine(cfg, nil).Rotate(in)
	in.Seed = &second
	b, _ := NewEngine(cfg, nil).Rotate(in)
	if a.Scores == b.Scores {
		t.Fatalf("different permutations produced identical scores %v", a.Scores)
	}
}

func TestAdvanceIsNoOpWhenTerminal(t *testing.T) {
	s, err := NewState(DefaultConfig(), Input{LectureID: uuid.New(), Weights: weightsFor(t, threads.ModeOpen)})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if s.Advance() != threads.RotationEquilibrium {
		t.Fatalf("status = %s", s.Status)
	}
	scores := s.Scores
	s.Advance()
	if s.IterationsCompleted != 1 || s.Scores != scores {
		t.Fatalf("terminal state changed")
	}
}

func TestZeroWeightsRejected(t *testing.T) {
	_, err := NewEngine(DefaultConfig(), nil).Rotate(Input{LectureID: uuid.New()})
	if !errors.Is(err, facet.ErrInvalidWeightConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidWeightConfiguration", err)
	}
}

func TestRecordCarriesHistory(t *testing.T) {
	s, err := NewEngine(DefaultConfig(), nil).Rotate(Input{LectureID: uuid.New(), CourseID: uuid.New(), Weights: weightsFor(t, threads.ModeMathematics)})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	now := time.Now().UTC()
	rec := s.Record(now)
	if rec.LectureID != s.LectureID || rec.Status != s.Status || rec.Iterations != s.IterationsCompleted {
		t.Fatalf("record mismatch: %+v", rec)
	}
	if rec.ID != s.Record(now.Add(time.Hour)).ID {
		t.Fatalf("record id must be stable per lecture")
	}
	var history []IterationRecord
	if err := json.Unmarshal(rec.History, &history); err != nil {
		t.Fatalf("history json: %v", err)
	}
	if len(history) != s.IterationsCompleted {
		t.Fatalf("history has %d rows, want %d", len(history), s.IterationsCompleted)
	}
}
