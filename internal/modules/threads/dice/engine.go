package dice

import (
	"time"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

// Engine runs rotations to a terminal status. It holds no per-lecture state and is safe
// for concurrent use.
type Engine struct {
	cfg Config
	log *logger.Logger
}

func NewEngine(cfg Config, baseLog *logger.Logger) *Engine {
	return &Engine{cfg: cfg.Normalized(), log: baseLog.With("module", "dice")}
}

func (e *Engine) Config() Config { return e.cfg }

// Rotate iterates until equilibrium, collapse or the iteration budget. Collapse and
// exhaustion are returned as statuses, not errors.
func (e *Engine) Rotate(in Input) (*RotationState, error) {
	s, err := NewState(e.cfg, in)
	if err != nil {
		return nil, err
	}
	for !s.Status.Terminal() {
		s.Advance()
	}

	switch s.Status {
	case threads.RotationCollapsed:
		e.log.Warn("dice rotation collapsed",
			"lecture_id", s.LectureID,
			"course_id", s.CourseID,
			"iterations", s.IterationsCompleted,
			"dominant_facet", s.DominantFacet,
			"dominant_score", s.DominantScore,
		)
	case threads.RotationMaxIterations:
		e.log.Warn("dice rotation exhausted iterations",
			"lecture_id", s.LectureID,
			"course_id", s.CourseID,
			"iterations", s.IterationsCompleted,
			"gap", s.EquilibriumGap,
		)
	default:
		e.log.Debug("dice rotation reached equilibrium",
			"lecture_id", s.LectureID,
			"iterations", s.IterationsCompleted,
			"dominant_facet", s.DominantFacet,
		)
	}
	return s, nil
}

// Record converts a finished state into its persisted transparency row.
func (s *RotationState) Record(now time.Time) *threads.ThreadRotation {
	return &threads.ThreadRotation{
		ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte("thread_rotation:"+s.LectureID.String())),
		LectureID:      s.LectureID,
		CourseID:       s.CourseID,
		Mode:           s.Mode,
		Weights:        threads.MarshalJSONValue(s.Weights.Map()),
		Status:         s.Status,
		Iterations:     s.IterationsCompleted,
		MaxIterations:  s.MaxIterations,
		Seed:           s.Seed,
		Entropy:        s.Entropy,
		EquilibriumGap: s.EquilibriumGap,
		DominantFacet:  s.DominantFacet,
		DominantScore:  s.DominantScore,
		FinalScores:    threads.MarshalJSONValue(s.Scores.Map()),
		Schedule:       threads.MarshalJSONValue(s.Schedule),
		History:        threads.MarshalJSONValue(s.History),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
