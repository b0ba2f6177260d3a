package metrics

import (
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/continuity"
)

// Quality score weights. They sum to 1.
const (
	WeightCoverage   = 0.35
	WeightEvidence   = 0.15
	WeightWellFormed = 0.20
	WeightRotation   = 0.20
	WeightClarity    = 0.10

	// EvidenceTargetChars is the average evidence length that earns the full evidence share.
	EvidenceTargetChars = 200.0
)

const DefaultDetectionMethod = "dice_rotation+continuity"

// RunSummary is everything one detection run produced.
type RunSummary struct {
	CourseID   uuid.UUID
	LectureID  uuid.UUID
	Candidates int
	Batch      *continuity.BatchResult

	RotationStatus     threads.RotationStatus
	RotationIterations int
	WeightsFallback    bool

	DetectionMethod string
	Duration        time.Duration
	Now             time.Time
}

// Compute derives the run's metrics record. It reads the summary only.
func Compute(s RunSummary) *threads.ThreadMetrics {
	now := s.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	method := s.DetectionMethod
	if method == "" {
		method = DefaultDetectionMethod
	}

	m := &threads.ThreadMetrics{
		ID:                 uuid.NewSHA1(s.LectureID, []byte("metrics|"+strconv.FormatInt(now.UnixNano(), 10))),
		CourseID:           s.CourseID,
		LectureID:          s.LectureID,
		Candidates:         s.Candidates,
		RotationStatus:     s.RotationStatus,
		RotationIterations: s.RotationIterations,
		WeightsFallback:    s.WeightsFallback,
		DetectionMethod:    method,
		DurationMs:         s.Duration.Milliseconds(),
		CreatedAt:          now,
	}

	b := s.Batch
	if b == nil {
		b = &continuity.BatchResult{}
	}
	if m.Candidates < len(b.Results) {
		m.Candidates = len(b.Results)
	}

	matched := map[uuid.UUID]struct{}{}
	anchored := 0
	for _, r := range b.Results {
		if r.Err == nil && r.ThreadID != uuid.Nil {
			anchored++
		}
		switch {
		case r.Malformed():
			m.Malformed++
		case r.Err != nil:
			m.Failed++
		case r.Replayed:
			m.Replayed++
		case r.Created:
			m.NewThreads++
		default:
			matched[r.ThreadID] = struct{}{}
		}
		if r.Ambiguous {
			m.Ambiguous++
		}
	}
	m.MatchedThreads = len(matched)

	updated := map[uuid.UUID]struct{}{}
	changes := map[threads.ChangeType]int{}
	for _, u := range b.Updates {
		updated[u.ThreadID] = struct{}{}
		changes[u.ChangeType]++
	}
	m.UpdatedThreads = len(updated)
	m.UpdatesWritten = len(b.Updates)
	m.OccurrencesWritten = len(b.Occurrences)

	// Coverage is the share of candidates whose evidence is on record for a thread,
	// whether written now or by the run being replayed.
	if m.Candidates > 0 {
		m.EvidenceCoverage = float64(anchored) / float64(m.Candidates)
	}

	hist := map[int]int{}
	for _, th := range b.Threads {
		hist[th.ComplexityLevel]++
	}

	var chars, conf float64
	for _, o := range b.Occurrences {
		chars += float64(utf8.RuneCountInString(o.Evidence))
		conf += o.Confidence
	}
	if n := len(b.Occurrences); n > 0 {
		m.AvgEvidenceLength = chars / float64(n)
		m.AvgConfidence = conf / float64(n)
	}

	m.ComplexityHistogram = threads.MarshalJSONValue(hist)
	m.ChangeTypeCounts = threads.MarshalJSONValue(changes)
	m.QualityScore = QualityScore(m)
	return m
}

// QualityScore rewards evidence coverage and length, well-formed input, a converged rotation
// and unambiguous matching. The result is in [0,1].
func QualityScore(m *threads.ThreadMetrics) float64 {
	if m == nil {
		return 0
	}
	var malformedRate, ambiguousRate float64
	if m.Candidates > 0 {
		malformedRate = float64(m.Malformed) / float64(m.Candidates)
		ambiguousRate = float64(m.Ambiguous) / float64(m.Candidates)
	}
	q := WeightCoverage*m.EvidenceCoverage +
		WeightEvidence*math.Min(m.AvgEvidenceLength/EvidenceTargetChars, 1) +
		WeightWellFormed*(1-malformedRate) +
		WeightRotation*RotationScore(m.RotationStatus) +
		WeightClarity*(1-ambiguousRate)
	return math.Max(0, math.Min(1, q))
}

// RotationScore maps a terminal rotation status to its share of the quality score.
func RotationScore(status threads.RotationStatus) float64 {
	switch status {
	case threads.RotationEquilibrium:
		return 1
	case threads.RotationMaxIterations:
		return 0.5
	default:
		return 0
	}
}
