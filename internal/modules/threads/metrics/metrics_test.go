package metrics

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/continuity"
)

func thread(complexity int, terms ...string) *threads.Thread {
	th := &threads.Thread{ID: uuid.New(), ComplexityLevel: complexity}
	th.SetTerms(terms)
	return th
}

func sampleRun() RunSummary {
	t1, t2 := thread(1, "limit"), thread(2, "derivative", "slope")
	return RunSummary{
		CourseID:   uuid.New(),
		LectureID:  uuid.New(),
		Candidates: 4,
		Batch: &continuity.BatchResult{
			Results: []continuity.Result{
				{Index: 0, ThreadID: t1.ID, Created: true},
				{Index: 1, ThreadID: t2.ID, ChangeType: threads.ChangeComplexityIncrease, Ambiguous: true},
				{Index: 2, Err: continuity.ErrMalformedCandidate},
				{Index: 3, Err: errors.New("boom")},
			},
			Threads: []*threads.Thread{t1, t2},
			Occurrences: []*threads.ThreadOccurrence{
				{ThreadID: t1.ID, Evidence: strings.Repeat("a", 100), Confidence: 1},
				{ThreadID: t2.ID, Evidence: strings.Repeat("b", 300), Confidence: 0.5},
			},
			Updates: []*threads.ThreadUpdate{{ThreadID: t2.ID, ChangeType: threads.ChangeComplexityIncrease}},
		},
		RotationStatus:     threads.RotationEquilibrium,
		RotationIterations: 3,
		Duration:           1500 * time.Millisecond,
		Now:                time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestComputeCounts(t *testing.T) {
	m := Compute(sampleRun())
	if m.Candidates != 4 || m.NewThreads != 1 || m.MatchedThreads != 1 || m.UpdatedThreads != 1 {
		t.Fatalf("counts: candidates=%d new=%d matched=%d updated=%d", m.Candidates, m.NewThreads, m.MatchedThreads, m.UpdatedThreads)
	}
	if m.Malformed != 1 || m.Failed != 1 || m.Ambiguous != 1 || m.Replayed != 0 {
		t.Fatalf("outcomes: malformed=%d failed=%d ambiguous=%d replayed=%d", m.Malformed, m.Failed, m.Ambiguous, m.Replayed)
	}
	if m.OccurrencesWritten != 2 || m.UpdatesWritten != 1 {
		t.Fatalf("written: occ=%d upd=%d", m.OccurrencesWritten, m.UpdatesWritten)
	}
	if m.AvgEvidenceLength != 200 || m.AvgConfidence != 0.75 || m.EvidenceCoverage != 0.5 {
		t.Fatalf("evidence: len=%v conf=%v coverage=%v", m.AvgEvidenceLength, m.AvgConfidence, m.EvidenceCoverage)
	}
	if m.DurationMs != 1500 || m.DetectionMethod != DefaultDetectionMethod {
		t.Fatalf("duration=%d method=%q", m.DurationMs, m.DetectionMethod)
	}

	var hist map[int]int
	if err := json.Unmarshal(m.ComplexityHistogram, &hist); err != nil {
		t.Fatalf("histogram: %v", err)
	}
	if hist[1] != 1 || hist[2] != 1 {
		t.Fatalf("histogram = %v", hist)
	}
	var changes map[string]int
	if err := json.Unmarshal(m.ChangeTypeCounts, &changes); err != nil {
		t.Fatalf("change counts: %v", err)
	}
	if changes["complexity_increase"] != 1 || len(changes) != 1 {
		t.Fatalf("change counts = %v", changes)
	}
}

func TestQualityScoreFormula(t *testing.T) {
	m := Compute(sampleRun())
	want := 0.35*0.5 + 0.15*1 + 0.2*(1-0.25) + 0.2*1 + 0.1*(1-0.25)
	if math.Abs(m.QualityScore-want) > 1e-9 {
		t.Fatalf("quality = %v, want %v", m.QualityScore, want)
	}
}

func TestRotationStatusLowersQuality(t *testing.T) {
	base := sampleRun()
	scores := map[threads.RotationStatus]float64{}
	for _, st := range []threads.RotationStatus{threads.RotationEquilibrium, threads.RotationMaxIterations, threads.RotationCollapsed} {
		run := base
		run.RotationStatus = st
		scores[st] = Compute(run).QualityScore
	}
	if !(scores[threads.RotationEquilibrium] > scores[threads.RotationMaxIterations] &&
		scores[threads.RotationMaxIterations] > scores[threads.RotationCollapsed]) {
		t.Fatalf("scores = %v", scores)
	}
}

func TestReplayOnlyRunKeepsCoverage(t *testing.T) {
	t1, t2 := thread(1, "limit"), thread(2, "derivative")
	run := RunSummary{
		LectureID:  uuid.New(),
		Candidates: 2,
		Batch: &continuity.BatchResult{
			Results: []continuity.Result{
				{Index: 0, ThreadID: t1.ID, OccurrenceID: uuid.New(), Replayed: true},
				{Index: 1, ThreadID: t2.ID, OccurrenceID: uuid.New(), Replayed: true},
			},
			Threads: []*threads.Thread{t1, t2},
		},
		RotationStatus: threads.RotationEquilibrium,
	}
	m := Compute(run)
	if m.Replayed != 2 || m.EvidenceCoverage != 1 {
		t.Fatalf("replayed=%d coverage=%v, want 2 and 1", m.Replayed, m.EvidenceCoverage)
	}
	if m.QualityScore < WeightCoverage+WeightWellFormed+WeightRotation {
		t.Fatalf("quality = %v, replays should keep coverage, well-formed and rotation shares", m.QualityScore)
	}
}

func TestComputeEmptyRun(t *testing.T) {
	m := Compute(RunSummary{LectureID: uuid.New(), RotationStatus: threads.RotationCollapsed})
	if m.Candidates != 0 || m.EvidenceCoverage != 0 || m.AvgEvidenceLength != 0 {
		t.Fatalf("empty run: %+v", m)
	}
	if m.QualityScore < 0 || m.QualityScore > 1 {
		t.Fatalf("quality out of range: %v", m.QualityScore)
	}
	if string(m.ComplexityHistogram) != "{}" {
		t.Fatalf("histogram = %s", m.ComplexityHistogram)
	}
}

func TestComputeDoesNotMutateThreads(t *testing.T) {
	run := sampleRun()
	before := *run.Batch.Threads[1]
	Compute(run)
	after := run.Batch.Threads[1]
	if after.ComplexityLevel != before.ComplexityLevel || string(after.EvidenceTerms) != string(before.EvidenceTerms) {
		t.Fatalf("thread mutated")
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	run := sampleRun()
	a, b := Compute(run), Compute(run)
	if a.ID != b.ID || a.QualityScore != b.QualityScore {
		t.Fatalf("metrics differ: %s/%v vs %s/%v", a.ID, a.QualityScore, b.ID, b.QualityScore)
	}
}
