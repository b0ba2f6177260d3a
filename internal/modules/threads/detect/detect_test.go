package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-threads/internal/data/repos/testutil"
	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/continuity"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/facet"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []*threads.ThreadMetrics
	fail error
}

func (s *recordingSink) Publish(ctx context.Context, m *threads.ThreadMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m)
	return s.fail
}

func newDeps(t *testing.T) Deps {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	deps, err := NewDeps(config.Default(), db, log)
	if err != nil {
		t.Fatalf("NewDeps: %v", err)
	}
	deps.Locker = courselock.NewLocalLocker(time.Second, log)
	return deps
}

func count(t *testing.T, deps Deps, model any) int64 {
	t.Helper()
	var n int64
	if err := deps.DB.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func lectureInput(courseID, lectureID uuid.UUID) Input {
	return Input{
		CourseID:  courseID,
		LectureID: lectureID,
		Mode:      string(threads.ModeMathematics),
		Candidates: []continuity.Candidate{{
			ArtifactID:    "l1-summary",
			Title:         "Derivative as a limit",
			Summary:       "derivative defined as limit of difference quotient",
			Evidence:      "define derivative as limit of difference quotient",
			DominantFacet: threads.FacetWhat,
		}},
	}
}

func TestRunPersistsRotationThreadsAndMetrics(t *testing.T) {
	deps := newDeps(t)
	sink := &recordingSink{}
	deps.Publisher = sink
	courseID, lectureID := uuid.New(), uuid.New()

	out, err := Run(context.Background(), deps, lectureInput(courseID, lectureID))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Rotation.Status.Terminal() {
		t.Fatalf("rotation status %q is not terminal", out.Rotation.Status)
	}
	if out.WeightsSource != "mode:"+string(threads.ModeMathematics) {
		t.Fatalf("weights source = %q", out.WeightsSource)
	}
	if len(out.Batch.Results) != 1 || !out.Batch.Results[0].Created {
		t.Fatalf("batch = %+v", out.Batch.Results)
	}
	if out.Metrics.Candidates != 1 || out.Metrics.NewThreads != 1 || out.Metrics.RotationStatus != out.Rotation.Status {
		t.Fatalf("metrics = %+v", out.Metrics)
	}
	if n := count(t, deps, &threads.ThreadRotation{}); n != 1 {
		t.Fatalf("rotations = %d, want 1", n)
	}
	if n := count(t, deps, &threads.ThreadMetrics{}); n != 1 {
		t.Fatalf("metrics rows = %d, want 1", n)
	}
	if n := count(t, deps, &threads.Thread{}); n != 1 {
		t.Fatalf("threads = %d, want 1", n)
	}
	if len(sink.got) != 1 || sink.got[0] != out.Metrics {
		t.Fatalf("sink received %d records", len(sink.got))
	}
}

func TestRunReplayKeepsOneRotationAndThread(t *testing.T) {
	deps := newDeps(t)
	courseID, lectureID := uuid.New(), uuid.New()
	in := lectureInput(courseID, lectureID)

	first, err := Run(context.Background(), deps, in)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := Run(context.Background(), deps, in)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Batch.Results[0].ThreadID != first.Batch.Results[0].ThreadID || !second.Batch.Results[0].Replayed {
		t.Fatalf("replay result = %+v", second.Batch.Results[0])
	}
	if second.Metrics.Replayed != 1 || second.Metrics.NewThreads != 0 {
		t.Fatalf("replay metrics = %+v", second.Metrics)
	}
	if second.Rotation.Status != first.Rotation.Status || second.Rotation.IterationsCompleted != first.Rotation.IterationsCompleted {
		t.Fatalf("rotation not deterministic: %s/%d vs %s/%d",
			first.Rotation.Status, first.Rotation.IterationsCompleted, second.Rotation.Status, second.Rotation.IterationsCompleted)
	}
	if n := count(t, deps, &threads.ThreadRotation{}); n != 1 {
		t.Fatalf("rotations = %d, want 1", n)
	}
	if n := count(t, deps, &threads.Thread{}); n != 1 {
		t.Fatalf("threads = %d, want 1", n)
	}
	if n := count(t, deps, &threads.ThreadOccurrence{}); n != 1 {
		t.Fatalf("occurrences = %d, want 1", n)
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	deps := newDeps(t)
	cases := map[string]Input{
		"no course":     lectureInput(uuid.Nil, uuid.New()),
		"no lecture":    lectureInput(uuid.New(), uuid.Nil),
		"no candidates": {CourseID: uuid.New(), LectureID: uuid.New()},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Run(context.Background(), deps, in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if n := count(t, deps, &threads.ThreadRotation{}); n != 0 {
		t.Fatalf("rotations = %d, want 0", n)
	}
}

func TestRunZeroWeights(t *testing.T) {
	deps := newDeps(t)
	zero := map[threads.Facet]float64{threads.FacetWhat: 0}

	in := lectureInput(uuid.New(), uuid.New())
	in.Weights = zero
	if _, err := Run(context.Background(), deps, in); !errors.Is(err, facet.ErrInvalidWeightConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidWeightConfiguration", err)
	}

	in.FallbackWeights = map[threads.Facet]float64{threads.FacetWhy: 1, threads.FacetHow: 1}
	out, err := Run(context.Background(), deps, in)
	if err != nil {
		t.Fatalf("Run with fallback: %v", err)
	}
	if out.WeightsSource != "fallback" || !out.Metrics.WeightsFallback {
		t.Fatalf("source = %q fallback = %v", out.WeightsSource, out.Metrics.WeightsFallback)
	}
}

func TestRunPublisherFailureIsNotFatal(t *testing.T) {
	deps := newDeps(t)
	sink := &recordingSink{fail: errors.New("broker down")}
	deps.Publisher = sink

	out, err := Run(context.Background(), deps, lectureInput(uuid.New(), uuid.New()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Metrics == nil || len(sink.got) != 1 {
		t.Fatalf("metrics = %v, publishes = %d", out.Metrics, len(sink.got))
	}
	if n := count(t, deps, &threads.ThreadMetrics{}); n != 1 {
		t.Fatalf("metrics rows = %d, want 1", n)
	}
}

func TestRunLockTimeoutLeavesThreadsUntouched(t *testing.T) {
	deps := newDeps(t)
	log := testutil.Logger(t)
	locker := courselock.NewLocalLocker(30*time.Millisecond, log)
	deps.Locker = locker
	courseID := uuid.New()

	lease, err := locker.Acquire(context.Background(), courseID)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lease.Release(context.Background())

	_, err = Run(context.Background(), deps, lectureInput(courseID, uuid.New()))
	if !errors.Is(err, courselock.ErrLockTimeout) {
		t.Fatalf("err = %v, want ErrLockTimeout", err)
	}
	if n := count(t, deps, &threads.Thread{}); n != 0 {
		t.Fatalf("threads = %d, want 0", n)
	}
}

type lapsedLease struct{ lost chan struct{} }

func (l *lapsedLease) Release(ctx context.Context) error { return courselock.ErrNotHeld }
func (l *lapsedLease) Lost() <-chan struct{} { return l.lost }

type lapsedLocker struct{}

func (lapsedLocker) Acquire(ctx context.Context, courseID uuid.UUID) (courselock.Lease, error) {
	lost := make(chan struct{})
	close(lost)
	return &lapsedLease{lost: lost}, nil
}

func TestRunStopsWhenLeaseLapses(t *testing.T) {
	deps := newDeps(t)
	deps.Locker = lapsedLocker{}

	_, err := Run(context.Background(), deps, lectureInput(uuid.New(), uuid.New()))
	if !errors.Is(err, courselock.ErrLeaseLost) {
		t.Fatalf("err = %v, want ErrLeaseLost", err)
	}
	if n := count(t, deps, &threads.Thread{}); n != 0 {
		t.Fatalf("threads = %d, want 0", n)
	}
}

func TestRunManyKeepsInputOrder(t *testing.T) {
	deps := newDeps(t)
	inputs := []Input{
		lectureInput(uuid.New(), uuid.New()),
		lectureInput(uuid.New(), uuid.New()),
		lectureInput(uuid.New(), uuid.New()),
	}
	outs, err := RunMany(context.Background(), deps, inputs, 3)
	if err != nil {
		t.Fatalf("RunMany: %v", err)
	}
	for i, out := range outs {
		if out == nil || out.Rotation.LectureID != inputs[i].LectureID {
			t.Fatalf("output %d out of order", i)
		}
	}
	if n := count(t, deps, &threads.Thread{}); n != 3 {
		t.Fatalf("threads = %d, want 3", n)
	}
}

func TestSignalsFromCandidates(t *testing.T) {
	long := make([]byte, 800)
	for i := range long {
		long[i] = 'a'
	}
	in := Input{Candidates: []continuity.Candidate{
		{Evidence: "short", DominantFacet: threads.FacetWhy},
		{Evidence: string(long), DominantFacet: threads.FacetWhy},
		{Evidence: "no facet"},
	}}
	v, err := signalsFor(in)
	if err != nil {
		t.Fatalf("signalsFor: %v", err)
	}
	want := 1 + 5.0/400 + 2
	if got := v.Get(threads.FacetWhy); got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("WHY signal = %v, want %v", got, want)
	}
	if v.Get(threads.FacetHow) != 0 {
		t.Fatalf("HOW signal = %v, want 0", v.Get(threads.FacetHow))
	}

	in.Signals = map[threads.Facet]float64{threads.FacetWho: -1}
	if _, err := signalsFor(in); err == nil {
		t.Fatal("negative explicit signal accepted")
	}
}

func TestNewLocker(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)

	cfg := config.Default()
	cfg.LockBackend = config.LockBackendLocal
	if l, err := NewLocker(cfg, db, nil, log); err != nil {
		t.Fatalf("local: %v", err)
	} else if _, ok := l.(*courselock.LocalLocker); !ok {
		t.Fatalf("local backend built %T", l)
	}

	cfg.LockBackend = config.LockBackendFlock
	cfg.LockDir = t.TempDir()
	if l, err := NewLocker(cfg, db, nil, log); err != nil {
		t.Fatalf("flock: %v", err)
	} else if _, ok := l.(*courselock.FileLocker); !ok {
		t.Fatalf("flock backend built %T", l)
	}

	for _, backend := range []string{config.LockBackendRedis, config.LockBackendPostgres, "zookeeper"} {
		cfg.LockBackend = backend
		if _, err := NewLocker(cfg, db, nil, log); !errors.Is(err, config.ErrInvalidConfig) {
			t.Fatalf("%s: err = %v, want ErrInvalidConfig", backend, err)
		}
	}
}
