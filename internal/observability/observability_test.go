package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

func TestObserveRunFeedsRegistry(t *testing.T) {
	m := newMetrics()
	tm := &threads.ThreadMetrics{
		ID:                 uuid.New(),
		NewThreads:         2,
		MatchedThreads:     1,
		Malformed:          1,
		RotationStatus:     threads.RotationEquilibrium,
		RotationIterations: 3,
		QualityScore:       0.7,
		DurationMs:         250,
		ChangeTypeCounts:   threads.MarshalJSONValue(map[string]int{"refinement": 2}),
	}
	m.ObserveRun(tm)

	if got := m.candidates.Value("created"); got != 2 {
		t.Fatalf("created = %v", got)
	}
	if got := m.changes.Value("refinement"); got != 2 {
		t.Fatalf("refinement = %v", got)
	}
	if got := m.rotations.Count("equilibrium"); got != 1 {
		t.Fatalf("rotation observations = %d", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`threads_candidates_total{outcome="created"} 2.000000`,
		`threads_rotation_iterations_bucket{status="equilibrium",le="4"} 1`,
		`threads_rotation_iterations_count{status="equilibrium"} 1`,
		"# TYPE threads_quality_score histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun(&threads.ThreadMetrics{})
	m.ObserveLockWait("local", "ok", 0)
	m.IncSinkFailure("redis")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("err = %v", err)
	}
	ReportThreadMetrics(context.Background(), logger.NewNop(), &threads.ThreadMetrics{})
	ReportThreadMetrics(context.Background(), nil, nil)
}

func TestLabelString(t *testing.T) {
	if got := labelString([]string{"a", "b"}, []string{"x\"y"}); got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString = %s", got)
	}
	if got := withLe("", "1"); got != `{le="1"}` {
		t.Fatalf("withLe = %s", got)
	}
}

func TestInitOTelDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.NewNop(), OtelConfig{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
