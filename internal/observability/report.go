package observability

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
)

// ReportThreadMetrics logs a completed run, annotates the active span and feeds the
// process metrics registry when enabled.
func ReportThreadMetrics(ctx context.Context, log *logger.Logger, m *threads.ThreadMetrics) {
	if m == nil {
		return
	}
	ctx = ctxutil.Default(ctx)

	fields := []any{
		"course_id", m.CourseID,
		"lecture_id", m.LectureID,
		"candidates", m.Candidates,
		"new_threads", m.NewThreads,
		"updated_threads", m.UpdatedThreads,
		"malformed", m.Malformed,
		"failed", m.Failed,
		"ambiguous", m.Ambiguous,
		"rotation_status", m.RotationStatus,
		"rotation_iterations", m.RotationIterations,
		"quality_score", m.QualityScore,
		"duration_ms", m.DurationMs,
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			fields = append(fields, "trace_id", td.TraceID)
		}
		if td.JobID != "" {
			fields = append(fields, "job_id", td.JobID)
		}
	}
	if log != nil {
		log.Info("thread detection run complete", fields...)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("threads.candidates", m.Candidates),
			attribute.Int("threads.new", m.NewThreads),
			attribute.Int("threads.updated", m.UpdatedThreads),
			attribute.Int("threads.malformed", m.Malformed),
			attribute.String("threads.rotation_status", string(m.RotationStatus)),
			attribute.Float64("threads.quality_score", m.QualityScore),
		)
	}

	Current().ObserveRun(m)
}

// ObserveRun records one run's counters and histograms.
func (m *Metrics) ObserveRun(tm *threads.ThreadMetrics) {
	if m == nil || tm == nil {
		return
	}
	status := "ok"
	if tm.Failed > 0 {
		status = "partial"
	}
	m.runs.Inc(status)
	m.runDuration.Observe((time.Duration(tm.DurationMs) * time.Millisecond).Seconds(), status)
	m.rotations.Observe(float64(tm.RotationIterations), string(tm.RotationStatus))
	m.quality.Observe(tm.QualityScore, string(tm.RotationStatus))

	m.candidates.Add(float64(tm.NewThreads), "created")
	m.candidates.Add(float64(tm.MatchedThreads), "matched")
	m.candidates.Add(float64(tm.Replayed), "replayed")
	m.candidates.Add(float64(tm.Malformed), "malformed")
	m.candidates.Add(float64(tm.Failed), "failed")

	var changes map[string]int
	if err := json.Unmarshal(tm.ChangeTypeCounts, &changes); err == nil {
		for ct, n := range changes {
			m.changes.Add(float64(n), ct)
		}
	}
}
