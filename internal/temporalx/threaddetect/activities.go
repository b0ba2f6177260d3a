package threaddetect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/detect"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/facet"
	"github.com/yungbote/neurobridge-threads/internal/observability"
	"github.com/yungbote/neurobridge-threads/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
	"github.com/yungbote/neurobridge-threads/internal/platform/neo4jdb"
)

type Activities struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Config    config.Config
	Locker    courselock.Locker
	Publisher detect.MetricsSink
	Graph     *neo4jdb.Client
}

func (a *Activities) DetectLecture(ctx context.Context, req LectureRequest) (LectureSummary, error) {
	sum := LectureSummary{LectureID: req.Input.LectureID.String()}
	if a == nil || a.DB == nil || a.Locker == nil {
		return sum, fmt.Errorf("thread_detect: activity not configured")
	}
	start := time.Now()
	info := activity.GetInfo(ctx)
	ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{JobID: info.WorkflowExecution.ID})

	cfg := a.Config
	cfg.ApplyPayload(req.Config)
	deps, err := detect.NewDeps(cfg, a.DB, a.Log.With("workflow_id", info.WorkflowExecution.ID))
	if err != nil {
		observability.Current().ObserveActivity(ActivityDetectLecture, "invalid_config", time.Since(start))
		return sum, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidConfig, err)
	}
	deps.Locker = a.Locker
	deps.Publisher = a.Publisher
	if cfg.GraphSyncEnabled {
		deps.Graph = a.Graph
	}

	stopHB := startHeartbeat(ctx)
	out, err := detect.Run(ctx, deps, req.Input)
	stopHB()
	if err != nil {
		classified := Classify(err)
		status := "retry"
		var appErr *temporal.ApplicationError
		if errors.As(classified, &appErr) && appErr.NonRetryable() {
			status = "rejected"
		}
		observability.Current().ObserveActivity(ActivityDetectLecture, status, time.Since(start))
		return sum, classified
	}
	observability.Current().ObserveActivity(ActivityDetectLecture, "ok", time.Since(start))
	return Summarize(out), nil
}

// Classify turns input and configuration errors into non-retryable application errors.
// Everything else, persistence conflicts included, stays retryable.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, detect.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, facet.ErrInvalidWeightConfiguration), errors.Is(err, config.ErrInvalidConfig):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidConfig, err)
	default:
		return err
	}
}

func Summarize(out *detect.Output) LectureSummary {
	if out == nil || out.Metrics == nil {
		return LectureSummary{}
	}
	m := out.Metrics
	sum := LectureSummary{
		LectureID:      m.LectureID.String(),
		RotationStatus: string(m.RotationStatus),
		Iterations:     m.RotationIterations,
		NewThreads:     m.NewThreads,
		UpdatedThreads: m.UpdatedThreads,
		Replayed:       m.Replayed,
		Malformed:      m.Malformed,
		QualityScore:   m.QualityScore,
	}
	if out.Rotation != nil {
		sum.DominantFacet = string(out.Rotation.DominantFacet)
	}
	return sum
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
