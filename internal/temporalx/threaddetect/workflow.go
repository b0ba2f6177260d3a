package threaddetect

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ActivityOptions retries conflicts and transient store errors with exponential backoff.
func ActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        6,
			NonRetryableErrorTypes: []string{ErrTypeInvalidInput, ErrTypeInvalidConfig},
		},
	}
}

// Workflow detects threads for each lecture in request order. Continuity depends on
// lecture order, so a failed lecture stops the run.
func Workflow(ctx workflow.Context, req Request) (Result, error) {
	var res Result
	if len(req.Lectures) == 0 {
		return res, temporal.NewNonRetryableApplicationError("thread_detect: no lectures", ErrTypeInvalidInput, nil)
	}
	ctx = workflow.WithActivityOptions(ctx, ActivityOptions())
	log := workflow.GetLogger(ctx)

	for i, in := range req.Lectures {
		var sum LectureSummary
		err := workflow.ExecuteActivity(ctx, ActivityDetectLecture, LectureRequest{Input: in, Config: req.Config}).Get(ctx, &sum)
		if err != nil {
			log.Error("lecture thread detection failed", "index", i, "lecture_id", in.LectureID.String(), "error", err)
			return res, err
		}
		log.Info("lecture threads detected", "lecture_id", sum.LectureID, "new_threads", sum.NewThreads, "quality_score", sum.QualityScore)
		res.Lectures = append(res.Lectures, sum)
	}
	return res, nil
}

func workflowOptions() workflow.RegisterOptions {
	return workflow.RegisterOptions{Name: WorkflowName}
}
