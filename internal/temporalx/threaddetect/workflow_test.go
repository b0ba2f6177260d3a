package threaddetect

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/continuity"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/detect"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/dice"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/facet"
)

func newEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflowOptions())
	env.RegisterActivityWithOptions(func(ctx context.Context, req LectureRequest) (LectureSummary, error) {
		return LectureSummary{}, nil
	}, activity.RegisterOptions{Name: ActivityDetectLecture})
	return env
}

func lecture(courseID uuid.UUID) detect.Input {
	return detect.Input{
		CourseID:  courseID,
		LectureID: uuid.New(),
		Candidates: []continuity.Candidate{{
			Title:         "Derivative as a limit",
			Evidence:      "define derivative as limit of difference quotient",
			DominantFacet: threads.FacetWhat,
		}},
	}
}

func TestWorkflowRunsLecturesInOrder(t *testing.T) {
	env := newEnv(t)
	courseID := uuid.New()
	req := Request{Lectures: []detect.Input{lecture(courseID), lecture(courseID)}, Config: map[string]any{"match_threshold": 0.7}}

	var seen []string
	env.OnActivity(ActivityDetectLecture, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, lr LectureRequest) (LectureSummary, error) {
			if lr.Config["match_threshold"] != 0.7 {
				return LectureSummary{}, fmt.Errorf("config not forwarded: %v", lr.Config)
			}
			seen = append(seen, lr.Input.LectureID.String())
			return LectureSummary{LectureID: lr.Input.LectureID.String(), NewThreads: 1}, nil
		})

	env.ExecuteWorkflow(WorkflowName, req)
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res Result
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if len(res.Lectures) != 2 || len(seen) != 2 {
		t.Fatalf("lectures = %d, activity calls = %d", len(res.Lectures), len(seen))
	}
	for i, in := range req.Lectures {
		if seen[i] != in.LectureID.String() || res.Lectures[i].LectureID != in.LectureID.String() {
			t.Fatalf("lecture %d out of order", i)
		}
	}
}

func TestWorkflowRetriesTransientFailure(t *testing.T) {
	env := newEnv(t)
	env.OnActivity(ActivityDetectLecture, mock.Anything, mock.Anything).
		Return(LectureSummary{}, fmt.Errorf("wrapped: %w", continuity.ErrPersistenceConflict)).Once()
	env.OnActivity(ActivityDetectLecture, mock.Anything, mock.Anything).
		Return(LectureSummary{NewThreads: 1}, nil).Once()

	env.ExecuteWorkflow(WorkflowName, Request{Lectures: []detect.Input{lecture(uuid.New())}})
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error after retry: %v", err)
	}
	env.AssertExpectations(t)
}

func TestWorkflowStopsOnInvalidInput(t *testing.T) {
	env := newEnv(t)
	env.OnActivity(ActivityDetectLecture, mock.Anything, mock.Anything).
		Return(LectureSummary{}, Classify(fmt.Errorf("%w: no candidates", detect.ErrInvalidInput))).Once()

	env.ExecuteWorkflow(WorkflowName, Request{Lectures: []detect.Input{lecture(uuid.New()), lecture(uuid.New())}})
	err := env.GetWorkflowError()
	if err == nil {
		t.Fatal("expected workflow error")
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() != ErrTypeInvalidInput {
		t.Fatalf("err = %v, want %s application error", err, ErrTypeInvalidInput)
	}
	env.AssertNumberOfCalls(t, ActivityDetectLecture, 1)
}

func TestWorkflowRejectsEmptyRequest(t *testing.T) {
	env := newEnv(t)
	env.ExecuteWorkflow(WorkflowName, Request{})
	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("expected error for empty request")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err          error
		nonRetryable bool
		kind         string
	}{
		{fmt.Errorf("%w: x", detect.ErrInvalidInput), true, ErrTypeInvalidInput},
		{fmt.Errorf("%w: zero", facet.ErrInvalidWeightConfiguration), true, ErrTypeInvalidConfig},
		{fmt.Errorf("%w: backend", config.ErrInvalidConfig), true, ErrTypeInvalidConfig},
		{fmt.Errorf("%w: race", continuity.ErrPersistenceConflict), false, ""},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		var appErr *temporal.ApplicationError
		isApp := errors.As(got, &appErr)
		if isApp != tc.nonRetryable {
			t.Fatalf("Classify(%v) application error = %v", tc.err, isApp)
		}
		if isApp && (!appErr.NonRetryable() || appErr.Type() != tc.kind) {
			t.Fatalf("Classify(%v) = type %q nonRetryable %v", tc.err, appErr.Type(), appErr.NonRetryable())
		}
		if !isApp && !errors.Is(got, continuity.ErrPersistenceConflict) {
			t.Fatalf("retryable error lost its cause: %v", got)
		}
	}
	if Classify(nil) != nil {
		t.Fatal("Classify(nil) != nil")
	}
}

func TestSummarize(t *testing.T) {
	lectureID := uuid.New()
	out := &detect.Output{
		Rotation: &dice.RotationState{DominantFacet: threads.FacetWhy},
		Metrics: &threads.ThreadMetrics{
			LectureID:          lectureID,
			NewThreads:         2,
			RotationStatus:     threads.RotationEquilibrium,
			RotationIterations: 4,
			QualityScore:       0.8,
		},
	}
	sum := Summarize(out)
	if sum.LectureID != lectureID.String() || sum.DominantFacet != "WHY" || sum.NewThreads != 2 || sum.Iterations != 4 {
		t.Fatalf("summary = %+v", sum)
	}
	if (Summarize(nil) != LectureSummary{}) {
		t.Fatal("nil output should summarize to zero value")
	}
}
