package threaddetect

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"
)

// Start submits a detection run. Runs for one course share a workflow id, so a second
// submission while one is running is rejected by Temporal.
func Start(ctx context.Context, c temporalsdkclient.Client, taskQueue string, req Request) (temporalsdkclient.WorkflowRun, error) {
	if c == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if len(req.Lectures) == 0 {
		return nil, fmt.Errorf("thread_detect: no lectures")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        WorkflowID(req),
		TaskQueue: taskQueue,
	}
	return c.ExecuteWorkflow(ctx, opts, WorkflowName, req)
}

func WorkflowID(req Request) string {
	if len(req.Lectures) == 0 {
		return WorkflowName
	}
	return WorkflowName + ":" + req.Lectures[0].CourseID.String()
}
