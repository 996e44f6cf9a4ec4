package generationrun

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
)

type Run struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

// Start launches the run workflow, or returns the one already running for
// the same generation.
func Start(ctx context.Context, tc temporalsdkclient.Client, taskQueue string, in RunInput) (*Run, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	we, err := tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(in.GenerationID),
		TaskQueue:                taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, WorkflowName, in)
	if err != nil {
		return nil, fmt.Errorf("start generation run: %w", err)
	}
	return &Run{WorkflowID: we.GetID(), RunID: we.GetRunID()}, nil
}
