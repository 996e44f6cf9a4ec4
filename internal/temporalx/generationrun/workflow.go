package generationrun

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow drives reason, generate and validate in order. Each activity runs
// at most once; a failed stage ends the run and leaves the generation where
// the stage found it.
func Workflow(ctx workflow.Context, in RunInput) (RunResult, error) {
	res := RunResult{GenerationID: in.GenerationID}
	if in.GenerationID == 0 {
		return res, temporal.NewNonRetryableApplicationError("generationrun: missing generation id", "invalid_input", nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	log := workflow.GetLogger(ctx)
	for _, name := range []string{ActivityReason, ActivityGenerate, ActivityValidate} {
		var out StageResult
		if err := workflow.ExecuteActivity(ctx, name, in).Get(ctx, &out); err != nil {
			log.Warn("Generation run stage failed", "generation_id", in.GenerationID, "activity", name, "error", err)
			return res, fmt.Errorf("%s: %w", name, err)
		}
		res.Stages = append(res.Stages, out)
		res.Status = out.Status
	}
	return res, nil
}
