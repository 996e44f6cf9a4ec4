package generationrun

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	types "github.com/yungbote/govgen-backend/internal/domain"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	Pipeline services.GenerationPipeline
}

func (a *Activities) Reason(ctx context.Context, in RunInput) (StageResult, error) {
	res := StageResult{Stage: services.StageReason}
	g, err := a.load(ctx, in)
	if err != nil {
		return res, err
	}
	if g.CotReasoning != nil {
		res.Status, res.Skipped = string(g.Status), true
		return res, nil
	}
	g, err = a.Pipeline.Reason(ctx, in.OwnerUserID, in.GenerationID, in.ContextQuery)
	if err != nil {
		return res, wrap(err)
	}
	res.Status = string(g.Status)
	return res, nil
}

func (a *Activities) Generate(ctx context.Context, in RunInput) (StageResult, error) {
	res := StageResult{Stage: services.StageGenerate}
	g, err := a.load(ctx, in)
	if err != nil {
		return res, err
	}
	if g.GeneratedCode != nil {
		res.Status, res.Skipped = string(g.Status), true
		return res, nil
	}
	g, err = a.Pipeline.Generate(ctx, in.OwnerUserID, in.GenerationID)
	if err != nil {
		return res, wrap(err)
	}
	res.Status = string(g.Status)
	return res, nil
}

func (a *Activities) Validate(ctx context.Context, in RunInput) (StageResult, error) {
	res := StageResult{Stage: services.StageValidate}
	g, err := a.load(ctx, in)
	if err != nil {
		return res, err
	}
	if g.Status == types.StatusCompleted {
		res.Status, res.Skipped = string(g.Status), true
		return res, nil
	}
	_, g, err = a.Pipeline.Validate(ctx, in.OwnerUserID, in.GenerationID)
	if err != nil {
		return res, wrap(err)
	}
	res.Status = string(g.Status)
	return res, nil
}

func (a *Activities) load(ctx context.Context, in RunInput) (*types.Generation, error) {
	if a == nil || a.Pipeline == nil {
		return nil, fmt.Errorf("generationrun: activity not configured")
	}
	if a.Log != nil {
		info := activity.GetInfo(ctx)
		a.Log.Debug("Generation run activity", "activity", info.ActivityType.Name, "generation_id", in.GenerationID, "attempt", info.Attempt)
	}
	out, err := a.Pipeline.Get(ctx, in.OwnerUserID, in.GenerationID)
	if err != nil {
		return nil, wrap(err)
	}
	if out.Generation.Status == types.StatusFailed {
		return nil, wrap(fmt.Errorf("generation %d is failed: %w", in.GenerationID, errs.ErrPreconditionFailed))
	}
	return out.Generation, nil
}

// wrap marks caller errors non-retryable so a misconfigured retry policy
// cannot call the model again for them.
func wrap(err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), "not_found", err)
	case errors.Is(err, errs.ErrPreconditionFailed):
		return temporal.NewNonRetryableApplicationError(err.Error(), "precondition_failed", err)
	case errors.Is(err, errs.ErrConflict):
		return temporal.NewNonRetryableApplicationError(err.Error(), "stage_in_progress", err)
	default:
		return err
	}
}
