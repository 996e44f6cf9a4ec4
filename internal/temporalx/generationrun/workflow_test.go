package generationrun

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	types "github.com/yungbote/govgen-backend/internal/domain"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/pkg/pointers"
	"github.com/yungbote/govgen-backend/internal/services"
)

// fakePipeline advances one in-memory generation through the stages.
type fakePipeline struct {
	services.GenerationPipeline
	gen         types.Generation
	calls       []string
	failOnStage string
}

func (f *fakePipeline) Get(_ context.Context, owner uuid.UUID, id uint) (*services.GenerationWithValidation, error) {
	if owner != f.gen.OwnerUserID || id != f.gen.ID {
		return nil, errs.ErrNotFound
	}
	g := f.gen
	return &services.GenerationWithValidation{Generation: &g}, nil
}

func (f *fakePipeline) Reason(_ context.Context, _ uuid.UUID, _ uint, _ string) (*types.Generation, error) {
	f.calls = append(f.calls, services.StageReason)
	if f.failOnStage == services.StageReason {
		return nil, fmt.Errorf("upstream: %w", errs.ErrModelUnavailable)
	}
	f.gen.CotReasoning = pointers.String("Step 1: read ADR-001")
	f.gen.Status = types.StatusGenerating
	g := f.gen
	return &g, nil
}

func (f *fakePipeline) Generate(_ context.Context, _ uuid.UUID, _ uint) (*types.Generation, error) {
	f.calls = append(f.calls, services.StageGenerate)
	if f.failOnStage == services.StageGenerate {
		return nil, fmt.Errorf("upstream: %w", errs.ErrModelUnavailable)
	}
	f.gen.GeneratedCode = pointers.String("public class Claims {}")
	f.gen.GeneratedTests = pointers.String("public class ClaimsTests {}")
	f.gen.Status = types.StatusValidating
	g := f.gen
	return &g, nil
}

func (f *fakePipeline) Validate(_ context.Context, _ uuid.UUID, _ uint) (*types.Validation, *types.Generation, error) {
	f.calls = append(f.calls, services.StageValidate)
	f.gen.Status = types.StatusCompleted
	g := f.gen
	return &types.Validation{GenerationID: g.ID, TestsPassed: true, TestCoverage: 90}, &g, nil
}

func newEnv(t *testing.T, p *fakePipeline) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Pipeline: p}
	env.RegisterWorkflow(Workflow)
	env.RegisterActivityWithOptions(acts.Reason, activity.RegisterOptions{Name: ActivityReason})
	env.RegisterActivityWithOptions(acts.Generate, activity.RegisterOptions{Name: ActivityGenerate})
	env.RegisterActivityWithOptions(acts.Validate, activity.RegisterOptions{Name: ActivityValidate})
	return env
}

func TestWorkflowRunsAllStagesInOrder(t *testing.T) {
	owner := uuid.New()
	p := &fakePipeline{gen: types.Generation{ID: 7, OwnerUserID: owner, Status: types.StatusPending}}
	env := newEnv(t, p)

	env.ExecuteWorkflow(Workflow, RunInput{GenerationID: 7, OwnerUserID: owner, ContextQuery: "claims"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res RunResult
	require.NoError(t, env.GetWorkflowResult(&res))
	require.Equal(t, string(types.StatusCompleted), res.Status)
	require.Len(t, res.Stages, 3)
	require.Equal(t, []string{services.StageReason, services.StageGenerate, services.StageValidate}, p.calls)
}

func TestWorkflowSkipsFinishedStages(t *testing.T) {
	owner := uuid.New()
	p := &fakePipeline{gen: types.Generation{
		ID: 8, OwnerUserID: owner, Status: types.StatusValidating,
		CotReasoning: pointers.String("r"), GeneratedCode: pointers.String("c"), GeneratedTests: pointers.String("t"),
	}}
	env := newEnv(t, p)

	env.ExecuteWorkflow(Workflow, RunInput{GenerationID: 8, OwnerUserID: owner})
	require.NoError(t, env.GetWorkflowError())

	var res RunResult
	require.NoError(t, env.GetWorkflowResult(&res))
	require.True(t, res.Stages[0].Skipped)
	require.True(t, res.Stages[1].Skipped)
	require.Equal(t, []string{services.StageValidate}, p.calls)
}

func TestWorkflowStopsOnStageFailureWithoutRetry(t *testing.T) {
	owner := uuid.New()
	p := &fakePipeline{gen: types.Generation{ID: 9, OwnerUserID: owner, Status: types.StatusPending}, failOnStage: services.StageGenerate}
	env := newEnv(t, p)

	env.ExecuteWorkflow(Workflow, RunInput{GenerationID: 9, OwnerUserID: owner})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Equal(t, []string{services.StageReason, services.StageGenerate}, p.calls)
	require.Equal(t, types.StatusGenerating, p.gen.Status)
}

func TestWorkflowRejectsOtherOwner(t *testing.T) {
	p := &fakePipeline{gen: types.Generation{ID: 10, OwnerUserID: uuid.New(), Status: types.StatusPending}}
	env := newEnv(t, p)

	env.ExecuteWorkflow(Workflow, RunInput{GenerationID: 10, OwnerUserID: uuid.New()})
	require.Error(t, env.GetWorkflowError())
	require.Empty(t, p.calls)
}

func TestWorkflowIDIsStable(t *testing.T) {
	require.Equal(t, "generation-run-42", WorkflowID(42))
}
