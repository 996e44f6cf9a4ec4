package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/govgen-backend/internal/data/repos"
	"github.com/yungbote/govgen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/pkg/pointers"
)

func verdictRow(genID uint, coverage int, compliant bool) *types.Validation {
	return &types.Validation{
		GenerationID:       genID,
		TestsPassed:        true,
		TestCoverage:       coverage,
		AdrCompliant:       compliant,
		PiiMaskingEnforced: true,
	}
}

func TestSummarize(t *testing.T) {
	gens := []*types.Generation{
		{ID: 1, Status: types.StatusCompleted, GenerationTimeMs: pointers.Int64(1000)},
		{ID: 2, Status: types.StatusCompleted, GenerationTimeMs: pointers.Int64(2001)},
		{ID: 3, Status: types.StatusFailed, GenerationTimeMs: pointers.Int64(99999)},
		{ID: 4, Status: types.StatusValidating, GenerationTimeMs: pointers.Int64(50000)},
	}
	rows := []*types.Validation{
		verdictRow(1, 80, true),
		verdictRow(1, 90, true),
		verdictRow(2, 60, true),
		verdictRow(2, 70, false),
	}
	got := Summarize(gens, rows)

	assert.Equal(t, 4, got.TotalGenerations)
	assert.Equal(t, 2, got.CompletedGenerations)
	assert.Equal(t, 1, got.FailedGenerations)
	assert.Equal(t, 1, got.InProgress)
	assert.Equal(t, 50.0, got.SuccessRate)
	assert.Equal(t, int64(1501), got.AverageGenerationTimeMs)
	assert.Equal(t, 80.0, got.AverageTestCoverage)
	assert.Equal(t, 1, got.FullyCompliant)
	assert.Equal(t, 50.0, got.DeterminismRate)
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, nil)
	assert.Equal(t, &MetricsSummary{}, got)
}

func TestMetricsServiceSnapshots(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	owner := uuid.New()
	gens := repos.NewGenerationRepo(db, log)
	vals := repos.NewValidationRepo(db, log)
	svc := NewMetricsService(log, gens, vals, repos.NewDocumentRepo(db, log), repos.NewMetricSnapshotRepo(db, log))

	testutil.SeedDocument(t, ctx, db, owner, types.DocumentTypeADR, "ADR-001", "c")
	done := testutil.SeedGeneration(t, ctx, db, owner, types.StatusCompleted)
	require.NoError(t, gens.UpdateFields(dbctx.New(ctx), done.ID, map[string]interface{}{"generation_time_ms": int64(1200)}))
	_, err := vals.Create(dbctx.New(ctx), verdictRow(done.ID, 88, true))
	require.NoError(t, err)
	testutil.SeedGeneration(t, ctx, db, owner, types.StatusPending)

	sum, err := svc.Summary(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalGenerations)
	assert.Equal(t, 50.0, sum.SuccessRate)
	assert.Equal(t, int64(1200), sum.AverageGenerationTimeMs)
	assert.Equal(t, 88.0, sum.AverageTestCoverage)
	assert.Equal(t, 1, sum.Documents)

	snap, err := svc.CreateSnapshot(ctx, owner, "2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.SuccessfulGenerations)
	assert.Equal(t, 88.0, snap.AverageTestCoverage)

	_, err = svc.CreateSnapshot(ctx, owner, "  ")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	list, err := svc.ListSnapshots(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-Q1", list[0].Period)
}
