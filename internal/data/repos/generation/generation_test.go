package generation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/govgen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
)

func TestGenerationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewGenerationRepo(db, testutil.Logger(t))

	owner := uuid.New()
	g, err := repo.Create(dbc, &types.Generation{OwnerUserID: owner, Title: "Claims", ContextQuery: "Build claims service"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), g.ID)
	assert.Equal(t, types.StatusPending, g.Status)

	second, err := repo.Create(dbc, &types.Generation{OwnerUserID: owner, Title: "Payments", ContextQuery: "Build payments"})
	require.NoError(t, err)

	list, err := repo.ListByOwner(dbc, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, g.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	ok, err := repo.UpdateFieldsIfStatus(dbc, g.ID, types.StatusPending, map[string]interface{}{"status": types.StatusReasoning})
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale writer expecting pending must not land.
	ok, err = repo.UpdateFieldsIfStatus(dbc, g.ID, types.StatusPending, map[string]interface{}{"status": types.StatusFailed})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(dbc, owner, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.StatusReasoning, got.Status)

	missing, err := repo.GetByID(dbc, uuid.New(), g.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestValidationRepoAppendsAndReturnsNewest(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	gens := NewGenerationRepo(db, testutil.Logger(t))
	repo := NewValidationRepo(db, testutil.Logger(t))

	g, err := gens.Create(dbc, &types.Generation{OwnerUserID: uuid.New(), Title: "Claims", ContextQuery: "q"})
	require.NoError(t, err)

	none, err := repo.GetLatestByGenerationID(dbc, g.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.Create(dbc, &types.Validation{GenerationID: g.ID, TestCoverage: 40, CpApViolations: 2, RawResponse: datatypes.JSON(`{"testCoverage":40}`)})
	require.NoError(t, err)
	_, err = repo.Create(dbc, &types.Validation{GenerationID: g.ID, TestsPassed: true, TestCoverage: 92, AdrCompliant: true, PiiMaskingEnforced: true, RawResponse: datatypes.JSON(`{"testCoverage":92}`)})
	require.NoError(t, err)

	latest, err := repo.GetLatestByGenerationID(dbc, g.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 92, latest.TestCoverage)
	assert.True(t, latest.Compliant())

	all, err := repo.ListByGenerationIDs(dbc, []uint{g.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 40, all[0].TestCoverage)
	assert.JSONEq(t, `{"testCoverage":40}`, string(all[0].RawResponse))
}

func TestMetricSnapshotRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewMetricSnapshotRepo(db, testutil.Logger(t))

	owner := uuid.New()
	for _, period := range []string{"2026-W40", "2026-W41"} {
		_, err := repo.Create(dbc, &types.MetricSnapshot{OwnerUserID: owner, Period: period, TotalGenerations: 3})
		require.NoError(t, err)
	}
	out, err := repo.ListByOwner(dbc, owner, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2026-W41", out[0].Period)
}
