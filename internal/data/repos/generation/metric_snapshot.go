package generation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type MetricSnapshotRepo interface {
	Create(dbc dbctx.Context, s *types.MetricSnapshot) (*types.MetricSnapshot, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.MetricSnapshot, error)
}

type metricSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetricSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) MetricSnapshotRepo {
	return &metricSnapshotRepo{
		db:  db,
		log: baseLog.With("repo", "MetricSnapshotRepo"),
	}
}

func (r *metricSnapshotRepo) Create(dbc dbctx.Context, s *types.MetricSnapshot) (*types.MetricSnapshot, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListByOwner returns snapshots newest first.
func (r *metricSnapshotRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.MetricSnapshot, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.MetricSnapshot{}
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
