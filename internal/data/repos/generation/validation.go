package generation

import (
	"gorm.io/gorm"

	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

// ValidationRepo is append-only: there is no update or delete.
type ValidationRepo interface {
	Create(dbc dbctx.Context, v *types.Validation) (*types.Validation, error)
	GetLatestByGenerationID(dbc dbctx.Context, generationID uint) (*types.Validation, error)
	ListByGenerationIDs(dbc dbctx.Context, generationIDs []uint) ([]*types.Validation, error)
}

type validationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewValidationRepo(db *gorm.DB, baseLog *logger.Logger) ValidationRepo {
	return &validationRepo{
		db:  db,
		log: baseLog.With("repo", "ValidationRepo"),
	}
}

func (r *validationRepo) Create(dbc dbctx.Context, v *types.Validation) (*types.Validation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *validationRepo) GetLatestByGenerationID(dbc dbctx.Context, generationID uint) (*types.Validation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if generationID == 0 {
		return nil, nil
	}
	var v types.Validation
	err := transaction.WithContext(dbc.Ctx).
		Where("generation_id = ?", generationID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

// ListByGenerationIDs returns rows oldest first.
func (r *validationRepo) ListByGenerationIDs(dbc dbctx.Context, generationIDs []uint) ([]*types.Validation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Validation{}
	if len(generationIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("generation_id IN ?", generationIDs).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
