package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type GenerationRepo interface {
	Create(dbc dbctx.Context, g *types.Generation) (*types.Generation, error)
	GetByID(dbc dbctx.Context, ownerUserID uuid.UUID, id uint) (*types.Generation, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.Generation, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	// UpdateFieldsIfStatus applies updates only while the row still holds
	// expected. It reports whether a row was written.
	UpdateFieldsIfStatus(dbc dbctx.Context, id uint, expected types.GenerationStatus, updates map[string]interface{}) (bool, error)
}

type generationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
	return &generationRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationRepo"),
	}
}

func (r *generationRepo) Create(dbc dbctx.Context, g *types.Generation) (*types.Generation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if g.Status == "" {
		g.Status = types.StatusPending
	}
	if err := transaction.WithContext(dbc.Ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

func (r *generationRepo) GetByID(dbc dbctx.Context, ownerUserID uuid.UUID, id uint) (*types.Generation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 || ownerUserID == uuid.Nil {
		return nil, nil
	}
	var g types.Generation
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).
		Find(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	return &g, nil
}

func (r *generationRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.Generation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Generation{}
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *generationRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Generation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *generationRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uint, expected types.GenerationStatus, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Generation{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
