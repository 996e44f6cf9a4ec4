package governance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.GovernanceDocument) (*types.GovernanceDocument, error)
	GetByID(dbc dbctx.Context, ownerUserID uuid.UUID, id uint) (*types.GovernanceDocument, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.GovernanceDocument, error)
	UpdateFields(dbc dbctx.Context, ownerUserID uuid.UUID, id uint, updates map[string]interface{}) (bool, error)
	Delete(dbc dbctx.Context, ownerUserID uuid.UUID, id uint) (bool, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{
		db:  db,
		log: baseLog.With("repo", "DocumentRepo"),
	}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.GovernanceDocument) (*types.GovernanceDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, ownerUserID uuid.UUID, id uint) (*types.GovernanceDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 || ownerUserID == uuid.Nil {
		return nil, nil
	}
	var doc types.GovernanceDocument
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).
		Find(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *documentRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.GovernanceDocument, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.GovernanceDocument{}
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

func (r *documentRepo) UpdateFields(dbc dbctx.Context, ownerUserID uuid.UUID, id uint, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 || ownerUserID == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.GovernanceDocument{}).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepo) Delete(dbc dbctx.Context, ownerUserID uuid.UUID, id uint) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 || ownerUserID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Delete(&types.GovernanceDocument{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
