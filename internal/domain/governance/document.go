package governance

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentType classifies a governance document. It is rendered upper-cased in
// assembled context blocks.
type DocumentType string

const (
	DocumentTypeADR        DocumentType = "adr"
	DocumentTypeGovernance DocumentType = "governance"
	DocumentTypeStandard   DocumentType = "standard"
	DocumentTypeOther      DocumentType = "other"
)

const MaxTitleLength = 255

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeADR, DocumentTypeGovernance, DocumentTypeStandard, DocumentTypeOther:
		return true
	}
	return false
}

// ParseDocumentType normalizes s; the empty string maps to "other".
func ParseDocumentType(s string) (DocumentType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DocumentTypeOther, true
	}
	t := DocumentType(s)
	return t, t.Valid()
}

type Document struct {
	ID          uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID uuid.UUID    `gorm:"column:owner_user_id;type:varchar(36);not null;index" json:"ownerUserId"`
	Title       string       `gorm:"column:title;size:255;not null" json:"title"`
	Description *string      `gorm:"column:description;type:text" json:"description,omitempty"`
	Content     string       `gorm:"column:content;type:text;not null" json:"content"`
	Type        DocumentType `gorm:"column:type;size:32;not null;default:'other'" json:"type"`
	FileURL     *string      `gorm:"column:file_url;type:text" json:"fileUrl,omitempty"`
	FileKey     *string      `gorm:"column:file_key;type:text" json:"fileKey,omitempty"`

	// Reserved for an embedding pipeline; nothing sets it yet.
	Vectorized bool      `gorm:"column:vectorized;not null;default:false" json:"vectorized"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Document) TableName() string { return "governance_document" }
