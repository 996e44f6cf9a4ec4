package generation

import (
	"time"

	"github.com/google/uuid"
)

type Generation struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID  uuid.UUID `gorm:"column:owner_user_id;type:varchar(36);not null;index" json:"ownerUserId"`
	Title        string    `gorm:"column:title;size:255;not null" json:"title"`
	Description  *string   `gorm:"column:description;type:text" json:"description,omitempty"`
	ContextQuery string    `gorm:"column:context_query;type:text;not null" json:"contextQuery"`

	CotReasoning   *string `gorm:"column:cot_reasoning;type:text" json:"cotReasoning,omitempty"`
	GeneratedCode  *string `gorm:"column:generated_code;type:text" json:"generatedCode,omitempty"`
	GeneratedTests *string `gorm:"column:generated_tests;type:text" json:"generatedTests,omitempty"`

	Status Status `gorm:"column:status;size:32;not null;default:'pending';index" json:"status"`

	// Wall-clock milliseconds of the code+tests stage only.
	GenerationTimeMs *int64  `gorm:"column:generation_time_ms" json:"generationTimeMs,omitempty"`
	FailureReason    *string `gorm:"column:failure_reason;type:text" json:"failureReason,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Generation) TableName() string { return "generation" }
