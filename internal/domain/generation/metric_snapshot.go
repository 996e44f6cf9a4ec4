package generation

import (
	"time"

	"github.com/google/uuid"
)

// MetricSnapshot freezes the owner's pipeline summary under a named period.
type MetricSnapshot struct {
	ID                      uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID             uuid.UUID `gorm:"column:owner_user_id;type:varchar(36);not null;index" json:"ownerUserId"`
	Period                  string    `gorm:"column:period;size:50;not null" json:"period"`
	TotalGenerations        int       `gorm:"column:total_generations;not null" json:"totalGenerations"`
	SuccessfulGenerations   int       `gorm:"column:successful_generations;not null" json:"successfulGenerations"`
	AverageTestCoverage     float64   `gorm:"column:average_test_coverage;not null" json:"averageTestCoverage"`
	DeterminismRate         float64   `gorm:"column:determinism_rate;not null" json:"determinismRate"`
	AverageGenerationTimeMs int64     `gorm:"column:average_generation_time_ms;not null" json:"averageGenerationTimeMs"`
	CreatedAt               time.Time `gorm:"column:created_at;not null;index" json:"createdAt"`
}

func (MetricSnapshot) TableName() string { return "metric_snapshot" }
