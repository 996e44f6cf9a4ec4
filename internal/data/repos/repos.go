package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/govgen-backend/internal/data/repos/generation"
	"github.com/yungbote/govgen-backend/internal/data/repos/governance"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type DocumentRepo = governance.DocumentRepo

type GenerationRepo = generation.GenerationRepo
type ValidationRepo = generation.ValidationRepo
type MetricSnapshotRepo = generation.MetricSnapshotRepo

func NewDocumentRepo(db *gorm.DB, log *logger.Logger) DocumentRepo {
	return governance.NewDocumentRepo(db, log)
}

func NewGenerationRepo(db *gorm.DB, log *logger.Logger) GenerationRepo {
	return generation.NewGenerationRepo(db, log)
}

func NewValidationRepo(db *gorm.DB, log *logger.Logger) ValidationRepo {
	return generation.NewValidationRepo(db, log)
}

func NewMetricSnapshotRepo(db *gorm.DB, log *logger.Logger) MetricSnapshotRepo {
	return generation.NewMetricSnapshotRepo(db, log)
}
