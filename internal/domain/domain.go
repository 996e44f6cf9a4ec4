package domain

import (
	"github.com/yungbote/govgen-backend/internal/domain/generation"
	"github.com/yungbote/govgen-backend/internal/domain/governance"
)

type GovernanceDocument = governance.Document
type DocumentType = governance.DocumentType

type Generation = generation.Generation
type GenerationStatus = generation.Status
type Validation = generation.Validation
type Verdict = generation.Verdict
type MetricSnapshot = generation.MetricSnapshot

const (
	DocumentTypeADR        = governance.DocumentTypeADR
	DocumentTypeGovernance = governance.DocumentTypeGovernance
	DocumentTypeStandard   = governance.DocumentTypeStandard
	DocumentTypeOther      = governance.DocumentTypeOther
)

const (
	StatusPending    = generation.StatusPending
	StatusReasoning  = generation.StatusReasoning
	StatusGenerating = generation.StatusGenerating
	StatusValidating = generation.StatusValidating
	StatusCompleted  = generation.StatusCompleted
	StatusFailed     = generation.StatusFailed
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&governance.Document{},
		&generation.Generation{},
		&generation.Validation{},
		&generation.MetricSnapshot{},
	}
}
