package generationrun

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	WorkflowName     = "generation_run"
	ActivityReason   = "generation_reason"
	ActivityGenerate = "generation_generate"
	ActivityValidate = "generation_validate"
)

type RunInput struct {
	GenerationID uint      `json:"generationId"`
	OwnerUserID  uuid.UUID `json:"ownerUserId"`
	ContextQuery string    `json:"contextQuery,omitempty"`
}

type StageResult struct {
	Stage   string `json:"stage"`
	Status  string `json:"status"`
	Skipped bool   `json:"skipped,omitempty"`
}

type RunResult struct {
	GenerationID uint          `json:"generationId"`
	Status       string        `json:"status"`
	Stages       []StageResult `json:"stages"`
}

// WorkflowID is stable per generation so a second run attaches to the first.
func WorkflowID(generationID uint) string {
	return fmt.Sprintf("generation-run-%d", generationID)
}
