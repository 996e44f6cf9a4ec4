package generation

import (
	"time"

	"gorm.io/datatypes"
)

// Validation is one model-judged verdict on a generation's code and tests.
// Rows are append-only; the newest row is the current verdict. The values
// reflect model self-assessment, not executed tests.
type Validation struct {
	ID                 uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	GenerationID       uint           `gorm:"column:generation_id;not null;index" json:"generationId"`
	TestsPassed        bool           `gorm:"column:tests_passed;not null" json:"testsPassed"`
	TestCoverage       int            `gorm:"column:test_coverage;not null" json:"testCoverage"`
	AdrCompliant       bool           `gorm:"column:adr_compliant;not null" json:"adrCompliant"`
	CpApViolations     int            `gorm:"column:cp_ap_violations;not null" json:"cpApViolations"`
	PiiMaskingEnforced bool           `gorm:"column:pii_masking_enforced;not null" json:"piiMaskingEnforced"`
	Details            string         `gorm:"column:details;type:text" json:"details"`
	RawResponse        datatypes.JSON `gorm:"column:raw_response" json:"-"`
	CreatedAt          time.Time      `gorm:"column:created_at;not null;index" json:"createdAt"`
}

func (Validation) TableName() string { return "validation" }

// Compliant is the fully-compliant gate: ADR compliant, PII masking enforced
// and no CP/AP violations. Tests passing is reported separately.
func (v Validation) Compliant() bool {
	return v.AdrCompliant && v.PiiMaskingEnforced && v.CpApViolations == 0
}

// Verdict is the decoded model response for the validation stage.
type Verdict struct {
	TestsPassed        bool
	TestCoverage       int
	AdrCompliant       bool
	CpApViolations     int
	PiiMaskingEnforced bool
	Details            string
}
