package generation

import (
	"errors"
	"testing"
	"time"

	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/pkg/pointers"
)

func TestStatusCanMoveTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusReasoning, true},
		{StatusReasoning, StatusGenerating, true},
		{StatusGenerating, StatusValidating, true},
		{StatusValidating, StatusCompleted, true},
		{StatusGenerating, StatusReasoning, false},
		{StatusCompleted, StatusValidating, false},
		{StatusValidating, StatusFailed, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusPending, false},
		{StatusCompleted, StatusCompleted, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanMoveTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: want=%v got=%v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestBeginReasoning(t *testing.T) {
	step, err := BeginReasoning(Generation{ID: 1, Status: StatusPending})
	if err != nil {
		t.Fatalf("BeginReasoning: %v", err)
	}
	if step.Next.Status != StatusReasoning || step.Columns["status"] != StatusReasoning || step.Expect != StatusPending {
		t.Fatalf("BeginReasoning pending: got=%+v", step)
	}

	step, err = BeginReasoning(Generation{ID: 1, Status: StatusGenerating, CotReasoning: pointers.String("old")})
	if err != nil {
		t.Fatalf("BeginReasoning generating: %v", err)
	}
	if len(step.Columns) != 0 || step.Next.Status != StatusGenerating {
		t.Fatalf("BeginReasoning rerun: want no writes got=%+v", step.Columns)
	}

	for _, s := range []Status{StatusValidating, StatusCompleted, StatusFailed} {
		if _, err := BeginReasoning(Generation{Status: s}); !errors.Is(err, errs.ErrPreconditionFailed) {
			t.Fatalf("BeginReasoning(%s): want precondition got=%v", s, err)
		}
	}
}

func TestApplyReasoning(t *testing.T) {
	step, err := ApplyReasoning(Generation{ID: 3, Status: StatusReasoning}, "Step 1: identify ADRs")
	if err != nil {
		t.Fatalf("ApplyReasoning: %v", err)
	}
	if step.Next.Status != StatusGenerating || *step.Next.CotReasoning != "Step 1: identify ADRs" {
		t.Fatalf("ApplyReasoning: got=%+v", step.Next)
	}
	if step.Columns["cot_reasoning"] != "Step 1: identify ADRs" {
		t.Fatalf("ApplyReasoning columns: got=%v", step.Columns)
	}
	if _, err := ApplyReasoning(Generation{Status: StatusPending}, "x"); !errors.Is(err, errs.ErrPreconditionFailed) {
		t.Fatalf("ApplyReasoning(pending): want precondition got=%v", err)
	}
}

func TestCheckGenerateRequiresReasoning(t *testing.T) {
	if err := CheckGenerate(Generation{Status: StatusGenerating}); !errors.Is(err, errs.ErrPreconditionFailed) {
		t.Fatalf("CheckGenerate without cot: want precondition got=%v", err)
	}
	if err := CheckGenerate(Generation{Status: StatusCompleted, CotReasoning: pointers.String("r")}); !errors.Is(err, errs.ErrPreconditionFailed) {
		t.Fatalf("CheckGenerate completed: want precondition got=%v", err)
	}
	if err := CheckGenerate(Generation{Status: StatusValidating, CotReasoning: pointers.String("r")}); err != nil {
		t.Fatalf("CheckGenerate validating rerun: %v", err)
	}
}

func TestApplyArtifacts(t *testing.T) {
	g := Generation{ID: 4, Status: StatusGenerating, CotReasoning: pointers.String("r")}
	step, err := ApplyArtifacts(g, "public class ClaimsGovernance {}", "public class ClaimsGovernanceTests {}", 1500*time.Microsecond)
	if err != nil {
		t.Fatalf("ApplyArtifacts: %v", err)
	}
	if step.Next.Status != StatusValidating {
		t.Fatalf("status: want=validating got=%s", step.Next.Status)
	}
	if got := *step.Next.GenerationTimeMs; got != 2 {
		t.Fatalf("generation_time_ms: want=2 got=%d", got)
	}
	if step.Columns["generated_tests"] != "public class ClaimsGovernanceTests {}" {
		t.Fatalf("columns: got=%v", step.Columns)
	}
}

func TestElapsedMillis(t *testing.T) {
	cases := map[time.Duration]int64{
		0:                       0,
		time.Nanosecond:         1,
		time.Millisecond:        1,
		1001 * time.Microsecond: 2,
		2 * time.Second:         2000,
	}
	for d, want := range cases {
		if got := ElapsedMillis(d); got != want {
			t.Fatalf("ElapsedMillis(%s): want=%d got=%d", d, want, got)
		}
	}
}

func TestApplyVerdict(t *testing.T) {
	g := Generation{ID: 9, Status: StatusValidating, CotReasoning: pointers.String("r"), GeneratedCode: pointers.String("c"), GeneratedTests: pointers.String("t")}
	raw := []byte(`{"testsPassed":true,"testCoverage":92,"adrCompliant":true,"cpApViolations":0,"piiMaskingEnforced":true,"details":"ok"}`)
	step, row, err := ApplyVerdict(g, Verdict{TestsPassed: true, TestCoverage: 92, AdrCompliant: true, PiiMaskingEnforced: true, Details: "ok"}, raw)
	if err != nil {
		t.Fatalf("ApplyVerdict: %v", err)
	}
	if step.Next.Status != StatusCompleted || step.Columns["status"] != StatusCompleted {
		t.Fatalf("ApplyVerdict status: got=%+v", step)
	}
	if row.GenerationID != 9 || row.TestCoverage != 92 || !row.Compliant() {
		t.Fatalf("ApplyVerdict row: got=%+v", row)
	}
	if string(row.RawResponse) != string(raw) {
		t.Fatalf("raw response: want=%s got=%s", raw, row.RawResponse)
	}

	// Re-validating a completed generation appends a row without touching status.
	g.Status = StatusCompleted
	step, _, err = ApplyVerdict(g, Verdict{CpApViolations: 2}, raw)
	if err != nil {
		t.Fatalf("ApplyVerdict rerun: %v", err)
	}
	if len(step.Columns) != 0 {
		t.Fatalf("ApplyVerdict rerun columns: want none got=%v", step.Columns)
	}

	if _, _, err := ApplyVerdict(Generation{Status: StatusValidating}, Verdict{}, raw); !errors.Is(err, errs.ErrPreconditionFailed) {
		t.Fatalf("ApplyVerdict without code: want precondition got=%v", err)
	}
}

func TestNonCompliantVerdictIsStillAValidation(t *testing.T) {
	v := Validation{TestsPassed: false, TestCoverage: 40, AdrCompliant: false, CpApViolations: 2, PiiMaskingEnforced: false}
	if v.Compliant() {
		t.Fatalf("Compliant: want=false")
	}
}

func TestMarkFailed(t *testing.T) {
	step, err := MarkFailed(Generation{Status: StatusGenerating}, "  model outage  ")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if step.Next.Status != StatusFailed || *step.Next.FailureReason != "model outage" {
		t.Fatalf("MarkFailed: got=%+v", step.Next)
	}
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if _, err := MarkFailed(Generation{Status: s}, ""); !errors.Is(err, errs.ErrPreconditionFailed) {
			t.Fatalf("MarkFailed(%s): want precondition got=%v", s, err)
		}
	}
}
