package generation

import (
	"fmt"
	"strings"
	"time"

	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
)

// Step is the result of a transition: the record as it should look after the
// write, the status the stored row must still hold for the write to land, and
// the columns to update. An empty Columns map means nothing needs writing.
type Step struct {
	Next    Generation
	Expect  Status
	Columns map[string]any
}

func precondition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errs.ErrPreconditionFailed)
}

// BeginReasoning admits a reasoning run. Pending records move to reasoning; a
// record already reasoning or generating is re-run in place.
func BeginReasoning(g Generation) (Step, error) {
	if !g.Status.in(StatusPending, StatusReasoning, StatusGenerating) {
		return Step{}, precondition("cannot reason from status %q", g.Status)
	}
	step := Step{Next: g, Expect: g.Status, Columns: map[string]any{}}
	if g.Status == StatusPending {
		step.Next.Status = StatusReasoning
		step.Columns["status"] = StatusReasoning
	}
	return step, nil
}

// ApplyReasoning stores the chain-of-thought and hands off to code generation.
func ApplyReasoning(g Generation, reasoning string) (Step, error) {
	if !g.Status.in(StatusReasoning, StatusGenerating) {
		return Step{}, precondition("cannot store reasoning in status %q", g.Status)
	}
	next := g
	next.CotReasoning = &reasoning
	next.Status = StatusGenerating
	return Step{
		Next:   next,
		Expect: g.Status,
		Columns: map[string]any{
			"cot_reasoning": reasoning,
			"status":        StatusGenerating,
		},
	}, nil
}

// CheckGenerate reports whether code generation may start. It is evaluated
// before any model call.
func CheckGenerate(g Generation) error {
	if g.CotReasoning == nil {
		return precondition("reasoning has not been produced")
	}
	if !g.Status.in(StatusGenerating, StatusValidating) {
		return precondition("cannot generate from status %q", g.Status)
	}
	return nil
}

// ElapsedMillis rounds d up to whole milliseconds so any measurable stage
// reports at least 1.
func ElapsedMillis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	ms := int64(d / time.Millisecond)
	if d%time.Millisecond != 0 {
		ms++
	}
	return ms
}

// ApplyArtifacts stores generated code and tests together with the stage time
// and hands off to validation.
func ApplyArtifacts(g Generation, code, tests string, elapsed time.Duration) (Step, error) {
	if err := CheckGenerate(g); err != nil {
		return Step{}, err
	}
	ms := ElapsedMillis(elapsed)
	next := g
	next.GeneratedCode = &code
	next.GeneratedTests = &tests
	next.GenerationTimeMs = &ms
	next.Status = StatusValidating
	return Step{
		Next:   next,
		Expect: g.Status,
		Columns: map[string]any{
			"generated_code":     code,
			"generated_tests":    tests,
			"generation_time_ms": ms,
			"status":             StatusValidating,
		},
	}, nil
}

// CheckValidate reports whether validation may start. It is evaluated before
// any model call.
func CheckValidate(g Generation) error {
	if g.GeneratedCode == nil {
		return precondition("code has not been generated")
	}
	if !g.Status.in(StatusValidating, StatusCompleted) {
		return precondition("cannot validate from status %q", g.Status)
	}
	return nil
}

// ApplyVerdict builds the validation row for v and completes the generation.
// raw is the verdict exactly as the model returned it.
func ApplyVerdict(g Generation, v Verdict, raw []byte) (Step, Validation, error) {
	if err := CheckValidate(g); err != nil {
		return Step{}, Validation{}, err
	}
	row := Validation{
		GenerationID:       g.ID,
		TestsPassed:        v.TestsPassed,
		TestCoverage:       v.TestCoverage,
		AdrCompliant:       v.AdrCompliant,
		CpApViolations:     v.CpApViolations,
		PiiMaskingEnforced: v.PiiMaskingEnforced,
		Details:            v.Details,
		RawResponse:        append([]byte(nil), raw...),
	}
	next := g
	next.Status = StatusCompleted
	step := Step{Next: next, Expect: g.Status, Columns: map[string]any{}}
	if g.Status != StatusCompleted {
		step.Columns["status"] = StatusCompleted
	}
	return step, row, nil
}

// MarkFailed moves any non-terminal generation to failed.
func MarkFailed(g Generation, reason string) (Step, error) {
	if g.Status.Terminal() {
		return Step{}, precondition("generation is already %s", g.Status)
	}
	reason = strings.TrimSpace(reason)
	next := g
	next.Status = StatusFailed
	cols := map[string]any{"status": StatusFailed}
	if reason != "" {
		next.FailureReason = &reason
		cols["failure_reason"] = reason
	}
	return Step{Next: next, Expect: g.Status, Columns: cols}, nil
}
