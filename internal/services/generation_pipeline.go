package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/govgen-backend/internal/clients/openai"
	"github.com/yungbote/govgen-backend/internal/data/repos"
	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/domain/generation"
	"github.com/yungbote/govgen-backend/internal/domain/governance"
	"github.com/yungbote/govgen-backend/internal/observability"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/pkg/pointers"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/prompts"
)

const (
	StageReason   = "reason"
	StageGenerate = "generate"
	StageValidate = "validate"
)

type CreateGenerationInput struct {
	Title        string
	Description  *string
	ContextQuery string
}

// GenerationWithValidation is a generation plus its newest verdict, if any.
type GenerationWithValidation struct {
	Generation *types.Generation `json:"generation"`
	Validation *types.Validation `json:"validation,omitempty"`
}

// MalformedVerdictError is returned when the validation stage got a response
// that is not a well-formed verdict. Raw is the model text as received.
type MalformedVerdictError struct {
	Raw string
	Err error
}

func (e *MalformedVerdictError) Error() string {
	return fmt.Sprintf("%s: %v", errs.ErrValidationResponseMalformed, e.Err)
}

func (e *MalformedVerdictError) Unwrap() error { return e.Err }

func (e *MalformedVerdictError) Is(target error) bool {
	return target == errs.ErrValidationResponseMalformed
}

type GenerationPipeline interface {
	Create(ctx context.Context, ownerUserID uuid.UUID, in CreateGenerationInput) (*types.Generation, error)
	// Reason runs stage 1. An empty contextQuery falls back to the stored one.
	Reason(ctx context.Context, ownerUserID uuid.UUID, id uint, contextQuery string) (*types.Generation, error)
	// Generate runs stage 2: code, then tests, then one write.
	Generate(ctx context.Context, ownerUserID uuid.UUID, id uint) (*types.Generation, error)
	// Validate runs stage 3 and appends a Validation row.
	Validate(ctx context.Context, ownerUserID uuid.UUID, id uint) (*types.Validation, *types.Generation, error)
	Get(ctx context.Context, ownerUserID uuid.UUID, id uint) (*GenerationWithValidation, error)
	List(ctx context.Context, ownerUserID uuid.UUID) ([]*types.Generation, error)
	Fail(ctx context.Context, ownerUserID uuid.UUID, id uint, reason string) (*types.Generation, error)
	// RunAll drives whichever stages remain, in order.
	RunAll(ctx context.Context, ownerUserID uuid.UUID, id uint, contextQuery string) (*GenerationWithValidation, error)
}

type GenerationPipelineDeps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Generations repos.GenerationRepo
	Validations repos.ValidationRepo
	Assembler   ContextAssembler
	Client      openai.Client
	Locker      StageLocker
	Metrics     *observability.Metrics
	// Now defaults to time.Now; tests pin it to control generation_time_ms.
	Now func() time.Time
}

type generationPipeline struct {
	db          *gorm.DB
	log         *logger.Logger
	generations repos.GenerationRepo
	validations repos.ValidationRepo
	assembler   ContextAssembler
	client      openai.Client
	locker      StageLocker
	metrics     *observability.Metrics
	now         func() time.Time
	tracer      trace.Tracer
}

func NewGenerationPipeline(d GenerationPipelineDeps) GenerationPipeline {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	locker := d.Locker
	if locker == nil {
		locker = NewMemoryStageLocker()
	}
	return &generationPipeline{
		db:          d.DB,
		log:         d.Log.With("service", "GenerationPipeline"),
		generations: d.Generations,
		validations: d.Validations,
		assembler:   d.Assembler,
		client:      d.Client,
		locker:      locker,
		metrics:     d.Metrics,
		now:         now,
		tracer:      otel.Tracer("govgen/pipeline"),
	}
}

func (p *generationPipeline) Create(ctx context.Context, ownerUserID uuid.UUID, in CreateGenerationInput) (*types.Generation, error) {
	if ownerUserID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	title := strings.TrimSpace(in.Title)
	query := strings.TrimSpace(in.ContextQuery)
	switch {
	case title == "":
		return nil, fmt.Errorf("title is required: %w", errs.ErrInvalidInput)
	case len([]rune(title)) > governance.MaxTitleLength:
		return nil, fmt.Errorf("title exceeds %d characters: %w", governance.MaxTitleLength, errs.ErrInvalidInput)
	case query == "":
		return nil, fmt.Errorf("contextQuery is required: %w", errs.ErrInvalidInput)
	}
	g, err := p.generations.Create(dbctx.New(ctx), &types.Generation{
		OwnerUserID:  ownerUserID,
		Title:        title,
		Description:  pointers.TrimmedOrNil(in.Description),
		ContextQuery: query,
		Status:       types.StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}
	p.log.Info("Generation created", "generation_id", g.ID, "owner_id", ownerUserID)
	return g, nil
}

func (p *generationPipeline) load(ctx context.Context, ownerUserID uuid.UUID, id uint) (*types.Generation, error) {
	g, err := p.generations.GetByID(dbctx.New(ctx), ownerUserID, id)
	if err != nil {
		return nil, fmt.Errorf("load generation %d: %w", id, err)
	}
	if g == nil {
		return nil, fmt.Errorf("generation %d: %w", id, errs.ErrNotFound)
	}
	return g, nil
}

// apply writes step under its status guard. A lost guard means someone else
// moved the record underneath this stage.
func (p *generationPipeline) apply(dbc dbctx.Context, id uint, step generation.Step) error {
	if len(step.Columns) == 0 {
		return nil
	}
	ok, err := p.generations.UpdateFieldsIfStatus(dbc, id, step.Expect, step.Columns)
	if err != nil {
		return fmt.Errorf("update generation %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("generation %d left status %s: %w", id, step.Expect, errs.ErrConflict)
	}
	return nil
}

// stage wraps fn with the per-generation lock, a span and stage metrics.
func (p *generationPipeline) stage(ctx context.Context, name string, id uint, fn func(ctx context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(attribute.Int64("generation.id", int64(id))))
	defer span.End()

	start := time.Now()
	release, err := p.locker.Acquire(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			p.metrics.IncStageConflict(name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer release()

	err = fn(ctx)
	p.metrics.ObserveStage(name, outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrValidationResponseMalformed):
		return "malformed"
	case errors.Is(err, errs.ErrModelUnavailable):
		return "model_unavailable"
	}
	return "error"
}

func (p *generationPipeline) complete(ctx context.Context, name prompts.PromptName, in prompts.Input) (*openai.Completion, error) {
	pr, err := prompts.Build(name, in)
	if err != nil {
		return nil, err
	}
	req := openai.Request{Messages: []openai.Message{
		{Role: openai.RoleSystem, Content: pr.System},
		{Role: openai.RoleUser, Content: pr.User},
	}}
	if pr.Schema != nil {
		req.Schema = &openai.JSONSchema{Name: pr.SchemaName, Schema: pr.Schema, Strict: true}
	}
	start := time.Now()
	out, err := p.client.Complete(ctx, req)
	if err != nil {
		p.metrics.ObserveLLMRequest("", string(name), outcome(err), time.Since(start), 0, 0)
		return nil, err
	}
	p.metrics.ObserveLLMRequest(out.Model, string(name), "ok", time.Since(start), out.PromptTokens, out.CompletionTokens)
	return out, nil
}

func (p *generationPipeline) Reason(ctx context.Context, ownerUserID uuid.UUID, id uint, contextQuery string) (*types.Generation, error) {
	var result *types.Generation
	err := p.stage(ctx, StageReason, id, func(ctx context.Context) error {
		g, err := p.load(ctx, ownerUserID, id)
		if err != nil {
			return err
		}
		begin, err := generation.BeginReasoning(*g)
		if err != nil {
			return err
		}
		if err := p.apply(dbctx.New(ctx), id, begin); err != nil {
			return err
		}

		query := strings.TrimSpace(contextQuery)
		if query == "" {
			query = g.ContextQuery
		}
		docs := p.assembler.Assemble(ctx, query, ownerUserID)
		out, err := p.complete(ctx, prompts.PromptReasoning, prompts.Input{Context: docs, ContextQuery: query})
		if err != nil {
			p.log.Warn("Reasoning call failed", "generation_id", id, "error", err)
			return err
		}

		step, err := generation.ApplyReasoning(begin.Next, out.Content)
		if err != nil {
			return err
		}
		if err := p.apply(dbctx.New(ctx), id, step); err != nil {
			return err
		}
		p.log.Info("Reasoning stored", "generation_id", id, "context_chars", len(docs), "reasoning_chars", len(out.Content))
		result = &step.Next
		return nil
	})
	return result, err
}

func (p *generationPipeline) Generate(ctx context.Context, ownerUserID uuid.UUID, id uint) (*types.Generation, error) {
	var result *types.Generation
	err := p.stage(ctx, StageGenerate, id, func(ctx context.Context) error {
		g, err := p.load(ctx, ownerUserID, id)
		if err != nil {
			return err
		}
		if err := generation.CheckGenerate(*g); err != nil {
			return err
		}

		start := p.now()
		code, err := p.complete(ctx, prompts.PromptCode, prompts.Input{Reasoning: *g.CotReasoning})
		if err != nil {
			p.log.Warn("Code generation call failed", "generation_id", id, "error", err)
			return err
		}
		tests, err := p.complete(ctx, prompts.PromptTests, prompts.Input{Code: code.Content})
		if err != nil {
			p.log.Warn("Test generation call failed", "generation_id", id, "error", err)
			return err
		}
		elapsed := p.now().Sub(start)

		step, err := generation.ApplyArtifacts(*g, code.Content, tests.Content, elapsed)
		if err != nil {
			return err
		}
		if err := p.apply(dbctx.New(ctx), id, step); err != nil {
			return err
		}
		p.log.Info("Code and tests stored",
			"generation_id", id,
			"code_chars", len(code.Content),
			"tests_chars", len(tests.Content),
			"generation_time_ms", *step.Next.GenerationTimeMs,
		)
		result = &step.Next
		return nil
	})
	return result, err
}

// verdictWire mirrors the validation schema. Pointers detect missing fields.
type verdictWire struct {
	TestsPassed        *bool        `json:"testsPassed"`
	TestCoverage       *wholeNumber `json:"testCoverage"`
	AdrCompliant       *bool        `json:"adrCompliant"`
	CpApViolations     *wholeNumber `json:"cpApViolations"`
	PiiMaskingEnforced *bool        `json:"piiMaskingEnforced"`
	Details            *string      `json:"details"`
}

// wholeNumber accepts any JSON number with no fractional part, so 85 and
// 85.0 decode alike. Quoted numbers are rejected.
type wholeNumber int

func (n *wholeNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == '"' {
		return fmt.Errorf("want integer got %s", b)
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("want integer got %s", b)
	}
	if i, err := num.Int64(); err == nil {
		*n = wholeNumber(i)
		return nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return fmt.Errorf("want integer got %s", b)
	}
	*n = wholeNumber(int64(f))
	return nil
}

// decodeVerdict parses raw strictly: unknown fields, missing fields, wrong
// types and out-of-range numbers are all rejected.
func decodeVerdict(raw []byte) (types.Verdict, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var w verdictWire
	if err := dec.Decode(&w); err != nil {
		return types.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if dec.More() {
		return types.Verdict{}, fmt.Errorf("trailing data after verdict")
	}
	missing := []string{}
	if w.TestsPassed == nil {
		missing = append(missing, "testsPassed")
	}
	if w.TestCoverage == nil {
		missing = append(missing, "testCoverage")
	}
	if w.AdrCompliant == nil {
		missing = append(missing, "adrCompliant")
	}
	if w.CpApViolations == nil {
		missing = append(missing, "cpApViolations")
	}
	if w.PiiMaskingEnforced == nil {
		missing = append(missing, "piiMaskingEnforced")
	}
	if w.Details == nil {
		missing = append(missing, "details")
	}
	if len(missing) > 0 {
		return types.Verdict{}, fmt.Errorf("verdict missing %s", strings.Join(missing, ", "))
	}
	coverage, violations := int(*w.TestCoverage), int(*w.CpApViolations)
	if coverage < 0 || coverage > 100 {
		return types.Verdict{}, fmt.Errorf("testCoverage %d outside 0-100", coverage)
	}
	if violations < 0 {
		return types.Verdict{}, fmt.Errorf("cpApViolations %d is negative", violations)
	}
	return types.Verdict{
		TestsPassed:        *w.TestsPassed,
		TestCoverage:       coverage,
		AdrCompliant:       *w.AdrCompliant,
		CpApViolations:     violations,
		PiiMaskingEnforced: *w.PiiMaskingEnforced,
		Details:            *w.Details,
	}, nil
}

func (p *generationPipeline) Validate(ctx context.Context, ownerUserID uuid.UUID, id uint) (*types.Validation, *types.Generation, error) {
	var (
		row  *types.Validation
		next *types.Generation
	)
	err := p.stage(ctx, StageValidate, id, func(ctx context.Context) error {
		g, err := p.load(ctx, ownerUserID, id)
		if err != nil {
			return err
		}
		if err := generation.CheckValidate(*g); err != nil {
			return err
		}

		out, err := p.complete(ctx, prompts.PromptValidation, prompts.Input{
			Code:  *g.GeneratedCode,
			Tests: pointers.Deref(g.GeneratedTests),
		})
		if err != nil {
			var oe *openai.Error
			if errors.As(err, &oe) && oe.Kind == openai.KindModelResponseInvalid {
				p.log.Warn("Validation response malformed", "generation_id", id, "raw_response", oe.Raw, "error", err)
				return &MalformedVerdictError{Raw: oe.Raw, Err: err}
			}
			p.log.Warn("Validation call failed", "generation_id", id, "error", err)
			return err
		}

		raw := []byte(out.Content)
		if len(out.Structured) > 0 {
			raw = out.Structured
		}
		verdict, err := decodeVerdict(raw)
		if err != nil {
			p.log.Warn("Validation response malformed", "generation_id", id, "raw_response", out.Content, "error", err)
			return &MalformedVerdictError{Raw: out.Content, Err: err}
		}

		step, v, err := generation.ApplyVerdict(*g, verdict, raw)
		if err != nil {
			return err
		}
		err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.New(ctx).WithTx(tx)
			if _, err := p.validations.Create(dbc, &v); err != nil {
				return fmt.Errorf("insert validation: %w", err)
			}
			return p.apply(dbc, id, step)
		})
		if err != nil {
			return err
		}
		p.metrics.IncVerdict(v.Compliant())
		p.log.Info("Validation recorded",
			"generation_id", id,
			"validation_id", v.ID,
			"tests_passed", v.TestsPassed,
			"test_coverage", v.TestCoverage,
			"compliant", v.Compliant(),
		)
		row = &v
		next = &step.Next
		return nil
	})
	return row, next, err
}

func (p *generationPipeline) Get(ctx context.Context, ownerUserID uuid.UUID, id uint) (*GenerationWithValidation, error) {
	g, err := p.load(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	v, err := p.validations.GetLatestByGenerationID(dbctx.New(ctx), g.ID)
	if err != nil {
		return nil, fmt.Errorf("load validation: %w", err)
	}
	return &GenerationWithValidation{Generation: g, Validation: v}, nil
}

func (p *generationPipeline) List(ctx context.Context, ownerUserID uuid.UUID) ([]*types.Generation, error) {
	out, err := p.generations.ListByOwner(dbctx.New(ctx), ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return out, nil
}

func (p *generationPipeline) Fail(ctx context.Context, ownerUserID uuid.UUID, id uint, reason string) (*types.Generation, error) {
	var result *types.Generation
	err := p.stage(ctx, "fail", id, func(ctx context.Context) error {
		g, err := p.load(ctx, ownerUserID, id)
		if err != nil {
			return err
		}
		step, err := generation.MarkFailed(*g, reason)
		if err != nil {
			return err
		}
		if err := p.apply(dbctx.New(ctx), id, step); err != nil {
			return err
		}
		p.log.Info("Generation failed", "generation_id", id, "from_status", g.Status)
		result = &step.Next
		return nil
	})
	return result, err
}

func (p *generationPipeline) RunAll(ctx context.Context, ownerUserID uuid.UUID, id uint, contextQuery string) (*GenerationWithValidation, error) {
	g, err := p.load(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if g.Status.Terminal() && g.Status != types.StatusCompleted {
		return nil, fmt.Errorf("generation %d is %s: %w", id, g.Status, errs.ErrPreconditionFailed)
	}
	if g.CotReasoning == nil {
		if _, err := p.Reason(ctx, ownerUserID, id, contextQuery); err != nil {
			return nil, err
		}
	}
	if g.GeneratedCode == nil {
		if _, err := p.Generate(ctx, ownerUserID, id); err != nil {
			return nil, err
		}
	}
	if g.Status != types.StatusCompleted {
		if _, _, err := p.Validate(ctx, ownerUserID, id); err != nil {
			return nil, err
		}
	}
	return p.Get(ctx, ownerUserID, id)
}
