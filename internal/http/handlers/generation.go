package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/http/response"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/services"
	"github.com/yungbote/govgen-backend/internal/temporalx/generationrun"
)

// RunStarter hands a full run to a background executor.
type RunStarter interface {
	StartRun(ctx context.Context, in generationrun.RunInput) (*generationrun.Run, error)
}

type GenerationHandler struct {
	log      *logger.Logger
	pipeline services.GenerationPipeline
	runs     RunStarter
}

// NewGenerationHandler wires the stage endpoints. runs may be nil, in which
// case POST /run executes the stages inside the request.
func NewGenerationHandler(log *logger.Logger, pipeline services.GenerationPipeline, runs RunStarter) *GenerationHandler {
	return &GenerationHandler{
		log:      log.With("handler", "GenerationHandler"),
		pipeline: pipeline,
		runs:     runs,
	}
}

type createGenerationRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	ContextQuery string  `json:"contextQuery"`
}

// POST /api/generations
func (h *GenerationHandler) Create(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req createGenerationRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.pipeline.Create(c.Request.Context(), uid, services.CreateGenerationInput{
		Title:        req.Title,
		Description:  req.Description,
		ContextQuery: req.ContextQuery,
	})
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"id": g.ID, "generation": g})
}

type reasonRequest struct {
	ContextQuery string `json:"contextQuery"`
}

// POST /api/generations/:id/reason
func (h *GenerationHandler) Reason(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	g, err := h.pipeline.Reason(c.Request.Context(), uid, id, req.ContextQuery)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cotReasoning": g.CotReasoning, "generation": g})
}

// POST /api/generations/:id/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	g, err := h.pipeline.Generate(c.Request.Context(), uid, id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"generatedCode":  g.GeneratedCode,
		"generatedTests": g.GeneratedTests,
		"generation":     g,
	})
}

// POST /api/generations/:id/validate
func (h *GenerationHandler) Validate(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, g, err := h.pipeline.Validate(c.Request.Context(), uid, id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"validation": v, "generation": g})
}

type failRequest struct {
	Reason string `json:"reason"`
}

// POST /api/generations/:id/fail
func (h *GenerationHandler) Fail(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req failRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	g, err := h.pipeline.Fail(c.Request.Context(), uid, id, req.Reason)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"generation": g})
}

// POST /api/generations/:id/run
func (h *GenerationHandler) Run(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if h.runs != nil {
		// Surface not-found and terminal states before queueing anything.
		cur, err := h.pipeline.Get(ctx, uid, id)
		if err != nil {
			response.RespondFrom(c, err)
			return
		}
		if cur.Generation.Status == types.StatusFailed {
			response.RespondFrom(c, fmt.Errorf("generation %d is failed: %w", id, errs.ErrPreconditionFailed))
			return
		}
		run, err := h.runs.StartRun(ctx, generationrun.RunInput{GenerationID: id, OwnerUserID: uid, ContextQuery: req.ContextQuery})
		if err != nil {
			response.RespondFrom(c, err)
			return
		}
		h.log.Info("Generation run queued", "generation_id", id, "workflow_id", run.WorkflowID)
		response.RespondAccepted(c, gin.H{"generationId": id, "workflowId": run.WorkflowID, "runId": run.RunID, "status": cur.Generation.Status})
		return
	}

	out, err := h.pipeline.RunAll(ctx, uid, id, req.ContextQuery)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/generations/:id
func (h *GenerationHandler) Get(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.pipeline.Get(c.Request.Context(), uid, id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/generations
func (h *GenerationHandler) List(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	out, err := h.pipeline.List(c.Request.Context(), uid)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"generations": out})
}
