package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/govgen-backend/internal/http/response"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/services"
)

type MetricsHandler struct {
	log     *logger.Logger
	metrics services.MetricsService
}

func NewMetricsHandler(log *logger.Logger, metrics services.MetricsService) *MetricsHandler {
	return &MetricsHandler{log: log.With("handler", "MetricsHandler"), metrics: metrics}
}

// GET /api/metrics/summary
func (h *MetricsHandler) Summary(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	sum, err := h.metrics.Summary(c.Request.Context(), uid)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}

type createSnapshotRequest struct {
	Period string `json:"period"`
}

// POST /api/metrics/snapshots
func (h *MetricsHandler) CreateSnapshot(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req createSnapshotRequest
	if !bindJSON(c, &req) {
		return
	}
	snap, err := h.metrics.CreateSnapshot(c.Request.Context(), uid, req.Period)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"snapshot": snap})
}

// GET /api/metrics/snapshots?limit=N
func (h *MetricsHandler) ListSnapshots(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.metrics.ListSnapshots(c.Request.Context(), uid, limit)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshots": out})
}
