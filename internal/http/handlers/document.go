package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/govgen-backend/internal/http/response"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/services"
)

// multipart framing allowance on top of the file cap
const uploadOverheadBytes = 1 << 20

type DocumentHandler struct {
	log  *logger.Logger
	docs services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, docs services.DocumentService) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), docs: docs}
}

type createDocumentRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Content     string  `json:"content"`
	Type        string  `json:"type"`
}

type updateDocumentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	Type        *string `json:"type"`
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	out, err := h.docs.List(c.Request.Context(), uid)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": out})
}

// POST /api/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	var req createDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.docs.Create(c.Request.Context(), uid, services.CreateDocumentInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Type:        req.Type,
	})
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), uid, id)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// PATCH /api/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.docs.Update(c.Request.Context(), uid, id, services.UpdateDocumentInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Type:        req.Type,
	})
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), uid, id); err != nil {
		response.RespondFrom(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/documents/upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxDocumentUploadBytes+uploadOverheadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondFrom(c, fmt.Errorf("file is required: %v: %w", err, errs.ErrInvalidInput))
		return
	}
	if fh.Size > services.MaxDocumentUploadBytes {
		response.RespondFrom(c, fmt.Errorf("file exceeds %d bytes: %w", services.MaxDocumentUploadBytes, errs.ErrInvalidInput))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondFrom(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	in := services.UploadDocumentInput{
		Title:    strings.TrimSpace(c.PostForm("title")),
		Type:     strings.TrimSpace(c.PostForm("type")),
		Filename: fh.Filename,
		File:     f,
	}
	if d, ok := c.GetPostForm("description"); ok {
		in.Description = &d
	}
	doc, err := h.docs.Upload(c.Request.Context(), uid, in)
	if err != nil {
		response.RespondFrom(c, err)
		return
	}
	h.log.Info("Document uploaded", "document_id", doc.ID, "bytes", fh.Size)
	response.RespondCreated(c, gin.H{"document": doc})
}
