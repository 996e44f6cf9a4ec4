package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/govgen-backend/internal/clients/gcp"
	"github.com/yungbote/govgen-backend/internal/data/repos"
	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/domain/governance"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/pkg/pointers"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

// MaxDocumentUploadBytes caps uploaded governance files.
const MaxDocumentUploadBytes = 5 << 20

type CreateDocumentInput struct {
	Title       string
	Description *string
	Content     string
	Type        string
}

// UpdateDocumentInput is a partial update; nil fields are left unchanged.
type UpdateDocumentInput struct {
	Title       *string
	Description *string
	Content     *string
	Type        *string
}

type UploadDocumentInput struct {
	Title       string
	Description *string
	Type        string
	Filename    string
	File        io.Reader
}

type DocumentService interface {
	List(ctx context.Context, ownerUserID uuid.UUID) ([]*types.GovernanceDocument, error)
	Get(ctx context.Context, ownerUserID uuid.UUID, id uint) (*types.GovernanceDocument, error)
	Create(ctx context.Context, ownerUserID uuid.UUID, in CreateDocumentInput) (*types.GovernanceDocument, error)
	Update(ctx context.Context, ownerUserID uuid.UUID, id uint, in UpdateDocumentInput) (*types.GovernanceDocument, error)
	Delete(ctx context.Context, ownerUserID uuid.UUID, id uint) error
	Upload(ctx context.Context, ownerUserID uuid.UUID, in UploadDocumentInput) (*types.GovernanceDocument, error)
}

type documentService struct {
	log    *logger.Logger
	docs   repos.DocumentRepo
	bucket gcp.BucketService
}

func NewDocumentService(log *logger.Logger, docs repos.DocumentRepo, bucket gcp.BucketService) DocumentService {
	return &documentService{
		log:    log.With("service", "DocumentService"),
		docs:   docs,
		bucket: bucket,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errs.ErrInvalidInput)
}

func validTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalid("title is required")
	}
	if utf8.RuneCountInString(title) > governance.MaxTitleLength {
		return "", invalid("title exceeds %d characters", governance.MaxTitleLength)
	}
	return title, nil
}

func validType(raw string) (types.DocumentType, error) {
	t, ok := governance.ParseDocumentType(raw)
	if !ok {
		return "", invalid("unknown document type %q", raw)
	}
	return t, nil
}

func (s *documentService) List(ctx context.Context, ownerUserID uuid.UUID) ([]*types.GovernanceDocument, error) {
	out, err := s.docs.ListByOwner(dbctx.New(ctx), ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *documentService) Get(ctx context.Context, ownerUserID uuid.UUID, id uint) (*types.GovernanceDocument, error) {
	d, err := s.docs.GetByID(dbctx.New(ctx), ownerUserID, id)
	if err != nil {
		return nil, fmt.Errorf("load document %d: %w", id, err)
	}
	if d == nil {
		return nil, fmt.Errorf("document %d: %w", id, errs.ErrNotFound)
	}
	return d, nil
}

func (s *documentService) Create(ctx context.Context, ownerUserID uuid.UUID, in CreateDocumentInput) (*types.GovernanceDocument, error) {
	if ownerUserID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, invalid("content is required")
	}
	docType, err := validType(in.Type)
	if err != nil {
		return nil, err
	}
	d, err := s.docs.Create(dbctx.New(ctx), &types.GovernanceDocument{
		OwnerUserID: ownerUserID,
		Title:       title,
		Description: pointers.TrimmedOrNil(in.Description),
		Content:     in.Content,
		Type:        docType,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.log.Info("Document created", "document_id", d.ID, "type", d.Type)
	return d, nil
}

func (s *documentService) Update(ctx context.Context, ownerUserID uuid.UUID, id uint, in UpdateDocumentInput) (*types.GovernanceDocument, error) {
	updates := map[string]interface{}{}
	if in.Title != nil {
		title, err := validTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = pointers.TrimmedOrNil(in.Description)
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, invalid("content cannot be empty")
		}
		updates["content"] = *in.Content
	}
	if in.Type != nil {
		docType, err := validType(*in.Type)
		if err != nil {
			return nil, err
		}
		updates["type"] = docType
	}
	if len(updates) == 0 {
		return s.Get(ctx, ownerUserID, id)
	}
	ok, err := s.docs.UpdateFields(dbctx.New(ctx), ownerUserID, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update document %d: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, errs.ErrNotFound)
	}
	return s.Get(ctx, ownerUserID, id)
}

func (s *documentService) Delete(ctx context.Context, ownerUserID uuid.UUID, id uint) error {
	d, err := s.Get(ctx, ownerUserID, id)
	if err != nil {
		return err
	}
	ok, err := s.docs.Delete(dbctx.New(ctx), ownerUserID, id)
	if err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("document %d: %w", id, errs.ErrNotFound)
	}
	if d.FileKey != nil && s.bucket != nil {
		if err := s.bucket.DeleteFile(ctx, *d.FileKey); err != nil {
			s.log.Warn("Failed to delete document file", "document_id", id, "key", *d.FileKey, "error", err)
		}
	}
	return nil
}

// DocumentFileKey is the object key for an uploaded document file.
func DocumentFileKey(ownerUserID uuid.UUID, filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "document.txt"
	}
	return fmt.Sprintf("documents/%s/%s-%s", ownerUserID, uuid.NewString(), base)
}

func (s *documentService) Upload(ctx context.Context, ownerUserID uuid.UUID, in UploadDocumentInput) (*types.GovernanceDocument, error) {
	if ownerUserID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	if s.bucket == nil {
		return nil, fmt.Errorf("document storage is not configured")
	}
	if in.File == nil {
		return nil, invalid("file is required")
	}
	raw, err := io.ReadAll(io.LimitReader(in.File, MaxDocumentUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(raw) > MaxDocumentUploadBytes {
		return nil, invalid("file exceeds %d bytes", MaxDocumentUploadBytes)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, invalid("file is empty")
	}
	if !utf8.Valid(raw) {
		return nil, invalid("file is not UTF-8 text")
	}

	titleRaw := in.Title
	if strings.TrimSpace(titleRaw) == "" {
		titleRaw = strings.TrimSuffix(path.Base(in.Filename), path.Ext(in.Filename))
	}
	title, err := validTitle(titleRaw)
	if err != nil {
		return nil, err
	}
	docType, err := validType(in.Type)
	if err != nil {
		return nil, err
	}

	key := DocumentFileKey(ownerUserID, in.Filename)
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("store document file: %w", err)
	}
	url := s.bucket.GetPublicURL(key)
	d, err := s.docs.Create(dbctx.New(ctx), &types.GovernanceDocument{
		OwnerUserID: ownerUserID,
		Title:       title,
		Description: pointers.TrimmedOrNil(in.Description),
		Content:     string(raw),
		Type:        docType,
		FileURL:     &url,
		FileKey:     &key,
	})
	if err != nil {
		if delErr := s.bucket.DeleteFile(ctx, key); delErr != nil {
			s.log.Warn("Failed to clean up orphaned document file", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.log.Info("Document uploaded", "document_id", d.ID, "bytes", len(raw), "key", key)
	return d, nil
}
