package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/govgen-backend/internal/data/repos"
	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

// RankedDocument is a governance document with its retrieval rank (0 is best).
type RankedDocument struct {
	Document *types.GovernanceDocument
	Rank     int
}

// ContextRetriever selects the documents that ground a generation request.
// Implementations may ignore query.
type ContextRetriever interface {
	FetchRelevant(ctx context.Context, query string, ownerUserID uuid.UUID) ([]RankedDocument, error)
}

// NaiveRetriever returns every document the owner has, in creation order.
type NaiveRetriever struct {
	Docs repos.DocumentRepo
}

func (r NaiveRetriever) FetchRelevant(ctx context.Context, _ string, ownerUserID uuid.UUID) ([]RankedDocument, error) {
	docs, err := r.Docs.ListByOwner(dbctx.New(ctx), ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]RankedDocument, 0, len(docs))
	for i, d := range docs {
		out = append(out, RankedDocument{Document: d, Rank: i})
	}
	return out, nil
}

type ContextAssembler interface {
	// Assemble renders the owner's grounding documents as one prompt block.
	// A retrieval failure is logged and yields "".
	Assemble(ctx context.Context, query string, ownerUserID uuid.UUID) string
}

type contextAssembler struct {
	log       *logger.Logger
	retriever ContextRetriever
}

func NewContextAssembler(log *logger.Logger, retriever ContextRetriever) ContextAssembler {
	return &contextAssembler{
		log:       log.With("service", "ContextAssembler"),
		retriever: retriever,
	}
}

func (a *contextAssembler) Assemble(ctx context.Context, query string, ownerUserID uuid.UUID) string {
	ranked, err := a.retriever.FetchRelevant(ctx, query, ownerUserID)
	if err != nil {
		a.log.Warn("Context retrieval failed; continuing without documents", "owner_id", ownerUserID, "error", err)
		return ""
	}
	blocks := make([]string, 0, len(ranked))
	for _, rd := range ranked {
		if rd.Document == nil {
			continue
		}
		blocks = append(blocks, RenderDocument(rd.Document))
	}
	return strings.Join(blocks, "\n\n")
}

// RenderDocument formats one document as "[TYPE] Title:\nContent".
func RenderDocument(d *types.GovernanceDocument) string {
	return "[" + strings.ToUpper(string(d.Type)) + "] " + d.Title + ":\n" + d.Content
}
