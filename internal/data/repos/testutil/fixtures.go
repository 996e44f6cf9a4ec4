package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/govgen-backend/internal/domain"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, owner uuid.UUID, docType types.DocumentType, title, content string) *types.GovernanceDocument {
	tb.Helper()
	d := &types.GovernanceDocument{
		OwnerUserID: owner,
		Title:       title,
		Content:     content,
		Type:        docType,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

func SeedGeneration(tb testing.TB, ctx context.Context, tx *gorm.DB, owner uuid.UUID, status types.GenerationStatus) *types.Generation {
	tb.Helper()
	g := &types.Generation{
		OwnerUserID:  owner,
		Title:        "Claims triage service",
		ContextQuery: "Build a claims triage service that masks PII",
		Status:       status,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed generation: %v", err)
	}
	return g
}
