package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/govgen-backend/internal/data/repos"
	types "github.com/yungbote/govgen-backend/internal/domain"
	"github.com/yungbote/govgen-backend/internal/pkg/dbctx"
	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

// MetricsSummary is the dashboard view over an owner's generations.
// Coverage and compliance figures are the model's own judgment.
type MetricsSummary struct {
	TotalGenerations     int `json:"totalGenerations"`
	CompletedGenerations int `json:"completedGenerations"`
	FailedGenerations    int `json:"failedGenerations"`
	InProgress           int `json:"inProgress"`
	// SuccessRate is completed/total as a percentage.
	SuccessRate float64 `json:"successRate"`
	// AverageGenerationTimeMs covers completed generations only.
	AverageGenerationTimeMs int64 `json:"averageGenerationTimeMs"`
	// AverageTestCoverage uses each generation's newest verdict.
	AverageTestCoverage float64 `json:"averageTestCoverage"`
	FullyCompliant      int     `json:"fullyCompliant"`
	// DeterminismRate is the share of re-validated generations whose verdicts
	// all agree on compliance, as a percentage.
	DeterminismRate float64 `json:"determinismRate"`
	Documents       int     `json:"documents"`
}

type MetricsService interface {
	Summary(ctx context.Context, ownerUserID uuid.UUID) (*MetricsSummary, error)
	CreateSnapshot(ctx context.Context, ownerUserID uuid.UUID, period string) (*types.MetricSnapshot, error)
	ListSnapshots(ctx context.Context, ownerUserID uuid.UUID, limit int) ([]*types.MetricSnapshot, error)
}

type metricsService struct {
	log         *logger.Logger
	generations repos.GenerationRepo
	validations repos.ValidationRepo
	documents   repos.DocumentRepo
	snapshots   repos.MetricSnapshotRepo
}

func NewMetricsService(log *logger.Logger, generations repos.GenerationRepo, validations repos.ValidationRepo, documents repos.DocumentRepo, snapshots repos.MetricSnapshotRepo) MetricsService {
	return &metricsService{
		log:         log.With("service", "MetricsService"),
		generations: generations,
		validations: validations,
		documents:   documents,
		snapshots:   snapshots,
	}
}

func (s *metricsService) Summary(ctx context.Context, ownerUserID uuid.UUID) (*MetricsSummary, error) {
	var (
		gens []*types.Generation
		docs []*types.GovernanceDocument
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		gens, err = s.generations.ListByOwner(dbctx.New(egCtx), ownerUserID)
		if err != nil {
			return fmt.Errorf("list generations: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		docs, err = s.documents.ListByOwner(dbctx.New(egCtx), ownerUserID)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(gens))
	for _, g := range gens {
		ids = append(ids, g.ID)
	}
	rows, err := s.validations.ListByGenerationIDs(dbctx.New(ctx), ids)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	out := Summarize(gens, rows)
	out.Documents = len(docs)
	return out, nil
}

// Summarize computes the summary from generations and their validation rows
// (oldest first).
func Summarize(gens []*types.Generation, rows []*types.Validation) *MetricsSummary {
	out := &MetricsSummary{TotalGenerations: len(gens)}

	var timeSum, timeN int64
	for _, g := range gens {
		switch g.Status {
		case types.StatusCompleted:
			out.CompletedGenerations++
			if g.GenerationTimeMs != nil {
				timeSum += *g.GenerationTimeMs
				timeN++
			}
		case types.StatusFailed:
			out.FailedGenerations++
		default:
			out.InProgress++
		}
	}
	if out.TotalGenerations > 0 {
		out.SuccessRate = round1(float64(out.CompletedGenerations) * 100 / float64(out.TotalGenerations))
	}
	if timeN > 0 {
		out.AverageGenerationTimeMs = int64(math.Round(float64(timeSum) / float64(timeN)))
	}

	byGen := map[uint][]*types.Validation{}
	for _, v := range rows {
		byGen[v.GenerationID] = append(byGen[v.GenerationID], v)
	}
	var covSum, covN, revalidated, stable int
	for _, vs := range byGen {
		latest := vs[len(vs)-1]
		covSum += latest.TestCoverage
		covN++
		if latest.Compliant() {
			out.FullyCompliant++
		}
		if len(vs) < 2 {
			continue
		}
		revalidated++
		agree := true
		for _, v := range vs[1:] {
			if v.Compliant() != vs[0].Compliant() {
				agree = false
				break
			}
		}
		if agree {
			stable++
		}
	}
	if covN > 0 {
		out.AverageTestCoverage = round1(float64(covSum) / float64(covN))
	}
	if revalidated > 0 {
		out.DeterminismRate = round1(float64(stable) * 100 / float64(revalidated))
	}
	return out
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func (s *metricsService) CreateSnapshot(ctx context.Context, ownerUserID uuid.UUID, period string) (*types.MetricSnapshot, error) {
	if ownerUserID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, invalid("period is required")
	}
	if len(period) > 50 {
		return nil, invalid("period exceeds 50 characters")
	}
	sum, err := s.Summary(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Create(dbctx.New(ctx), &types.MetricSnapshot{
		OwnerUserID:             ownerUserID,
		Period:                  period,
		TotalGenerations:        sum.TotalGenerations,
		SuccessfulGenerations:   sum.CompletedGenerations,
		AverageTestCoverage:     sum.AverageTestCoverage,
		DeterminismRate:         sum.DeterminismRate,
		AverageGenerationTimeMs: sum.AverageGenerationTimeMs,
	})
	if err != nil {
		return nil, fmt.Errorf("create metric snapshot: %w", err)
	}
	s.log.Info("Metric snapshot stored", "snapshot_id", snap.ID, "period", period)
	return snap, nil
}

func (s *metricsService) ListSnapshots(ctx context.Context, ownerUserID uuid.UUID, limit int) ([]*types.MetricSnapshot, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out, err := s.snapshots.ListByOwner(dbctx.New(ctx), ownerUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list metric snapshots: %w", err)
	}
	return out, nil
}
