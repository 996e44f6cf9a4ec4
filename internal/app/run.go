package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/govgen-backend/internal/services"
	"github.com/yungbote/govgen-backend/internal/temporalx/temporalworker"
)

// Serve runs the HTTP API until ctx is done. With worker set, the Temporal
// worker runs in the same process.
func (a *App) Serve(ctx context.Context, worker bool) error {
	if strings.TrimSpace(a.Cfg.Auth.JWTSecret) == "" {
		return errors.New("missing JWT_SECRET_KEY")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server().Run(ctx, a.Cfg.HTTP.Addr())
	})
	if worker && a.Temporal != nil {
		g.Go(func() error { return a.Worker(ctx) })
	}
	return g.Wait()
}

// Worker polls the Temporal task queue until ctx is done.
func (a *App) Worker(ctx context.Context) error {
	if a.Temporal == nil {
		return errors.New("temporal address not configured")
	}
	runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Temporal, a.Services.Pipeline)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// RunOnce creates a generation and drives it through every stage in-process.
func (a *App) RunOnce(ctx context.Context, owner uuid.UUID, in services.CreateGenerationInput) (*services.GenerationWithValidation, error) {
	if owner == uuid.Nil {
		owner = uuid.New()
	}
	g, err := a.Services.Pipeline.Create(ctx, owner, in)
	if err != nil {
		return nil, err
	}
	a.Log.Info("Generation created", "generation_id", g.ID)
	out, err := a.Services.Pipeline.RunAll(ctx, owner, g.ID, in.ContextQuery)
	if err != nil {
		return nil, fmt.Errorf("generation %d: %w", g.ID, err)
	}
	return out, nil
}
