package app

import (
	"context"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/govgen-backend/internal/clients/gcp"
	"github.com/yungbote/govgen-backend/internal/clients/openai"
	"github.com/yungbote/govgen-backend/internal/data/repos"
	apihttp "github.com/yungbote/govgen-backend/internal/http"
	httpH "github.com/yungbote/govgen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/govgen-backend/internal/http/middleware"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/services"
	"github.com/yungbote/govgen-backend/internal/temporalx/generationrun"
)

type Repos struct {
	Documents   repos.DocumentRepo
	Generations repos.GenerationRepo
	Validations repos.ValidationRepo
	Snapshots   repos.MetricSnapshotRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Documents:   repos.NewDocumentRepo(db, log),
		Generations: repos.NewGenerationRepo(db, log),
		Validations: repos.NewValidationRepo(db, log),
		Snapshots:   repos.NewMetricSnapshotRepo(db, log),
	}
}

type Services struct {
	Auth      services.AuthService
	Pipeline  services.GenerationPipeline
	Documents services.DocumentService
	Metrics   services.MetricsService
}

func wireServices(a *App, client openai.Client, bucket gcp.BucketService, locker services.StageLocker) Services {
	log := a.Log
	log.Info("Wiring services...")
	r := a.Repos
	return Services{
		Auth: services.NewAuthService(log, a.Cfg.Auth.JWTSecret, a.Cfg.Auth.Issuer),
		Pipeline: services.NewGenerationPipeline(services.GenerationPipelineDeps{
			DB:          a.DB,
			Log:         log,
			Generations: r.Generations,
			Validations: r.Validations,
			Assembler:   services.NewContextAssembler(log, services.NaiveRetriever{Docs: r.Documents}),
			Client:      client,
			Locker:      locker,
			Metrics:     a.Metrics,
		}),
		Documents: services.NewDocumentService(log, r.Documents, bucket),
		Metrics:   services.NewMetricsService(log, r.Generations, r.Validations, r.Documents, r.Snapshots),
	}
}

// temporalRuns queues full runs on the Temporal task queue.
type temporalRuns struct {
	tc        temporalsdkclient.Client
	taskQueue string
}

func (t temporalRuns) StartRun(ctx context.Context, in generationrun.RunInput) (*generationrun.Run, error) {
	return generationrun.Start(ctx, t.tc, t.taskQueue, in)
}

func (a *App) healthChecks() map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

func (a *App) Server() *apihttp.Server {
	log := a.Log
	log.Info("Wiring handlers...")

	var runs httpH.RunStarter
	if a.Temporal != nil {
		runs = temporalRuns{tc: a.Temporal, taskQueue: a.Cfg.Temporal.TaskQueue}
	}
	return apihttp.NewServer(apihttp.RouterConfig{
		Log:               log,
		ServiceName:       serviceName(a.Cfg),
		AllowedOrigins:    a.Cfg.HTTP.AllowedOrigins,
		Metrics:           a.Metrics,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, a.Services.Auth),
		GenerationHandler: httpH.NewGenerationHandler(log, a.Services.Pipeline, runs),
		DocumentHandler:   httpH.NewDocumentHandler(log, a.Services.Documents),
		MetricsHandler:    httpH.NewMetricsHandler(log, a.Services.Metrics),
		HealthHandler:     httpH.NewHealthHandler(a.healthChecks()),
	})
}

// serviceName is empty when tracing is off so the router skips otelgin.
func serviceName(cfg Config) string {
	if !cfg.Observability.Otel.Enabled {
		return ""
	}
	return cfg.Observability.Otel.ServiceName
}
