package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/govgen-backend/internal/data/db"
	"github.com/yungbote/govgen-backend/internal/observability"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/prompts"
	"github.com/yungbote/govgen-backend/internal/temporalx"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Metrics  *observability.Metrics
	Repos    Repos
	Services Services

	// Temporal is nil when no address is configured.
	Temporal temporalsdkclient.Client

	dbService    *db.Service
	redis        *goredis.Client
	otelShutdown func(context.Context) error
}

// Options selects which clients New dials. The migrate command needs only the
// database; serve and worker need everything.
type Options struct {
	SkipModel    bool
	SkipTemporal bool
}

func New(ctx context.Context, cfg Config, opts Options) (*App, error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}
	if err := a.init(ctx, opts); err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	log, cfg := a.Log, a.Cfg

	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Observability.Otel)
	if cfg.Observability.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
	}

	if path := strings.TrimSpace(cfg.Prompts.OverridesFile); path != "" {
		names, err := prompts.LoadOverrides(path)
		if err != nil {
			return err
		}
		log.Info("Prompt overrides applied", "file", path, "prompts", names)
	}

	dbs, err := db.NewService(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.dbService = dbs
	a.DB = dbs.DB()
	a.Repos = wireRepos(a.DB, log)

	if opts.SkipModel {
		return nil
	}

	client, err := resolveLLMClient(log, cfg.LLM)
	if err != nil {
		return err
	}
	bucket, err := resolveBucket(ctx, log, cfg.Storage)
	if err != nil {
		return err
	}
	locker, rdb, err := resolveStageLocker(ctx, log, cfg.Lock, cfg.Redis)
	if err != nil {
		return err
	}
	a.redis = rdb

	a.Services = wireServices(a, client, bucket, locker)

	if !opts.SkipTemporal && cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(ctx, cfg.Temporal, log)
		if err != nil {
			return fmt.Errorf("init temporal: %w", err)
		}
		a.Temporal = tc
	}
	return nil
}

func (a *App) Migrate() error {
	if a == nil || a.dbService == nil {
		return errors.New("app not initialized")
	}
	if err := a.dbService.AutoMigrateAll(); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	a.Log.Info("Database migrated", "driver", a.dbService.Driver())
	return nil
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
