package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/govgen-backend/internal/clients/gcp"
	"github.com/yungbote/govgen-backend/internal/clients/langchain"
	"github.com/yungbote/govgen-backend/internal/clients/openai"
	"github.com/yungbote/govgen-backend/internal/clients/redis"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/services"
)

// Constructor seams, replaced in tests.
var (
	newBucketService = gcp.NewBucketService
	newRedisClient   = redis.NewClient
)

type ProviderBootstrapErrorCode string

const (
	ProviderBootstrapErrorInvalidMode   ProviderBootstrapErrorCode = "invalid_mode"
	ProviderBootstrapErrorMissingConfig ProviderBootstrapErrorCode = "missing_config"
	ProviderBootstrapErrorConnectFailed ProviderBootstrapErrorCode = "connect_failed"
)

// ProviderBootstrapError reports which pluggable backend failed to start.
type ProviderBootstrapError struct {
	Provider string
	Mode     string
	Code     ProviderBootstrapErrorCode
	Cause    error
}

func (e *ProviderBootstrapError) Error() string {
	if e == nil {
		return "provider bootstrap failed"
	}
	return fmt.Sprintf("%s bootstrap failed (code=%s mode=%q): %v", e.Provider, e.Code, e.Mode, e.Cause)
}

func (e *ProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func bootstrapErr(provider, mode string, code ProviderBootstrapErrorCode, cause error) error {
	return &ProviderBootstrapError{Provider: provider, Mode: mode, Code: code, Cause: cause}
}

// resolveBucket returns GCS when a bucket is configured and an in-process
// store otherwise.
func resolveBucket(ctx context.Context, log *logger.Logger, cfg gcp.BucketConfig) (gcp.BucketService, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		log.Warn("No storage bucket configured; uploaded files are kept in memory")
		return gcp.NewMemoryBucket(""), nil
	}
	log.Info("Selecting object storage provider", "mode", "gcs", "bucket", cfg.Name)
	bucket, err := newBucketService(ctx, cfg, log)
	if err != nil {
		return nil, bootstrapErr("object storage", "gcs", ProviderBootstrapErrorConnectFailed, err)
	}
	return bucket, nil
}

func resolveLLMClient(log *logger.Logger, cfg LLMConfig) (openai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, bootstrapErr("llm", cfg.Provider, ProviderBootstrapErrorMissingConfig, errors.New("missing OPENAI_API_KEY"))
	}
	log.Info("Selecting LLM provider", "provider", cfg.Provider, "model", cfg.Model)
	switch cfg.Provider {
	case ProviderOpenAI:
		c, err := openai.NewClient(cfg.OpenAI(), log)
		if err != nil {
			return nil, bootstrapErr("llm", cfg.Provider, ProviderBootstrapErrorConnectFailed, err)
		}
		return c, nil
	case ProviderLangchain:
		c, err := langchain.New(langchain.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, log)
		if err != nil {
			return nil, bootstrapErr("llm", cfg.Provider, ProviderBootstrapErrorConnectFailed, err)
		}
		return c, nil
	default:
		return nil, bootstrapErr("llm", cfg.Provider, ProviderBootstrapErrorInvalidMode, fmt.Errorf("unsupported provider %q", cfg.Provider))
	}
}

// resolveStageLocker returns the locker and, for redis, the client to close.
func resolveStageLocker(ctx context.Context, log *logger.Logger, lock LockConfig, rcfg redis.Config) (services.StageLocker, *goredis.Client, error) {
	switch lock.Backend {
	case LockBackendMemory, "":
		return services.NewMemoryStageLocker(), nil, nil
	case LockBackendRedis:
		rdb, err := newRedisClient(ctx, rcfg, log)
		if err != nil {
			return nil, nil, bootstrapErr("stage lock", lock.Backend, ProviderBootstrapErrorConnectFailed, err)
		}
		log.Info("Selecting stage lock backend", "backend", lock.Backend, "ttl", lock.TTL.String())
		return services.NewRedisStageLocker(rdb, lock.Prefix, lock.TTL), rdb, nil
	default:
		return nil, nil, bootstrapErr("stage lock", lock.Backend, ProviderBootstrapErrorInvalidMode, fmt.Errorf("unsupported backend %q", lock.Backend))
	}
}
