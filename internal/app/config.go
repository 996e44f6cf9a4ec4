package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/yungbote/govgen-backend/internal/clients/gcp"
	"github.com/yungbote/govgen-backend/internal/clients/openai"
	"github.com/yungbote/govgen-backend/internal/clients/redis"
	"github.com/yungbote/govgen-backend/internal/data/db"
	"github.com/yungbote/govgen-backend/internal/observability"
	"github.com/yungbote/govgen-backend/internal/temporalx"
)

const (
	envPrefix         = "GOVGEN_"
	maxConfigFileSize = 1 << 20
)

type Config struct {
	Log           LogConfig           `koanf:"log"`
	HTTP          HTTPConfig          `koanf:"http"`
	Database      db.Config           `koanf:"database"`
	LLM           LLMConfig           `koanf:"llm"`
	Auth          AuthConfig          `koanf:"auth"`
	Lock          LockConfig          `koanf:"lock"`
	Redis         redis.Config        `koanf:"redis"`
	Storage       gcp.BucketConfig    `koanf:"storage"`
	Temporal      temporalx.Config    `koanf:"temporal"`
	Observability ObservabilityConfig `koanf:"observability"`
	Prompts       PromptsConfig       `koanf:"prompts"`
}

type LogConfig struct {
	Mode string `koanf:"mode"`
}

type HTTPConfig struct {
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

func (c HTTPConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

const (
	ProviderOpenAI    = "openai"
	ProviderLangchain = "langchain"
)

type LLMConfig struct {
	Provider    string        `koanf:"provider"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxRetries  int           `koanf:"max_retries"`
}

func (c LLMConfig) OpenAI() openai.Config {
	return openai.Config{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
		MaxRetries:  c.MaxRetries,
	}
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type LockConfig struct {
	Backend string        `koanf:"backend"`
	TTL     time.Duration `koanf:"ttl"`
	Prefix  string        `koanf:"prefix"`
}

type ObservabilityConfig struct {
	Otel           observability.OtelConfig `koanf:"otel"`
	MetricsEnabled bool                     `koanf:"metrics_enabled"`
}

type PromptsConfig struct {
	// OverridesFile is an optional YAML file replacing prompt text per stage.
	OverridesFile string `koanf:"overrides_file"`
}

var defaultsYAML = []byte(`
log:
  mode: development
http:
  port: 8080
database:
  driver: postgres
  host: localhost
  port: 5432
  user: postgres
  name: govgen
  sslmode: disable
  path: govgen.db
  max_open_conns: 20
  max_idle_conns: 5
  slow_threshold: 500ms
llm:
  provider: openai
  base_url: https://api.openai.com
  model: gpt-4o-mini
  temperature: 0.2
  timeout: 120s
  max_retries: 0
auth:
  issuer: govgen
  token_ttl: 1h
lock:
  backend: memory
  ttl: 10m
  prefix: govgen:stage_lock
temporal:
  namespace: govgen
  task_queue: govgen
  dial_timeout: 5s
  dial_max_wait: 60s
  backoff: 250ms
  backoff_max: 5s
  worker_concurrency: 4
observability:
  metrics_enabled: true
  otel:
    service_name: govgen-backend
    sample_ratio: 1
`)

// bareEnv maps the unprefixed variable names used by existing deployments.
var bareEnv = map[string]string{
	"LOG_MODE":                       "log.mode",
	"PORT":                           "http.port",
	"DB_DRIVER":                      "database.driver",
	"DATABASE_URL":                   "database.dsn",
	"POSTGRES_HOST":                  "database.host",
	"POSTGRES_PORT":                  "database.port",
	"POSTGRES_USER":                  "database.user",
	"POSTGRES_PASSWORD":              "database.password",
	"POSTGRES_NAME":                  "database.name",
	"POSTGRES_SSLMODE":               "database.sslmode",
	"OPENAI_API_KEY":                 "llm.api_key",
	"OPENAI_BASE_URL":                "llm.base_url",
	"OPENAI_MODEL":                   "llm.model",
	"JWT_SECRET_KEY":                 "auth.jwt_secret",
	"REDIS_ADDR":                     "redis.addr",
	"REDIS_PASSWORD":                 "redis.password",
	"GCS_BUCKET_NAME":                "storage.bucket",
	"GCS_CDN_DOMAIN":                 "storage.cdn_domain",
	"GOOGLE_APPLICATION_CREDENTIALS": "storage.credentials",
	"STORAGE_EMULATOR_HOST":          "storage.endpoint",
	"TEMPORAL_ADDRESS":               "temporal.address",
	"TEMPORAL_NAMESPACE":             "temporal.namespace",
	"TEMPORAL_TASK_QUEUE":            "temporal.task_queue",
	"OTEL_EXPORTER_OTLP_ENDPOINT":    "observability.otel.endpoint",
	"OTEL_EXPORTER_OTLP_HEADERS":     "observability.otel.headers",
	"OTEL_SERVICE_NAME":              "observability.otel.service_name",
}

// LoadConfig layers defaults, the optional YAML file at path, the bare
// variables in bareEnv, and finally GOVGEN_* variables where "__" separates
// sections (GOVGEN_LLM__MODEL -> llm.model).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load config defaults: %w", err)
	}

	if path = strings.TrimSpace(path); path != "" {
		raw, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return bareEnv[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(raw) > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	return raw, nil
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Lock.Backend = strings.ToLower(strings.TrimSpace(c.Lock.Backend))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Temporal = c.Temporal.WithDefaults()
	if c.Observability.Otel.Version == "" {
		c.Observability.Otel.Version = Version
	}
}

func (c Config) Validate() error {
	var problems []string
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		problems = append(problems, fmt.Sprintf("http.port %d out of range", c.HTTP.Port))
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q must be postgres, mysql or sqlite", c.Database.Driver))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderLangchain:
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q must be openai or langchain", c.LLM.Provider))
	}
	if c.LLM.MaxRetries < 0 {
		problems = append(problems, "llm.max_retries must not be negative")
	}
	switch c.Lock.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			problems = append(problems, "lock.backend redis requires redis.addr")
		}
	default:
		problems = append(problems, fmt.Sprintf("lock.backend %q must be memory or redis", c.Lock.Backend))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
