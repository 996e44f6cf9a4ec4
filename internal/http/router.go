package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/govgen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/govgen-backend/internal/http/middleware"
	"github.com/yungbote/govgen-backend/internal/observability"
	"github.com/yungbote/govgen-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	GenerationHandler *httpH.GenerationHandler
	DocumentHandler   *httpH.DocumentHandler
	MetricsHandler    *httpH.MetricsHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/metrics", "/healthcheck"))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Ops
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Generations
		if h := cfg.GenerationHandler; h != nil {
			api.POST("/generations", h.Create)
			api.GET("/generations", h.List)
			api.GET("/generations/:id", h.Get)
			api.POST("/generations/:id/reason", h.Reason)
			api.POST("/generations/:id/generate", h.Generate)
			api.POST("/generations/:id/validate", h.Validate)
			api.POST("/generations/:id/fail", h.Fail)
			api.POST("/generations/:id/run", h.Run)
		}

		// Governance documents
		if h := cfg.DocumentHandler; h != nil {
			api.GET("/documents", h.List)
			api.POST("/documents", h.Create)
			api.POST("/documents/upload", h.Upload)
			api.GET("/documents/:id", h.Get)
			api.PATCH("/documents/:id", h.Update)
			api.DELETE("/documents/:id", h.Delete)
		}

		// Metrics
		if h := cfg.MetricsHandler; h != nil {
			api.GET("/metrics/summary", h.Summary)
			api.POST("/metrics/snapshots", h.CreateSnapshot)
			api.GET("/metrics/snapshots", h.ListSnapshots)
		}
	}

	return r
}
