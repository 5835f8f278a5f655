// Package httpapi wires the HTTP transport (Gin) to the session manager,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, rate
// limiting, CORS, security headers, and compression.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Long-lived event streams are exempt from rate limiting and compression
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-content-studio/internal/config"
	"github.com/tbourn/go-content-studio/internal/docs"
	"github.com/tbourn/go-content-studio/internal/domain"
	"github.com/tbourn/go-content-studio/internal/http/handlers"
	"github.com/tbourn/go-content-studio/internal/http/middleware"
	"github.com/tbourn/go-content-studio/internal/repo"
	"github.com/tbourn/go-content-studio/internal/services"
)

// Multipart framing on top of the image itself.
const uploadSlack = 64 << 10

// operationRepoShim adapts the repository free functions to the
// services.OperationRepo interface expected by the Journal.
type operationRepoShim struct{}

// CreateOperation proxies repo.CreateOperation.
func (operationRepoShim) CreateOperation(ctx context.Context, db *gorm.DB, op *domain.Operation) error {
	return repo.CreateOperation(ctx, db, op)
}

// FinishOperation proxies repo.FinishOperation.
func (operationRepoShim) FinishOperation(ctx context.Context, db *gorm.DB, id, status, errMsg string, at time.Time) error {
	return repo.FinishOperation(ctx, db, id, status, errMsg, at)
}

// CountOperations proxies repo.CountOperations (pagination support).
func (operationRepoShim) CountOperations(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	return repo.CountOperations(ctx, db, sessionID)
}

// ListOperationsPage proxies repo.ListOperationsPage (pagination support).
func (operationRepoShim) ListOperationsPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.Operation, error) {
	return repo.ListOperationsPage(ctx, db, sessionID, offset, limit)
}

// PurgeSession proxies repo.PurgeSession.
func (operationRepoShim) PurgeSession(ctx context.Context, db *gorm.DB, sessionID string) error {
	return repo.PurgeSession(ctx, db, sessionID)
}

// sessionShim exposes *services.SessionManager through the handler-facing
// SessionService interface.
type sessionShim struct{ m *services.SessionManager }

func (s sessionShim) Create() handlers.Session { return s.m.Create() }

func (s sessionShim) Get(id string) (handlers.Session, error) {
	o, err := s.m.Get(id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s sessionShim) Delete(id string) error { return s.m.Delete(id) }

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the session manager it created, so the caller can drain
// it on shutdown. db is the journal database; nil disables the journal.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter (sized for image uploads)
//  6. Metrics
//  7. Rate limiter (per client IP; streams and probes exempt)
//  8. CORS and security headers
//  9. Gzip (snapshots carry base64 images; streams and raw bytes exempt)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rc services.RemoteClient, cfg config.Config) *services.SessionManager {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	eventsPath := joinPath(apiBase, "/sessions/:id/events")

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(cfg.MaxUploadBytes + uploadSlack))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	rl.Skip = middleware.SkipPaths("/health", "/metrics", eventsPath)
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	methods := []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	headers := []string{"Origin", "Content-Type", "Accept", "Cache-Control", "Last-Event-ID", "If-None-Match"}
	expose := []string{"X-Request-ID", "Content-Length", "Location", "ETag"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     headers,
			ExposeHeaders:    expose,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     methods,
			AllowHeaders:     headers,
			ExposeHeaders:    expose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// 9) Compression
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`/events$`, `/image$`, `^/metrics$`}),
	))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: handlers ← sessions ← remote/journal
	var (
		journal *services.Journal
		lister  handlers.OperationLister
	)
	if db != nil {
		journal = services.NewJournal(db, operationRepoShim{})
		lister = journal
	}
	mgr := services.NewSessionManager(rc, journal)
	h := handlers.New(sessionShim{mgr}, lister, handlers.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Closing:        mgr.Closing(),
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": mgr.Count(), "journal": db != nil})
	})

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Sessions
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.PUT("/sessions/:id/prompt", h.SetPrompt)
		api.POST("/sessions/:id/theme", h.ToggleTheme)

		// Workflow intents
		api.POST("/sessions/:id/image", h.GenerateImage)
		api.POST("/sessions/:id/upload", h.UploadImage)
		api.POST("/sessions/:id/caption", h.RequestCaption)
		api.POST("/sessions/:id/recaption", h.Recaption)
		api.POST("/sessions/:id/seo", h.RequestSEO)

		// Views
		api.GET("/sessions/:id/image", h.GetImage)
		api.GET("/sessions/:id/events", h.Events)
		api.GET("/sessions/:id/operations", h.ListOperations)
	}
	return mgr
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath prefixes a route pattern the way groupWithPrefix mounts it.
func joinPath(prefix, p string) string {
	if prefix == "" || prefix == "/" {
		return p
	}
	return prefix + p
}
