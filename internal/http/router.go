// Package httpapi wires the HTTP transport (Gin) to the assistant pipeline,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tbourn/go-travel-backend/internal/assistant"
	"github.com/tbourn/go-travel-backend/internal/cache"
	"github.com/tbourn/go-travel-backend/internal/config"
	"github.com/tbourn/go-travel-backend/internal/domain"
	"github.com/tbourn/go-travel-backend/internal/http/handlers"
	"github.com/tbourn/go-travel-backend/internal/http/middleware"
	"github.com/tbourn/go-travel-backend/internal/knowledge"
	"github.com/tbourn/go-travel-backend/internal/repo"
	"github.com/tbourn/go-travel-backend/internal/stream"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// factStoreShim adapts the repository free functions to the
// knowledge.FactStore interface expected by the Builder. This keeps the
// knowledge package decoupled from the concrete repo package while reusing
// existing functions.
type factStoreShim struct {
	db *gorm.DB
}

// ListFresh proxies repo.ListFreshFacts.
func (s factStoreShim) ListFresh(ctx context.Context, destination string, now time.Time) ([]domain.KnowledgeFact, error) {
	return repo.ListFreshFacts(ctx, s.db, destination, now)
}

// CountFresh proxies repo.CountFreshFacts.
func (s factStoreShim) CountFresh(ctx context.Context, destination string, now time.Time) (int64, error) {
	return repo.CountFreshFacts(ctx, s.db, destination, now)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Structured request logging
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
//  9. Gzip on the API group (generated replies compress well)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, log zerolog.Logger, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Plan-Tier"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Plan-Tier"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: pipeline ← repo/db/backend
	rc := cache.New(db, log, cache.Options{
		MemoryMax: cfg.Cache.MemoryMax,
		MemoryTTL: cfg.Cache.MemoryTTL,
		TTL: cache.TTLPolicy{
			Volatile: cfg.Cache.TTLVolatile,
			Price:    cfg.Cache.TTLPrice,
			Default:  cfg.Cache.TTLDefault,
		},
	})

	var collector knowledge.Collector
	if cfg.Knowledge.CollectorURL != "" {
		collector = knowledge.NewHTTPCollector(cfg.Knowledge.CollectorURL, cfg.Knowledge.CollectTimeout)
	}
	kb := knowledge.New(factStoreShim{db: db}, collector, log)
	kb.MinFacts = cfg.Knowledge.MinFacts
	kb.TopN = cfg.Knowledge.TopN
	kb.CollectTimeout = cfg.Knowledge.CollectTimeout

	backend := assistant.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Model, cfg.Backend.Timeout)
	svc := assistant.NewService(rc, kb, backend, stream.NewConsumer(log), log)

	h := handlers.New(svc, rc)

	// Public API (compressed; generated replies are text-heavy)
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		// Assistant
		api.POST("/assistant/messages", h.PostMessage)
		api.GET("/assistant/sessions/:id/goals", h.GetSessionGoals)

		// Cache administration
		api.DELETE("/cache/cities/:city", h.InvalidateCity)
		api.POST("/cache/cleanup", h.CleanupCache)
	}
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
