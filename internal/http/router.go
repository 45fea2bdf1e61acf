// Package httpapi wires the HTTP transport (Gin) to the intake orchestrator,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Never log a prospective client's phone number or message text
//   - Deterministic, minimal router setup; all dependencies injected
//   - The WhatsApp webhook shares the same turn pipeline as the web widget
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-intake-bot/internal/config"
	"github.com/tbourn/go-intake-bot/internal/domain"
	"github.com/tbourn/go-intake-bot/internal/http/handlers"
	"github.com/tbourn/go-intake-bot/internal/http/middleware"
	"github.com/tbourn/go-intake-bot/internal/repo"
	"github.com/tbourn/go-intake-bot/internal/services"
	"github.com/tbourn/go-intake-bot/internal/whatsapp"
)

// sessionStoreShim adapts the repository free functions to
// services.SessionStore (and services.Pinger for the status probe).
type sessionStoreShim struct{ db *gorm.DB }

func (s sessionStoreShim) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return repo.GetSession(ctx, s.db, id)
}

func (s sessionStoreShim) SaveSession(ctx context.Context, sess *domain.Session) error {
	return repo.SaveSession(ctx, s.db, sess)
}

func (s sessionStoreShim) Ping(ctx context.Context) error {
	return repo.Ping(ctx, s.db)
}

// flowStoreShim serves the questionnaire to the fallback engine.
type flowStoreShim struct{ db *gorm.DB }

func (s flowStoreShim) GetFlow(ctx context.Context) (domain.Flow, error) {
	return repo.GetFlow(ctx, s.db)
}

// leadStoreShim persists the lead record written at handoff.
type leadStoreShim struct{ db *gorm.DB }

func (s leadStoreShim) SaveLead(ctx context.Context, sessionID string, answers []domain.LeadAnswer) error {
	_, err := repo.CreateLead(ctx, s.db, sessionID, answers)
	return err
}

// idemStoreShim adapts the idempotency helpers to handlers.IdempotencyStore.
type idemStoreShim struct{ db *gorm.DB }

func (s idemStoreShim) Get(ctx context.Context, sessionID, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.db, sessionID, key, now)
}

func (s idemStoreShim) Create(ctx context.Context, sessionID, key, response string, status int, ttl time.Duration) error {
	_, err := repo.CreateIdempotency(ctx, s.db, sessionID, key, response, status, ttl)
	return err
}

// leadRepoShim adapts the lead read helpers to services.LeadRepo.
type leadRepoShim struct{}

// CountLeads proxies repo.CountLeads.
func (leadRepoShim) CountLeads(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountLeads(ctx, db)
}

// ListLeadsPage proxies repo.ListLeadsPage.
func (leadRepoShim) ListLeadsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Lead, error) {
	return repo.ListLeadsPage(ctx, db, offset, limit)
}

// LeadsStats proxies repo.LeadsStats (ETag support).
func (leadRepoShim) LeadsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.LeadsStats(ctx, db)
}

// NewOrchestrator builds the intake orchestrator over db. ai and transport
// may be nil; every turn then falls back to the scripted flow and handoff
// dispatch is reported as failed.
func NewOrchestrator(db *gorm.DB, ai services.AIBackend, transport services.Transport, cfg config.Config) *services.Orchestrator {
	return services.NewOrchestrator(services.Deps{
		Sessions:  sessionStoreShim{db: db},
		Flows:     flowStoreShim{db: db},
		Leads:     leadStoreShim{db: db},
		AI:        ai,
		Transport: transport,
		Tracker:   services.NewAIHealthTracker(cfg.AI.RetryAfter),
		Validator: services.DefaultValidator(),
		Log:       log.With().Str("component", "intake").Logger(),
	}, services.Options{
		AITimeout:       cfg.AI.Timeout,
		FlowCacheTTL:    cfg.Flow.CacheTTL,
		CountryCode:     cfg.Phone.CountryCode,
		Region:          cfg.Phone.Region,
		InternalAddress: cfg.WhatsApp.InternalAddress,
	})
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the orchestrator serving them.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger + ScopedLogger: scrubbed access line, request logger
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per session/sender/IP, bypass on replay)
//  9. Compression, CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, ai services.AIBackend, transport services.Transport, cfg config.Config) *services.Orchestrator {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.ScopedLogger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, sessionID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, sessionID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per conversation
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySenderOrIP())
	r.Use(rl.Handler())

	// 9) Compression (Prometheus negotiates its own)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", handlers.HeaderIdempotencyReplayed},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
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
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", handlers.HeaderIdempotencyReplayed},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Conversations carry personal data; keep them out of shared caches.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		Private:      true,
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

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	orch := NewOrchestrator(db, ai, transport, cfg)
	leadSvc := services.NewLeadService(db, leadRepoShim{})
	h := handlers.New(orch, leadSvc, idemStoreShim{db: db}, transport)
	if cfg.IdempotencyTTL > 0 {
		h.IdempotencyTTL = cfg.IdempotencyTTL
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Conversation
		api.POST("/sessions/:id/messages", h.PostMessage)
		api.POST("/sessions/:id/phone", h.SubmitPhone)
		api.GET("/sessions/:id", h.GetSession)

		// Operators
		api.GET("/leads", h.ListLeads)
		api.GET("/status", h.Status)
	}

	// Twilio posts WhatsApp deliveries here.
	webhook := []gin.HandlerFunc{}
	if cfg.WhatsApp.ValidateWebhook && cfg.WhatsApp.AuthToken != "" {
		webhook = append(webhook, whatsappSignature(cfg))
	}
	webhook = append(webhook, h.WhatsAppWebhook)
	api.POST("/webhooks/whatsapp", webhook...)

	return orch
}

// whatsappSignature rejects webhook deliveries not signed with the Twilio
// auth token, answering with the standard JSON envelope.
func whatsappSignature(cfg config.Config) gin.HandlerFunc {
	return whatsapp.VerifySignature(whatsapp.SignatureOptions{
		AuthToken:     cfg.WhatsApp.AuthToken,
		PublicBaseURL: cfg.WhatsApp.PublicBaseURL,
		OnReject: func(c *gin.Context, reason string) {
			handlers.Fail(c, http.StatusForbidden, handlers.ErrCodeForbidden, reason)
		},
	}, log.With().Str("component", "webhook").Logger())
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
