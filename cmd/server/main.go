// Command server runs the intake bot HTTP API.
//
//	@title			Intake Bot API
//	@version		1.0
//	@description	Hybrid AI-first / scripted-fallback lead intake chat for a law office.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-intake-bot/docs"
	"github.com/tbourn/go-intake-bot/internal/ai"
	"github.com/tbourn/go-intake-bot/internal/config"
	"github.com/tbourn/go-intake-bot/internal/domain"
	httpapi "github.com/tbourn/go-intake-bot/internal/http"
	"github.com/tbourn/go-intake-bot/internal/observability"
	"github.com/tbourn/go-intake-bot/internal/repo"
	"github.com/tbourn/go-intake-bot/internal/services"
	"github.com/tbourn/go-intake-bot/internal/sysutil"
	"github.com/tbourn/go-intake-bot/internal/whatsapp"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	loaded, err := sysutil.LoadEnvFiles(".env", "environments/.env.development")
	if err != nil {
		log.Fatal().Err(err).Msg("load env file")
	}

	cfg := config.MustLoad()
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	sysutil.ConfigureLogging(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: ver,
	})
	if len(loaded) > 0 {
		log.Info().Strs("files", loaded).Msg("env files loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if cfg.Flow.SeedDefault {
		seeded, err := repo.SeedFlow(ctx, db, domain.DefaultFlow())
		if err != nil {
			log.Fatal().Err(err).Msg("seed flow")
		}
		if seeded {
			log.Info().Msg("default intake flow seeded")
		}
	}

	go sweepIdempotency(ctx, db, cfg.IdempotencyTTL)

	// Keep the interfaces nil (not typed-nil) when a backend is off.
	var backend services.AIBackend
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		g, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.HistoryTurns,
			log.With().Str("component", "gemini").Logger())
		if err != nil {
			log.Error().Err(err).Msg("gemini client unavailable; running fallback-only")
		} else {
			backend = g
			log.Info().Str("model", cfg.AI.Model).Msg("gemini backend enabled")
		}
	} else {
		log.Warn().Msg("AI backend disabled; every turn uses the scripted flow")
	}

	var transport services.Transport
	if cfg.WhatsApp.Enabled() {
		transport = whatsapp.NewTwilio(cfg.WhatsApp.AccountSID, cfg.WhatsApp.AuthToken, cfg.WhatsApp.From,
			log.With().Str("component", "twilio").Logger())
		log.Info().Msg("twilio whatsapp transport enabled")
	} else {
		log.Warn().Msg("whatsapp transport disabled; handoff notifications will not be sent")
	}

	gin.SetMode(cfg.GinMode)
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = ver

	r := gin.New()
	httpapi.RegisterRoutes(r, db, backend, transport, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}

// sweepIdempotency deletes expired replay records until ctx is done. It runs
// at most hourly, sooner when the TTL itself is shorter.
func sweepIdempotency(ctx context.Context, db *gorm.DB, ttl time.Duration) {
	every := time.Hour
	if ttl > 0 && ttl < every {
		every = ttl
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency records")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired idempotency records purged")
			}
		}
	}
}
