// Command studio serves the content studio API: session-scoped orchestration
// of image generation, captioning and SEO metadata against a remote AI
// backend.
//
// @title       Content Studio API
// @version     1.0
// @description Session-scoped orchestration of image generation, captioning and SEO metadata.
// @BasePath    /api/v1
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
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-content-studio/internal/config"
	httpapi "github.com/tbourn/go-content-studio/internal/http"
	"github.com/tbourn/go-content-studio/internal/observability"
	"github.com/tbourn/go-content-studio/internal/remote"
	"github.com/tbourn/go-content-studio/internal/repo"
	"github.com/tbourn/go-content-studio/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	started := time.Now()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	var db *gorm.DB
	if cfg.Journal.Enabled {
		db, err = repo.OpenSQLite(cfg.Journal.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Journal.DBPath).Msg("open journal database")
		}
		if err := repo.AutoMigrate(db); err != nil {
			log.Fatal().Err(err).Msg("migrate journal database")
		}
	}

	rc := remote.NewClient(cfg.Backend.BaseURL, nil, cfg.Backend.Timeout)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	mgr := httpapi.RegisterRoutes(r, db, rc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	// Shutdown does not cancel request contexts; end open event streams so
	// it can finish.
	srv.RegisterOnShutdown(mgr.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.Backend.BaseURL).
			Bool("journal", db != nil).
			Str("version", ver).
			Msg("studio listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		// Stop accepting requests first, then let dispatched work settle so
		// journal rows are finished before the database closes. Each step
		// gets its own budget.
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		err := srv.Shutdown(sctx)
		cancel()

		dctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if derr := mgr.Shutdown(dctx); derr != nil {
			log.Warn().Err(derr).Msg("in-flight requests still running at shutdown")
		}
		cancel()

		octx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if oerr := shutdownOTel(octx); oerr != nil {
			log.Warn().Err(oerr).Msg("otel shutdown")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	log.Info().Dur("uptime", time.Since(started)).Msg("server stopped")
}
