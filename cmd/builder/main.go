package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/KganDev/irish-rail-schedule/gtfsdb"
	"github.com/KganDev/irish-rail-schedule/internal/app"
	"github.com/KganDev/irish-rail-schedule/internal/appconf"
	"github.com/KganDev/irish-rail-schedule/internal/clock"
	"github.com/KganDev/irish-rail-schedule/internal/logging"
	"github.com/KganDev/irish-rail-schedule/internal/metrics"
	"github.com/KganDev/irish-rail-schedule/internal/statusapi"
)

// rebuildInterval is how often a long-running builder refreshes the feed.
const rebuildInterval = 24 * time.Hour

func main() {
	cfg, err := appconf.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logging.LogError(logger, "builder exited with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appconf.Config, logger *slog.Logger) error {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return err
		}
	}

	db, err := gtfsdb.NewClient(gtfsdb.NewConfig(cfg.DBPath, cfg.Env, cfg.Verbose))
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(db, logger, "snapshot_store")

	m := metrics.NewWithLogger(logger)
	defer m.Shutdown()

	application := &app.Application{
		Config:  cfg,
		Logger:  logger,
		Clock:   clock.NewEnvironmentClock("TARGET_DATE", time.UTC),
		Metrics: m,
		DB:      db,
	}

	buildErr := application.RunBuild(ctx)

	// One-shot mode: no listen address means build, write artifacts, exit.
	if cfg.ListenAddr == "" {
		return buildErr
	}
	if buildErr != nil {
		// Keep serving so operators can see /health and /metrics while the
		// next scheduled rebuild retries.
		logging.LogError(logger, "initial build failed, serving anyway", buildErr)
	}

	m.StartDBStatsCollector(db.DB, 15*time.Second)

	server, rateLimiter := statusapi.NewServer(application)
	defer rateLimiter.Stop()

	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "status_api_listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("env", cfg.Env.String()))
		serverErr <- server.ListenAndServe()
	}()

	ticker := time.NewTicker(rebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := application.RunBuild(ctx); err != nil {
				logging.LogError(logger, "scheduled rebuild failed", err)
			}
		case err := <-serverErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	}
}
