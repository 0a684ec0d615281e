package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/bh-network-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/bh-network-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/bh-network-dashboard/internal/catalog"
	"github.com/couchcryptid/bh-network-dashboard/internal/config"
	"github.com/couchcryptid/bh-network-dashboard/internal/dashboard"
	"github.com/couchcryptid/bh-network-dashboard/internal/facility"
	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	"github.com/couchcryptid/bh-network-dashboard/internal/session"
	"github.com/joho/godotenv"
)

const sessionJanitorInterval = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	loader := facility.NewCachedLoader(facility.NewLoader(logger, metrics, nil), cfg.FacilityCacheSize, metrics)
	assets := catalog.New(cfg.MapsDir, cfg.TablesDir)
	svc := dashboard.New(assets, loader, cfg.FacilityDir, logger, metrics)

	sessions, err := session.NewManager(session.Options{
		Password:       cfg.AppPassword,
		TTL:            cfg.SessionTTL,
		LoginPerMinute: cfg.LoginRatePerMinute,
	}, logger, metrics)
	if err != nil {
		logger.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, sessions, cfg.SessionCookieSecure, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Publish the facility directory once at startup when a broker is configured.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		go publishFacilities(ctx, loader, writer, cfg.FacilityDir, logger)
	} else {
		logger.Info("facility publishing disabled")
	}

	go sessions.RunJanitor(ctx, sessionJanitorInterval)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func publishFacilities(ctx context.Context, loader facility.DirectoryLoader, writer *kafkaadapter.Writer, dir string, logger *slog.Logger) {
	res, err := loader.Load(ctx, dir)
	if err != nil {
		logger.Warn("facility publish skipped", "dir", dir, "error", err)
		return
	}
	if err := writer.Publish(ctx, res); err != nil && ctx.Err() == nil {
		logger.Error("facility publish failed", "error", err)
	}
}
