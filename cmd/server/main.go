package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/plazafinder/mall-radar/internal/adapter/http"
	"github.com/plazafinder/mall-radar/internal/adapter/supabase"
	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/discovery"
	"github.com/plazafinder/mall-radar/internal/observability"
	"github.com/plazafinder/mall-radar/internal/prefs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := supabase.NewClient(cfg, logger, metrics)
	malls := supabase.NewMallRepository(client)
	stores := supabase.NewStoreRepository(client)
	promos := supabase.NewPromotionRepository(client)
	userPrefs := supabase.NewPreferenceRepository(client)
	profiles := supabase.NewProfileRepository(client)

	resolver := supabase.NewCachedResolver(
		supabase.NewSessionResolver(client, profiles, logger),
		cfg.SessionCacheSize, metrics)

	svc := discovery.New(malls, stores, promos, logger, metrics, cfg.PromoRadiusKm)

	srv := httpadapter.NewServer(cfg, svc, malls, promos, resolver,
		userPrefs, prefs.NewMemoryStore(), svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	logger.Info("shutdown complete")
}
