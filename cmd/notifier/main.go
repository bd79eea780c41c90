// The notifier runs the background proximity sweep on a schedule and
// publishes alerts to Kafka. It shares the server's config and data
// access but exposes only health and metrics over HTTP.
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

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	kafkaadapter "github.com/plazafinder/mall-radar/internal/adapter/kafka"
	"github.com/plazafinder/mall-radar/internal/adapter/supabase"
	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/notify"
	"github.com/plazafinder/mall-radar/internal/observability"
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
	preferences := supabase.NewPreferenceRepository(client)

	writer := kafkaadapter.NewAlertWriter(cfg, logger)

	clock := clockwork.NewRealClock()
	cooldown := notify.NewCooldownIndex(cfg.NotifyCooldown, clock)
	checker := notify.NewChecker(preferences, malls, writer, cooldown,
		logger, metrics, cfg.NotifyDefaultRadiusKm, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Skip a tick when the previous sweep is still running rather than
	// stacking overlapping cycles.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = scheduler.AddFunc(cfg.NotifySchedule, func() {
		if err := checker.RunCycle(ctx); err != nil {
			logger.Error("proximity cycle failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid NOTIFY_SCHEDULE", "schedule", cfg.NotifySchedule, "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("notifier starting", "schedule", cfg.NotifySchedule, "cooldown", cfg.NotifyCooldown)
	metrics.NotifierRunning.Set(1)
	scheduler.Start()

	<-ctx.Done()
	logger.Info("shutting down")
	metrics.NotifierRunning.Set(0)

	// Let an in-flight cycle finish before closing the producer.
	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
