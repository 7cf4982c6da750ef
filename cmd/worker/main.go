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

	"github.com/kirillkom/deckgen/internal/bootstrap"
	"github.com/kirillkom/deckgen/internal/config"
	"github.com/kirillkom/deckgen/internal/observability/logging"
)

const serviceName = "deckgen-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux(app),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDeckRequested(ctx, func(handlerCtx context.Context, jobID string) error {
		return processJob(handlerCtx, app, jobID)
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker_metrics_shutdown_failed", "error", err)
	}
}

func metricsMux(app *bootstrap.App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func processJob(ctx context.Context, app *bootstrap.App, jobID string) error {
	if job, err := app.Repo.GetByID(ctx, jobID); err == nil {
		app.Metrics.ObserveQueueLag(serviceName, time.Since(job.CreatedAt))
	}

	app.Metrics.StartJob()
	start := time.Now()
	err := app.ProcessUC.ProcessByID(ctx, jobID)
	app.Metrics.FinishJob(serviceName, time.Since(start), err)
	if err != nil {
		return err
	}

	if job, getErr := app.Repo.GetByID(ctx, jobID); getErr == nil && job.Deck != nil {
		app.Metrics.ObserveDeck(serviceName, len(job.Deck.Slides))
	}
	slog.Info("job_completed", "job_id", jobID, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
