package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/itinerary-agent/internal/bootstrap"
	"github.com/kirillkom/itinerary-agent/internal/config"
	"github.com/kirillkom/itinerary-agent/internal/observability/logging"
	"github.com/kirillkom/itinerary-agent/internal/observability/metrics"
)

const serviceName = "itinerary-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Metrics: workerMetrics.Agent()})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil {
		logger.Error("worker_requires_queue", "hint", "set NATS_URL")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeTripRequested(ctx, func(handlerCtx context.Context, tripID string) error {
		if trip, err := app.Repo.GetByID(handlerCtx, tripID); err == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(trip.CreatedAt))
		}

		workerMetrics.StartTrip()
		started := time.Now()
		err := app.TripsUC.ProcessByID(handlerCtx, tripID)
		workerMetrics.FinishTrip(serviceName, time.Since(started), err)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
