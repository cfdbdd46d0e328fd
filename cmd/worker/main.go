package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anfastech/slaq-analysis/internal/bootstrap"
	"github.com/anfastech/slaq-analysis/internal/config"
	"github.com/anfastech/slaq-analysis/internal/core/domain"
	"github.com/anfastech/slaq-analysis/internal/observability/logging"
	"github.com/anfastech/slaq-analysis/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("slaq-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("slaq-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// Per-job budget: one full set of HTTP retries plus one job-level
	// backoff wait must fit, with headroom for ffmpeg.
	jobTimeout := cfg.AnalysisRequestTimeout*time.Duration(cfg.AnalysisMaxRetries) +
		cfg.JobBackoffBase*time.Duration(cfg.MaxJobAttempts) +
		2*time.Minute

	slog.Info("worker subscribed", "subject", cfg.NATSSubject, "concurrency", cfg.WorkerConcurrency)
	err = app.Queue.SubscribeAnalysisJobs(ctx, func(handlerCtx context.Context, job domain.AnalysisJob) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		workerMetrics.StartJob()
		if job.Attempt > 1 {
			workerMetrics.RecordRetry("slaq-worker", job.Attempt)
		}
		if !job.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag("slaq-worker", time.Since(job.EnqueuedAt))
		}
		start := time.Now()
		err := app.ProcessUC.Process(processCtx, job)
		workerMetrics.FinishJob("slaq-worker", time.Since(start), err)
		return err
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
