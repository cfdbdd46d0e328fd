package bootstrap

import (
	"context"
	"fmt"

	"github.com/anfastech/slaq-analysis/internal/config"
	"github.com/anfastech/slaq-analysis/internal/core/ports"
	"github.com/anfastech/slaq-analysis/internal/core/usecase"
	"github.com/anfastech/slaq-analysis/internal/infrastructure/analysisapi"
	"github.com/anfastech/slaq-analysis/internal/infrastructure/audionorm"
	"github.com/anfastech/slaq-analysis/internal/infrastructure/queue/nats"
	"github.com/anfastech/slaq-analysis/internal/infrastructure/repository/postgres"
	"github.com/anfastech/slaq-analysis/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Analysis ports.AnalysisService

	SubmitUC  ports.RecordingSubmitter
	ProcessUC ports.RecordingProcessor
	StatusUC  ports.RecordingStatusReader
	RemoveUC  ports.RecordingRemover

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	recordings := postgres.NewRecordingRepository(db)
	results := postgres.NewResultRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init recording storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		WorkerConcurrency: cfg.WorkerConcurrency,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	analysis := analysisapi.New(analysisapi.Config{
		BaseURL:         cfg.AnalysisBaseURL,
		RequestTimeout:  cfg.AnalysisRequestTimeout,
		MaxRetries:      cfg.AnalysisMaxRetries,
		RetryDelay:      cfg.AnalysisRetryDelay,
		HealthTimeout:   cfg.AnalysisHealthTimeout,
		DefaultLanguage: cfg.DefaultLanguage,
	})

	normalizer := audionorm.New(cfg.SampleRate)
	prober := audionorm.NewProber()

	submitUC := usecase.NewSubmitRecordingUseCase(recordings, storage, queue)
	processUC := usecase.NewProcessRecordingUseCase(
		recordings, results, storage, normalizer, prober, analysis, queue,
		usecase.ProcessConfig{
			MaxJobAttempts:   cfg.MaxJobAttempts,
			RetryBackoffBase: cfg.JobBackoffBase,
		},
	)
	statusUC := usecase.NewStatusUseCase(recordings, results)
	removeUC := usecase.NewRemoveRecordingUseCase(recordings, storage)

	return &App{
		Config: cfg,

		Queue:    queue,
		Analysis: analysis,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		StatusUC:  statusUC,
		RemoveUC:  removeUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
