package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
	"github.com/anfastech/slaq-analysis/internal/core/ports"
)

// ProcessConfig bounds the job-level retry policy, which is distinct from
// the HTTP-level retries inside the analysis client.
type ProcessConfig struct {
	MaxJobAttempts   int
	RetryBackoffBase time.Duration
}

// ProcessRecordingUseCase drives one recording through
// normalize → analyze → canonicalize → persist, owning every status
// transition and the job-level retry schedule.
type ProcessRecordingUseCase struct {
	repo       ports.RecordingRepository
	results    ports.ResultRepository
	storage    ports.ObjectStorage
	normalizer ports.AudioNormalizer
	prober     ports.DurationProber
	analyzer   ports.AnalysisService
	queue      ports.MessageQueue

	maxAttempts int
	backoffBase time.Duration
}

func NewProcessRecordingUseCase(
	repo ports.RecordingRepository,
	results ports.ResultRepository,
	storage ports.ObjectStorage,
	normalizer ports.AudioNormalizer,
	prober ports.DurationProber,
	analyzer ports.AnalysisService,
	queue ports.MessageQueue,
	cfg ProcessConfig,
) *ProcessRecordingUseCase {
	if cfg.MaxJobAttempts <= 0 {
		cfg.MaxJobAttempts = 3
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = time.Minute
	}
	return &ProcessRecordingUseCase{
		repo:        repo,
		results:     results,
		storage:     storage,
		normalizer:  normalizer,
		prober:      prober,
		analyzer:    analyzer,
		queue:       queue,
		maxAttempts: cfg.MaxJobAttempts,
		backoffBase: cfg.RetryBackoffBase,
	}
}

func (uc *ProcessRecordingUseCase) Process(ctx context.Context, job domain.AnalysisJob) error {
	rec, err := uc.repo.GetByID(ctx, job.RecordingID)
	if err != nil {
		if domain.IsKind(err, domain.ErrRecordingNotFound) {
			// Deleted while queued; nothing worth surfacing.
			slog.Info("recording gone, dropping job", "recording_id", job.RecordingID)
			return nil
		}
		return fmt.Errorf("fetch recording: %w", err)
	}

	switch rec.Status {
	case domain.StatusProcessing:
		// Single-writer gate: a second job for an in-flight recording is a
		// dispatch bug upstream, not something to resolve here.
		slog.Warn("recording already in flight, dropping job", "recording_id", rec.ID, "attempt", job.Attempt)
		return nil
	case domain.StatusCompleted:
		slog.Warn("recording already completed, dropping job", "recording_id", rec.ID)
		return nil
	}

	if err := uc.repo.UpdateStatus(ctx, rec.ID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.runPipeline(ctx, rec, job)
	if err != nil {
		return uc.fail(ctx, job, err)
	}

	if err := uc.results.Save(ctx, result); err != nil {
		return uc.fail(ctx, job, fmt.Errorf("save analysis result: %w", err))
	}
	if err := uc.repo.MarkProcessed(ctx, rec.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("stamp processed time: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, rec.ID, domain.StatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}

	slog.Info("recording processed",
		"recording_id", rec.ID,
		"severity", result.Severity,
		"events", len(result.Events),
		"attempt", job.Attempt,
	)
	return nil
}

func (uc *ProcessRecordingUseCase) runPipeline(ctx context.Context, rec *domain.Recording, job domain.AnalysisJob) (*domain.AnalysisResult, error) {
	audioPath := uc.storage.Path(rec.StoragePath)

	if seconds, err := uc.prober.Duration(ctx, audioPath); err != nil {
		slog.Warn("could not measure audio duration", "recording_id", rec.ID, "error", err)
	} else if err := uc.repo.SetDuration(ctx, rec.ID, seconds); err != nil {
		slog.Warn("could not persist audio duration", "recording_id", rec.ID, "error", err)
	}

	usePath, cleanup := uc.normalizer.Normalize(ctx, audioPath)
	defer cleanup()

	started := time.Now()
	raw, err := uc.analyzer.Analyze(ctx, ports.AnalyzeRequest{
		AudioPath:  usePath,
		Language:   job.Language,
		Transcript: job.Transcript,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze audio: %w", err)
	}

	langCode := uc.analyzer.ResolveLanguage(job.Language)
	result := domain.NormalizeAnalysis(raw, job.Transcript, langCode, time.Since(started))
	result.RecordingID = rec.ID
	result.CreatedAt = time.Now().UTC()
	return &result, nil
}

// fail records the cause, then either schedules a job-level retry with linear
// backoff or leaves the recording terminally failed. Permanent local
// precondition failures never consume retry budget: a missing file will not
// reappear.
func (uc *ProcessRecordingUseCase) fail(ctx context.Context, job domain.AnalysisJob, cause error) error {
	if err := uc.repo.UpdateStatus(ctx, job.RecordingID, domain.StatusFailed, cause.Error()); err != nil {
		slog.Error("could not mark recording failed", "recording_id", job.RecordingID, "error", err)
	}

	if domain.IsKind(cause, domain.ErrInvalidInput) {
		slog.Error("permanent failure, not retrying",
			"recording_id", job.RecordingID,
			"attempt", job.Attempt,
			"error", cause,
		)
		return cause
	}

	if job.Attempt >= uc.maxAttempts {
		slog.Error("job retry budget exhausted",
			"recording_id", job.RecordingID,
			"attempts", job.Attempt,
			"error", cause,
		)
		return cause
	}

	backoff := uc.backoffBase * time.Duration(job.Attempt)
	slog.Warn("scheduling job retry",
		"recording_id", job.RecordingID,
		"attempt", job.Attempt,
		"backoff", backoff,
		"error", cause,
	)

	timer := time.NewTimer(backoff)
	select {
	case <-ctx.Done():
		timer.Stop()
		return cause
	case <-timer.C:
	}

	retry := job
	retry.Attempt++
	retry.EnqueuedAt = time.Now().UTC()
	if err := uc.queue.PublishAnalysisJob(ctx, retry); err != nil {
		return fmt.Errorf("%w; schedule retry: %v", cause, err)
	}
	return cause
}
