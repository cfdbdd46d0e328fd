package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
	"github.com/anfastech/slaq-analysis/internal/core/ports"
)

type SubmitRecordingUseCase struct {
	repo    ports.RecordingRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitRecordingUseCase(
	repo ports.RecordingRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitRecordingUseCase {
	return &SubmitRecordingUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Submit stores the audio, creates the pending recording and enqueues the
// first analysis attempt. The enqueue is fire-and-forget from the caller's
// perspective; acceptance is the only observable outcome.
func (uc *SubmitRecordingUseCase) Submit(ctx context.Context, req ports.SubmitRequest) (*domain.Recording, error) {
	if req.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit recording", errors.New("empty audio body"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, req.Body); err != nil {
		return nil, fmt.Errorf("save audio to storage: %w", err)
	}

	rec := &domain.Recording{
		ID:            id,
		PatientID:     req.PatientID,
		Filename:      req.Filename,
		StoragePath:   storageKey,
		Language:      req.Language,
		Status:        domain.StatusPending,
		FileSizeBytes: req.Size,
		CreatedAt:     now,
	}
	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}

	job := domain.AnalysisJob{
		RecordingID: id,
		Language:    req.Language,
		Transcript:  strings.TrimSpace(req.Transcript),
		Attempt:     1,
		EnqueuedAt:  now,
	}
	if err := uc.queue.PublishAnalysisJob(ctx, job); err != nil {
		return nil, fmt.Errorf("publish analysis job: %w", err)
	}

	return rec, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "recording.bin"
	}
	return base
}
