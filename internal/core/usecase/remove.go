package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anfastech/slaq-analysis/internal/core/ports"
)

// RemoveRecordingUseCase deletes a recording row (the database cascades the
// analysis result) and the stored audio file behind it.
type RemoveRecordingUseCase struct {
	repo    ports.RecordingRepository
	storage ports.ObjectStorage
}

func NewRemoveRecordingUseCase(repo ports.RecordingRepository, storage ports.ObjectStorage) *RemoveRecordingUseCase {
	return &RemoveRecordingUseCase{repo: repo, storage: storage}
}

func (uc *RemoveRecordingUseCase) Remove(ctx context.Context, recordingID string) error {
	rec, err := uc.repo.GetByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	if err := uc.storage.Remove(ctx, rec.StoragePath); err != nil {
		// The row is gone; an orphaned file is a cleanup concern, not a
		// failed delete.
		slog.Warn("could not remove stored audio", "recording_id", rec.ID, "key", rec.StoragePath, "error", err)
	}
	return nil
}
