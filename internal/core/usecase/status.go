package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
	"github.com/anfastech/slaq-analysis/internal/core/ports"
)

// StatusUseCase is the read model for the polling collaborator. No internal
// error detail beyond the recorded message crosses this boundary.
type StatusUseCase struct {
	repo    ports.RecordingRepository
	results ports.ResultRepository
}

func NewStatusUseCase(repo ports.RecordingRepository, results ports.ResultRepository) *StatusUseCase {
	return &StatusUseCase{repo: repo, results: results}
}

func (uc *StatusUseCase) GetStatus(ctx context.Context, recordingID string) (*ports.RecordingStatus, error) {
	rec, err := uc.repo.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}

	status := &ports.RecordingStatus{
		RecordingID:  rec.ID,
		Status:       rec.Status,
		ErrorMessage: rec.ErrorMessage,
	}

	if rec.Status == domain.StatusCompleted {
		result, err := uc.results.GetByRecordingID(ctx, rec.ID)
		if err != nil {
			slog.Warn("completed recording has no readable result", "recording_id", rec.ID, "error", err)
		} else {
			summary := result.Summary()
			status.ResultSummary = &summary
		}
	}
	return status, nil
}

func (uc *StatusUseCase) GetResult(ctx context.Context, recordingID string) (*domain.AnalysisResult, error) {
	rec, err := uc.repo.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusCompleted {
		return nil, domain.WrapError(domain.ErrConflict, "get result",
			fmt.Errorf("recording is %s, not completed", rec.Status))
	}
	return uc.results.GetByRecordingID(ctx, rec.ID)
}
