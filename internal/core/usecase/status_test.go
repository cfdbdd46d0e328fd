package usecase

import (
	"context"
	"testing"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
)

func TestGetStatusPendingHasNoSummary(t *testing.T) {
	repo := &recordingRepoFake{rec: pendingRecording()}
	uc := NewStatusUseCase(repo, &resultRepoFake{})

	status, err := uc.GetStatus(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Status != domain.StatusPending || status.ResultSummary != nil {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestGetStatusCompletedIncludesSummary(t *testing.T) {
	rec := pendingRecording()
	rec.Status = domain.StatusCompleted
	repo := &recordingRepoFake{rec: rec}
	results := &resultRepoFake{result: &domain.AnalysisResult{
		RecordingID:        "rec-1",
		Severity:           domain.SeverityModerate,
		MismatchPercentage: 40,
		ConfidenceScore:    0.8,
		Events:             []domain.DysfluencyEvent{{Start: 0, End: 1, Duration: 1}},
	}}
	uc := NewStatusUseCase(repo, results)

	status, err := uc.GetStatus(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.ResultSummary == nil {
		t.Fatalf("expected summary for completed recording")
	}
	if status.ResultSummary.Severity != domain.SeverityModerate || status.ResultSummary.EventCount != 1 {
		t.Fatalf("unexpected summary: %+v", status.ResultSummary)
	}
}

func TestGetStatusFailedExposesErrorMessage(t *testing.T) {
	rec := pendingRecording()
	rec.Status = domain.StatusFailed
	rec.ErrorMessage = "analyze audio: timeout"
	uc := NewStatusUseCase(&recordingRepoFake{rec: rec}, &resultRepoFake{})

	status, err := uc.GetStatus(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.ErrorMessage != "analyze audio: timeout" {
		t.Fatalf("ErrorMessage = %q", status.ErrorMessage)
	}
}

func TestGetResultRequiresCompletion(t *testing.T) {
	uc := NewStatusUseCase(&recordingRepoFake{rec: pendingRecording()}, &resultRepoFake{})
	_, err := uc.GetResult(context.Background(), "rec-1")
	if err == nil {
		t.Fatalf("expected error for pending recording")
	}
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict kind, got %v", err)
	}
}

func TestRemoveDeletesRowAndAudio(t *testing.T) {
	repo := &recordingRepoFake{rec: pendingRecording()}
	storage := &storageFake{}
	uc := NewRemoveRecordingUseCase(repo, storage)

	if err := uc.Remove(context.Background(), "rec-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "rec-1" {
		t.Fatalf("expected row deleted, got %v", repo.deleted)
	}
	if len(storage.removed) != 1 || storage.removed[0] != "rec-1_audio.wav" {
		t.Fatalf("expected stored audio removed, got %v", storage.removed)
	}
}
