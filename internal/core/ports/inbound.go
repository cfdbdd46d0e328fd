package ports

import (
	"context"
	"io"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
)

// RecordingSubmitter is the inbound contract for audio upload orchestration.
type RecordingSubmitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*domain.Recording, error)
}

// SubmitRequest carries the upload collaborator's input.
type SubmitRequest struct {
	PatientID  string
	Filename   string
	Language   string
	Transcript string
	Size       int64
	Body       io.Reader
}

// RecordingProcessor is the inbound contract for asynchronous analysis jobs.
type RecordingProcessor interface {
	Process(ctx context.Context, job domain.AnalysisJob) error
}

// RecordingStatusReader is the inbound read model for the polling collaborator.
type RecordingStatusReader interface {
	GetStatus(ctx context.Context, recordingID string) (*RecordingStatus, error)
	GetResult(ctx context.Context, recordingID string) (*domain.AnalysisResult, error)
}

// RecordingRemover deletes a recording, its stored audio and, via the
// database cascade, its analysis result.
type RecordingRemover interface {
	Remove(ctx context.Context, recordingID string) error
}

// RecordingStatus is the only failure/progress signal exposed outward.
type RecordingStatus struct {
	RecordingID   string                 `json:"recording_id"`
	Status        domain.RecordingStatus `json:"status"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	ResultSummary *domain.ResultSummary  `json:"result_summary,omitempty"`
}
