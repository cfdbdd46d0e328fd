package ports

import (
	"context"
	"io"
	"time"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
)

// RecordingRepository persists and reads recording state. UpdateStatus must
// apply the domain state machine atomically against concurrent status polls.
type RecordingRepository interface {
	Create(ctx context.Context, rec *domain.Recording) error
	GetByID(ctx context.Context, id string) (*domain.Recording, error)
	UpdateStatus(ctx context.Context, id string, status domain.RecordingStatus, errMessage string) error
	SetDuration(ctx context.Context, id string, seconds float64) error
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// ResultRepository stores the one-per-recording analysis outcome.
type ResultRepository interface {
	Save(ctx context.Context, result *domain.AnalysisResult) error
	GetByRecordingID(ctx context.Context, recordingID string) (*domain.AnalysisResult, error)
}

// ObjectStorage stores submitted audio artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	Path(key string) string
}

// MessageQueue publishes/consumes analysis jobs.
type MessageQueue interface {
	PublishAnalysisJob(ctx context.Context, job domain.AnalysisJob) error
	SubscribeAnalysisJobs(ctx context.Context, handler func(context.Context, domain.AnalysisJob) error) error
}

// AudioNormalizer converts arbitrary input audio into the canonical waveform
// the analysis service expects. Failure degrades to the original path, so no
// error is surfaced; cleanup releases any temporary file and is always safe
// to call.
type AudioNormalizer interface {
	Normalize(ctx context.Context, sourcePath string) (path string, cleanup func())
}

// DurationProber measures source audio duration best-effort.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// AnalyzeRequest is the external analysis service input.
type AnalyzeRequest struct {
	AudioPath  string
	Language   string
	Transcript string
}

// AnalysisService is the external ML endpoint contract. Analyze returns the
// raw response mapping; canonicalization happens in the domain layer.
type AnalysisService interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (domain.RawAnalysis, error)
	ResolveLanguage(language string) string
	CheckHealth(ctx context.Context) domain.ServiceHealth
}
