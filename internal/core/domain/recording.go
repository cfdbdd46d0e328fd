package domain

import "time"

type RecordingStatus string

const (
	StatusPending    RecordingStatus = "pending"
	StatusProcessing RecordingStatus = "processing"
	StatusCompleted  RecordingStatus = "completed"
	StatusFailed     RecordingStatus = "failed"
)

// Recording is one submitted audio artifact moving through the analysis
// lifecycle. Only the worker mutates it after creation.
type Recording struct {
	ID              string          `json:"id"`
	PatientID       string          `json:"patient_id"`
	Filename        string          `json:"filename"`
	StoragePath     string          `json:"storage_path"`
	Language        string          `json:"language"`
	Status          RecordingStatus `json:"status"`
	DurationSeconds float64         `json:"duration_seconds,omitempty"`
	FileSizeBytes   int64           `json:"file_size_bytes,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

// CanTransition encodes the recording state machine: forward-only, except
// that a failed recording may re-enter processing for a scheduled retry.
// Nothing leaves completed.
func CanTransition(from, to RecordingStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusFailed:
		return to == StatusProcessing
	default:
		return false
	}
}

// AnalysisJob is the unit of work dispatched to the worker pool. Attempt is
// 1-based and counts full pipeline runs, not HTTP-level retries.
type AnalysisJob struct {
	RecordingID string    `json:"recording_id"`
	Language    string    `json:"language"`
	Transcript  string    `json:"transcript,omitempty"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
