package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save inserts the one-per-recording result. Results are immutable; a second
// insert for the same recording fails on the primary key, which is the
// intended guard.
func (r *ResultRepository) Save(ctx context.Context, result *domain.AnalysisResult) error {
	mismatchedJSON, err := json.Marshal(result.MismatchedChars)
	if err != nil {
		return fmt.Errorf("marshal mismatched chars: %w", err)
	}
	eventsJSON, err := json.Marshal(result.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analysis_results (
	recording_id, actual_transcript, target_transcript, mismatched_chars, mismatch_percentage,
	ctc_loss_score, stutter_timestamps, total_stutter_duration, stutter_frequency,
	severity, confidence_score, analysis_duration_seconds, model_version, language, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		result.RecordingID, result.ActualTranscript, result.TargetTranscript, mismatchedJSON, result.MismatchPercentage,
		result.CTCLossScore, eventsJSON, result.TotalStutterDuration, result.StutterFrequency,
		string(result.Severity), result.ConfidenceScore, result.AnalysisDurationSeconds, result.ModelVersion,
		result.Language, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByRecordingID(ctx context.Context, recordingID string) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT recording_id, actual_transcript, target_transcript, mismatched_chars, mismatch_percentage,
	ctc_loss_score, stutter_timestamps, total_stutter_duration, stutter_frequency,
	severity, confidence_score, analysis_duration_seconds, model_version, language, created_at
FROM analysis_results
WHERE recording_id = $1
`, recordingID)

	var result domain.AnalysisResult
	var mismatchedRaw, eventsRaw []byte
	var severity string

	err := row.Scan(
		&result.RecordingID, &result.ActualTranscript, &result.TargetTranscript, &mismatchedRaw, &result.MismatchPercentage,
		&result.CTCLossScore, &eventsRaw, &result.TotalStutterDuration, &result.StutterFrequency,
		&severity, &result.ConfidenceScore, &result.AnalysisDurationSeconds, &result.ModelVersion,
		&result.Language, &result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordingNotFound, "fetch analysis result", fmt.Errorf("recording %s", recordingID))
		}
		return nil, fmt.Errorf("scan analysis result: %w", err)
	}

	if err := json.Unmarshal(mismatchedRaw, &result.MismatchedChars); err != nil {
		return nil, fmt.Errorf("unmarshal mismatched chars: %w", err)
	}
	if err := json.Unmarshal(eventsRaw, &result.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	result.Severity = domain.Severity(severity)
	return &result, nil
}
