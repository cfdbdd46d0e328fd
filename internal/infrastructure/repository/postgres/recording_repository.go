package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
)

type RecordingRepository struct {
	db *sql.DB
}

func NewRecordingRepository(db *sql.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

func (r *RecordingRepository) Create(ctx context.Context, rec *domain.Recording) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO recordings (
	id, patient_id, filename, storage_path, language, status, duration_seconds, file_size_bytes, error_message, created_at, processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		rec.ID, rec.PatientID, rec.Filename, rec.StoragePath, rec.Language, string(rec.Status),
		nullFloat(rec.DurationSeconds), rec.FileSizeBytes, rec.ErrorMessage, rec.CreatedAt, rec.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

func (r *RecordingRepository) GetByID(ctx context.Context, id string) (*domain.Recording, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, patient_id, filename, storage_path, language, status, duration_seconds, file_size_bytes, error_message, created_at, processed_at
FROM recordings
WHERE id = $1
`, id)
	return scanRecording(row)
}

// UpdateStatus applies the recording state machine inside one transaction so
// a concurrent status poll never observes a half-applied transition.
func (r *RecordingRepository) UpdateStatus(ctx context.Context, id string, status domain.RecordingStatus, errMessage string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM recordings WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrRecordingNotFound, "update status", fmt.Errorf("id %s", id))
		}
		return fmt.Errorf("lock recording row: %w", err)
	}

	if !domain.CanTransition(domain.RecordingStatus(current), status) {
		return domain.WrapError(domain.ErrConflict, "update status",
			fmt.Errorf("illegal transition %s → %s", current, status))
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE recordings SET status = $2, error_message = $3 WHERE id = $1
`, id, string(status), errMessage); err != nil {
		return fmt.Errorf("update recording status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status tx: %w", err)
	}
	return nil
}

func (r *RecordingRepository) SetDuration(ctx context.Context, id string, seconds float64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE recordings SET duration_seconds = $2 WHERE id = $1
`, id, seconds)
	if err != nil {
		return fmt.Errorf("set recording duration: %w", err)
	}
	return nil
}

func (r *RecordingRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE recordings SET processed_at = $2 WHERE id = $1
`, id, at)
	if err != nil {
		return fmt.Errorf("mark recording processed: %w", err)
	}
	return nil
}

func (r *RecordingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrRecordingNotFound, "delete recording", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (*domain.Recording, error) {
	var rec domain.Recording
	var status string
	var duration sql.NullFloat64
	var processedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.Filename, &rec.StoragePath, &rec.Language, &status,
		&duration, &rec.FileSizeBytes, &rec.ErrorMessage, &rec.CreatedAt, &processedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordingNotFound
		}
		return nil, fmt.Errorf("scan recording: %w", err)
	}

	rec.Status = domain.RecordingStatus(status)
	if duration.Valid {
		rec.DurationSeconds = duration.Float64
	}
	if processedAt.Valid {
		t := processedAt.Time
		rec.ProcessedAt = &t
	}
	return &rec, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if v == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
