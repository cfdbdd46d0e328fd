package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the recordings and analysis_results tables. The FK
// cascade makes result ownership structural: deleting a recording removes
// its result.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026053101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS recordings (
	id TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	language TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_seconds DOUBLE PRECISION,
	file_size_bytes BIGINT NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_recordings_status ON recordings(status);
CREATE INDEX IF NOT EXISTS idx_recordings_patient_created ON recordings(patient_id, created_at DESC);

CREATE TABLE IF NOT EXISTS analysis_results (
	recording_id TEXT PRIMARY KEY REFERENCES recordings(id) ON DELETE CASCADE,
	actual_transcript TEXT NOT NULL,
	target_transcript TEXT NOT NULL,
	mismatched_chars JSONB NOT NULL DEFAULT '[]'::jsonb,
	mismatch_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	ctc_loss_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	stutter_timestamps JSONB NOT NULL DEFAULT '[]'::jsonb,
	total_stutter_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
	stutter_frequency DOUBLE PRECISION NOT NULL DEFAULT 0,
	severity TEXT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	analysis_duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	model_version TEXT NOT NULL,
	language TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_results_severity ON analysis_results(severity);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
