package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/casefile/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	total       INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cases (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	seq            INTEGER NOT NULL,
	source         TEXT NOT NULL,
	success        INTEGER NOT NULL,
	error          TEXT,
	district       TEXT,
	city           TEXT,
	year           INTEGER,
	month          INTEGER,
	occurrence     TEXT,
	invalid_fields TEXT,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS cases_source ON cases(source);
`

// Run identifies one extraction run in the SQLite mirror
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun starts a run record with a fresh id
func NewRun(started time.Time) Run {
	return Run{ID: uuid.NewString(), StartedAt: started}
}

// WriteSQLite appends the run and its records to the database at path in a
// single transaction. Earlier runs are kept.
func WriteSQLite(ctx context.Context, path string, run Run, records []model.CaseRecord, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("store.sqlite.close_failed", "error", err)
		}
	}()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	succeeded := 0
	for _, r := range records {
		if r.Success {
			succeeded++
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, total, succeeded, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		len(records), succeeded, len(records)-succeeded,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cases
		(run_id, seq, source, success, error, district, city, year, month, occurrence, invalid_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx,
			run.ID, i, r.Source, r.Success, nullString(r.Error),
			textValue(r.District), textValue(r.City),
			intValue(r.Year), intValue(r.Month),
			textValue(r.Occurrence),
			nullJoin(r.InvalidFields),
		); err != nil {
			return fmt.Errorf("insert case %s: %w", r.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logger.Info("store.sqlite.written", "path", path, "run_id", run.ID, "cases", len(records))
	return nil
}

func textValue(f model.Field[string]) sql.NullString {
	v, ok := f.Get()
	return sql.NullString{String: v, Valid: ok}
}

func intValue(f model.Field[int]) sql.NullInt64 {
	v, ok := f.Get()
	return sql.NullInt64{Int64: int64(v), Valid: ok}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullJoin(names []string) sql.NullString {
	if len(names) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(names, ","), Valid: true}
}
