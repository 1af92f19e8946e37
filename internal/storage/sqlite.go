package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"reqprops/internal/report"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS file_results (
			path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			context_hash TEXT NOT NULL,
			diagnostics JSON,
			updated_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER,
			root TEXT,
			files INTEGER,
			diagnostics INTEGER,
			duration_ms INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- ResultCache Implementation ---

func (s *SQLiteStore) GetFileResult(ctx context.Context, path string) (*FileResult, error) {
	row := s.db.QueryRowContext(ctx, "SELECT path, content_hash, context_hash, diagnostics, updated_at FROM file_results WHERE path = ?", path)

	var r FileResult
	var diagnostics []byte
	var updatedAt int64
	if err := row.Scan(&r.Path, &r.ContentHash, &r.ContextHash, &diagnostics, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(diagnostics) > 0 {
		if err := json.Unmarshal(diagnostics, &r.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics for %s: %w", path, err)
		}
	}
	r.UpdatedAt = time.UnixMilli(updatedAt)
	return &r, nil
}

func (s *SQLiteStore) SaveFileResults(ctx context.Context, results []FileResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_results (path, content_hash, context_hash, diagnostics, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash=excluded.content_hash,
			context_hash=excluded.context_hash,
			diagnostics=excluded.diagnostics,
			updated_at=excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		diagnostics := r.Diagnostics
		if diagnostics == nil {
			diagnostics = []report.Diagnostic{}
		}
		encoded, err := json.Marshal(diagnostics)
		if err != nil {
			return err
		}
		updatedAt := r.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.Path, r.ContentHash, r.ContextHash, encoded, updatedAt.UnixMilli()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// --- RunHistory Implementation ---

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, root, files, diagnostics, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at=excluded.started_at,
			root=excluded.root,
			files=excluded.files,
			diagnostics=excluded.diagnostics,
			duration_ms=excluded.duration_ms
	`, run.ID.String(), run.StartedAt.UnixMilli(), run.Root, run.Files, run.Diagnostics, run.Duration.Milliseconds())
	return err
}

func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, started_at, root, files, diagnostics, duration_ms FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			id         string
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&id, &startedAt, &r.Root, &r.Files, &r.Diagnostics, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", id, err)
		}
		r.StartedAt = time.UnixMilli(startedAt)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
