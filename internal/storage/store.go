package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"reqprops/internal/report"
)

// ErrNotFound is returned when no cached result exists for a path.
var ErrNotFound = errors.New("not found")

// Store combines the result cache and run history.
type Store interface {
	ResultCache
	RunHistory
	Close() error
}

// FileResult is the cached outcome of checking one file. A result is valid
// only while both hashes still match.
type FileResult struct {
	Path        string
	ContentHash string
	ContextHash string
	Diagnostics []report.Diagnostic
	UpdatedAt   time.Time
}

// Run is one recorded check invocation.
type Run struct {
	ID          uuid.UUID
	StartedAt   time.Time
	Root        string
	Files       int
	Diagnostics int
	Duration    time.Duration
}

// ResultCache persists per-file diagnostics keyed by content.
type ResultCache interface {
	// GetFileResult returns ErrNotFound when nothing is cached for path.
	GetFileResult(ctx context.Context, path string) (*FileResult, error)

	// SaveFileResults upserts results in one transaction.
	SaveFileResults(ctx context.Context, results []FileResult) error
}

// RunHistory records check runs.
type RunHistory interface {
	SaveRun(ctx context.Context, run Run) error

	// RecentRuns returns at most limit runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}
