package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reqprops/internal/report"
	"reqprops/internal/syntax"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_FileResults_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetFileResult(ctx, "src/lib.rs")
	assert.ErrorIs(t, err, ErrNotFound)

	first := FileResult{
		Path:        "src/lib.rs",
		ContentHash: "c1",
		ContextHash: "k1",
		Diagnostics: []report.Diagnostic{{
			Location: syntax.Location{File: "src/lib.rs", Line: 3, Column: 9},
			Code:     report.CodeMissing,
			Message:  "boom",
		}},
	}
	clean := FileResult{Path: "src/clean.rs", ContentHash: "c2", ContextHash: "k1"}
	require.NoError(t, store.SaveFileResults(ctx, []FileResult{first, clean}))

	got, err := store.GetFileResult(ctx, "src/lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ContentHash)
	assert.Equal(t, first.Diagnostics, got.Diagnostics)
	assert.False(t, got.UpdatedAt.IsZero())

	got, err = store.GetFileResult(ctx, "src/clean.rs")
	require.NoError(t, err)
	assert.Empty(t, got.Diagnostics)

	// Re-saving replaces the previous snapshot for the path.
	first.ContentHash = "c3"
	first.Diagnostics = nil
	require.NoError(t, store.SaveFileResults(ctx, []FileResult{first}))

	got, err = store.GetFileResult(ctx, "src/lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "c3", got.ContentHash)
	assert.Empty(t, got.Diagnostics)
}

func TestSQLiteStore_RecentRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	older := Run{ID: uuid.New(), StartedAt: base, Root: "/repo", Files: 3, Diagnostics: 1, Duration: 1500 * time.Millisecond}
	newer := Run{StartedAt: base.Add(time.Minute), Root: "/repo", Files: 4}
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 4, runs[0].Files)
	assert.NotEqual(t, uuid.Nil, runs[0].ID, "an ID is assigned when missing")
	assert.Equal(t, older.ID, runs[1].ID)
	assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)
	assert.True(t, base.Equal(runs[1].StartedAt))

	runs, err = store.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
