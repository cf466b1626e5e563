package migration

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add gl accounts", "add_gl_accounts"},
		{"Add-Period-Index", "add_period_index"},
		{"ADD_HISTORY_TABLE", "add_history_table"},
		{"add__entries__fk", "add_entries_fk"},
		{"Close Period 2024", "close_period_2024"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"hesap_planı", "hesap_plan"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

	mf, err := createMigrationAt(dir, "add trial balance view", "Materialize trial balance per period", now)
	require.NoError(t, err)

	assert.Equal(t, "20240301093000", mf.Version)
	assert.Equal(t, uint64(20240301093000), mf.VersionNumber())
	assert.Equal(t, filepath.Join(dir, "20240301093000_add_trial_balance_view.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20240301093000_add_trial_balance_view.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_trial_balance_view")
	assert.Contains(t, string(up), "Materialize trial balance per period")
	assert.Contains(t, string(up), "2024-03-01T09:30:00Z")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback for Materialize trial balance per period")

	t.Run("refuses to overwrite an existing pair", func(t *testing.T) {
		_, err := createMigrationAt(dir, "add trial balance view", "again", now)
		assert.Error(t, err)
	})

	t.Run("rejects names without usable characters", func(t *testing.T) {
		_, err := createMigrationAt(dir, "!!!", "", now)
		assert.Error(t, err)
	})

	t.Run("uses the wall clock", func(t *testing.T) {
		mf, err := CreateMigration(t.TempDir(), "seed chart", "")
		require.NoError(t, err)
		assert.Len(t, mf.Version, 14)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty", func(t *testing.T) {
		files, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("orders pairs by version", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"20240201000000_second.up.sql",
			"20240201000000_second.down.sql",
			"20240101000000_first.up.sql",
			"20240101000000_first.down.sql",
			"20240301000000_up_only.up.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.up.sql"), 0o755))

		files, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, files, 3)
		assert.Equal(t, "first", files[0].Name)
		assert.Equal(t, "second", files[1].Name)
		assert.Equal(t, "up_only", files[2].Name)
		assert.NotEmpty(t, files[0].DownPath)
		assert.Empty(t, files[2].DownPath)
	})

	t.Run("ships the ledger migrations", func(t *testing.T) {
		_, file, _, ok := runtime.Caller(0)
		require.True(t, ok)
		dir := filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")

		files, err := ListMigrations(dir)
		require.NoError(t, err)
		require.NotEmpty(t, files)
		assert.Equal(t, "create_ledger_tables", files[0].Name)
		for _, f := range files {
			assert.NotEmpty(t, f.DownPath, "%s has no rollback", f.Name)
		}
	})
}

func TestStatusOf(t *testing.T) {
	files := []MigrationFile{
		{Version: "20240101000000", Name: "create_ledger_tables"},
		{Version: "20240101000100", Name: "posted_transactions_immutable"},
	}

	t.Run("nothing applied", func(t *testing.T) {
		status := statusOf(files, 0, false)
		require.Len(t, status, 2)
		assert.False(t, status[0].Applied)
		assert.False(t, status[1].Applied)
	})

	t.Run("first applied and dirty", func(t *testing.T) {
		status := statusOf(files, 20240101000000, true)
		assert.True(t, status[0].Applied)
		assert.True(t, status[0].Dirty)
		assert.False(t, status[1].Applied)
		assert.False(t, status[1].Dirty)
	})
}
