package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"guild-tracker/internal/config"
	"guild-tracker/internal/database"
)

// newTestDB opens a throwaway on-disk SQLite database with migrations
// applied. A file under t.TempDir is used instead of :memory: because the
// connection pool would otherwise hand each connection its own empty
// database.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
