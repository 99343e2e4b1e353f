package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFoldMixedCaseKeys(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(embedMigrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpTo(db, "migrations", 1))

	// Rows as an older build wrote them, including a pair whose spellings
	// collide once lowercased. The later insert must survive the fold.
	for _, row := range []struct{ key, doc string }{
		{"Ayla-area-52", `{"name":"Ayla"}`},
		{"ayla-area-52", `{"name":"Ayla","level":81}`},
		{"Brin-area-52", `{"name":"Brin"}`},
	} {
		_, err := db.Exec(`
			INSERT INTO characters (key, name, realm, document, last_fetch_at)
			VALUES (?, 'Ayla', 'area-52', ?, CURRENT_TIMESTAMP)`, row.key, row.doc)
		require.NoError(t, err)
	}

	require.NoError(t, goose.Up(db, "migrations"))

	rows, err := db.Query(`SELECT key FROM characters ORDER BY key`)
	require.NoError(t, err)
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		require.NoError(t, rows.Scan(&key))
		keys = append(keys, key)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ayla-area-52", "brin-area-52"}, keys)

	var doc string
	require.NoError(t, db.QueryRow(`SELECT document FROM characters WHERE key = 'ayla-area-52'`).Scan(&doc))
	assert.Contains(t, doc, `"level":81`)
}
