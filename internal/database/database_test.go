package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, err := InitDB(":memory:", "", "")
	require.NoError(t, err, "InitDB should not return an error")
	defer db.Close()

	var kvTableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&kvTableName)
	require.NoError(t, err, "Querying for kv table should not produce an error")
	assert.Equal(t, "kv", kvTableName, "The 'kv' table should be created")
}

func TestInitDB_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scorekeeper.db")

	db, err := InitDB(path, "", "")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES ('current_match', '{}', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDB(path, "", "")
	require.NoError(t, err, "re-running migrations should be a no-op")
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count))
	assert.Equal(t, 1, count)
}
