package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateDB(t *testing.T) {
	db, err := OpenAndMigrateDB(`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT);`, ":memory:", "")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO kv (k, v) VALUES ('a', 'b')`)
	require.NoError(t, err)
	var v string
	require.NoError(t, db.QueryRow(`SELECT v FROM kv WHERE k = 'a'`).Scan(&v))
	require.Equal(t, "b", v)
}

func TestOpenDBUnopenablePath(t *testing.T) {
	// a directory cannot be opened as a database file
	_, err := OpenDB(t.TempDir(), "")
	require.ErrorContains(t, err, "open db")
}

func TestIsRemote(t *testing.T) {
	require.True(t, isRemote("libsql://braacket.turso.io"))
	require.True(t, isRemote("https://braacket.turso.io"))
	require.False(t, isRemote("pages.db"))
	require.False(t, isRemote(":memory:"))
}
