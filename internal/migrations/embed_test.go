package migrations

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMigrate(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	version, err := Migrate(db)
	require.NoError(t, err)
	assert.Equal(t, Latest(), version)
	assert.Equal(t, 2, version)

	for _, table := range []string{"series", "series_episodes", "settings", "events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Running again is a no-op.
	version, err = Migrate(db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}
