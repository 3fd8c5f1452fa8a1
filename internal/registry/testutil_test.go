package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrwatch/internal/database"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func testSeries(ref string) *Series {
	return &Series{
		Ref:         ref,
		SavePath:    "/media/anime/show",
		DisplayName: "Show",
		Season:      "S01",
	}
}

// ptr is a helper to create pointer to value
func ptr[T any](v T) *T {
	return &v
}
