package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	tr, err := OpenSQLiteTracker(filepath.Join(t.TempDir(), "state", "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestSQLiteTracker_MarkAndList(t *testing.T) {
	tr := openTestTracker(t)
	ctx := context.Background()

	ok, err := tr.IsIndexed(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.MarkIndexed(ctx, "v1"))
	require.NoError(t, tr.MarkIndexed(ctx, "v1"))
	require.NoError(t, tr.MarkIndexed(ctx, "v2"))

	ok, err = tr.IsIndexed(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, ok)

	videos, err := tr.ListIndexed(ctx)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "v1", videos[0].VideoID)
	assert.Equal(t, "v2", videos[1].VideoID)
	assert.False(t, videos[0].IndexedAt.After(videos[1].IndexedAt))
}

func TestSQLiteTracker_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	tr, err := OpenSQLiteTracker(path)
	require.NoError(t, err)
	require.NoError(t, tr.MarkIndexed(context.Background(), "keep"))
	require.NoError(t, tr.Close())

	tr, err = OpenSQLiteTracker(path)
	require.NoError(t, err)
	defer tr.Close()
	ok, err := tr.IsIndexed(context.Background(), "keep")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteTracker_Concurrent(t *testing.T) {
	tr := openTestTracker(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := "same"
			if i%2 == 0 {
				id = "even"
			}
			assert.NoError(t, tr.MarkIndexed(ctx, id))
		}()
	}
	wg.Wait()

	videos, err := tr.ListIndexed(ctx)
	require.NoError(t, err)
	assert.Len(t, videos, 2)
}
