package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndGet(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	rec := Record{
		ID:        "build-1",
		Status:    "succeeded",
		StartedAt: time.Unix(1700000000, 0),
		Duration:  1500 * time.Millisecond,
		Artifacts: 3,
		Assets:    map[string]string{"app": "dist/app.a1b2c3d4.js"},
		Signature: "sig-abc",
		SourceRev: "deadbeef",
	}
	require.NoError(t, store.Append(ctx, rec))

	got, err := store.Get(ctx, "build-1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", got.Status)
	assert.Equal(t, 3, got.Artifacts)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, "dist/app.a1b2c3d4.js", got.Assets["app"])
	assert.Equal(t, "deadbeef", got.SourceRev)
}

func TestGetMissing(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRecentOrdering(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.Append(ctx, Record{
			ID:        id,
			Status:    "succeeded",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
}

func TestFailedBuildRecord(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, Record{
		ID:        "build-err",
		Status:    "failed",
		StartedAt: time.Now(),
		Error:     "transform failed: src/app.js: jsmin",
	}))

	got, err := store.Get(ctx, "build-err")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Contains(t, got.Error, "jsmin")
}

func TestPersistenceAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), Record{
		ID: "persisted", Status: "succeeded", StartedAt: time.Now(),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", got.Status)
}
