package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEphemeralCreateAndCleanup(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Create())

	path := m.GetPath()
	require.NotEmpty(t, path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, m.Cleanup())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileCreatesParents(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Create())
	defer m.Cleanup()

	require.NoError(t, m.WriteFile("assets/js/app.12345678.js", []byte("x")))

	data, err := os.ReadFile(filepath.Join(m.GetPath(), "assets/js/app.12345678.js"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestWriteFileBeforeCreate(t *testing.T) {
	m := NewManager(t.TempDir())
	assert.Error(t, m.WriteFile("a.txt", []byte("x")))
}

func TestPublishReplacesOutput(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(base, "dist")

	// Pre-existing stale artifact must be gone after publish.
	require.NoError(t, os.MkdirAll(out, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(out, "old.deadbeef.js"), []byte("old"), 0o640))

	m := NewManager(base)
	require.NoError(t, m.Create())
	require.NoError(t, m.WriteFile("app.11111111.js", []byte("new")))
	staged := m.GetPath()

	require.NoError(t, m.Publish(out))

	_, err := os.Stat(filepath.Join(out, "old.deadbeef.js"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(out, "app.11111111.js"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err))
}

func TestPersistentCleanupKeepsDirectory(t *testing.T) {
	base := t.TempDir()
	m := NewPersistentManager(base, "staging")
	require.NoError(t, m.Create())
	require.NoError(t, m.WriteFile("a.txt", []byte("x")))

	require.NoError(t, m.Cleanup())
	_, err := os.Stat(filepath.Join(base, "staging", "a.txt"))
	assert.NoError(t, err)
}

func TestPersistentCreateClearsStale(t *testing.T) {
	base := t.TempDir()
	m := NewPersistentManager(base, "staging")
	require.NoError(t, m.Create())
	require.NoError(t, m.WriteFile("stale.txt", []byte("x")))

	m2 := NewPersistentManager(base, "staging")
	require.NoError(t, m2.Create())
	_, err := os.Stat(filepath.Join(base, "staging", "stale.txt"))
	assert.True(t, os.IsNotExist(err))
}
