package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCreatesSnapshotWithManifest(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	db := writeSource(t, src, "docgate.db", "meta")
	vec := writeSource(t, src, "docgate.vector.db", "vectors")

	m := NewManager(dst, 0, db, vec)
	snap, err := m.Run()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"docgate.db", "docgate.vector.db"}, snap.Manifest.Files)

	data, err := os.ReadFile(filepath.Join(snap.Dir, "docgate.vector.db"))
	require.NoError(t, err)
	assert.Equal(t, "vectors", string(data))

	raw, err := os.ReadFile(filepath.Join(snap.Dir, "manifest.json"))
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Len(t, manifest.Files, 2)
	assert.False(t, manifest.CreatedAt.IsZero())
}

func TestRunSkipsMissingSources(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	db := writeSource(t, src, "docgate.db", "meta")

	m := NewManager(dst, 0, db, filepath.Join(src, "absent.db"))
	snap, err := m.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"docgate.db"}, snap.Manifest.Files)
}

func TestRunFailsWhenNothingToBackUp(t *testing.T) {
	dst := t.TempDir()
	m := NewManager(dst, 0, filepath.Join(dst, "absent.db"))
	_, err := m.Run()
	assert.Error(t, err)
}

func TestPruneKeepsNewest(t *testing.T) {
	dst := t.TempDir()
	for _, name := range []string{"20240101-000000", "20240102-000000", "20240103-000000"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dst, name), 0o755))
	}

	m := NewManager(dst, 2)
	require.NoError(t, m.prune())

	names, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102-000000", "20240103-000000"}, names)
}
