package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "hashing", cfg.Vector.EmbedProvider)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.NotEmpty(t, cfg.Vector.Path)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("DOCGATE_TEST_KEY", "sk-secret")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 9090,
		"ai": {
			"default_provider": "openai",
			"providers": [{"name": "openai", "api_key": "${DOCGATE_TEST_KEY}"}]
		}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	p, err := cfg.Provider()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", p.APIKey)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", `{"port": -1}`},
		{"overlap too large", `{"vector": {"chunk_size": 100, "chunk_overlap": 100}}`},
		{"unknown embedder", `{"vector": {"embed_provider": "quantum"}}`},
		{"missing provider entry", `{"ai": {"default_provider": "openai", "providers": []}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_DerivedPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "/var/lib/docgate"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/docgate/docgate.db", cfg.Database.Path)
	assert.Equal(t, "/var/lib/docgate/docgate.vector.db", cfg.Vector.Path)
	assert.Equal(t, "/var/lib/docgate/backups", cfg.Backup.Dir)
}
