package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8765", cfg.Server.Address())
	assert.Equal(t, "tensorview.db", cfg.Index.Path)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: -4
server:
  port: 9000
index:
  path: /tmp/custom.db
`), 0o644))

	cfg := Default()
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, slog.LevelDebug, cfg.App.LogLevel)
	assert.Equal(t, ":9000", cfg.Server.Address())
	assert.Equal(t, "/tmp/custom.db", cfg.Index.Path)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TV_TEST_DB", "/data/env.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  path: ${TV_TEST_DB}\n"), 0o644))

	cfg := Default()
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, "/data/env.db", cfg.Index.Path)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 70000\n"), 0o644))

	cfg := Default()
	err := Load(path, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Default()
	assert.Error(t, Load(filepath.Join(t.TempDir(), "absent.yaml"), cfg))
}
