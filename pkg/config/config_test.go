package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"en", "fr"}, cfg.Languages.Precedence)
	assert.Equal(t, "file", cfg.Catalog.Source)
	assert.True(t, cfg.Checkpoint.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 8, cfg.Search.Workers)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9000
catalog:
  source: postgres
languages:
  precedence: [fr, en]
search:
  workers: 2
  queryTimeout: 3s
redis:
  enabled: true
  cacheTTL: 1m
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Catalog.Source)
	assert.Equal(t, []string{"fr", "en"}, cfg.Languages.Precedence)
	assert.Equal(t, 2, cfg.Search.Workers)
	assert.Equal(t, 3*time.Second, cfg.Search.QueryTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	// Untouched sections keep their defaults.
	assert.Equal(t, "data/books", cfg.Catalog.TextDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BS_SERVER_PORT", "7070")
	t.Setenv("BS_LANGUAGES", "fr")
	t.Setenv("BS_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"fr"}, cfg.Languages.Precedence)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("bad catalog source", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Catalog.Source = "gutendex"
		assert.Error(t, cfg.Validate())
	})

	t.Run("no languages", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Languages.Precedence = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("disk checkpoint without dir", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Checkpoint.Dir = ""
		assert.Error(t, cfg.Validate())

		cfg.Checkpoint.InMemory = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("negative rate limit", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Server.RateLimit = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad_DevelopmentConfig(t *testing.T) {
	cfg, err := Load("../../configs/development.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 600, cfg.Server.RateLimit)
	assert.Equal(t, []string{"en", "fr"}, cfg.Languages.Precedence)
}
