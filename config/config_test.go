package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", settings.Cache.Backend)
	assert.Equal(t, 8, settings.Scheduler.MaxConcurrent)
	assert.Equal(t, 14, settings.Scheduler.MaxIterations)
	assert.Equal(t, "none", settings.Telemetry.Exporter)
	assert.Equal(t, "experiments.db", settings.Storage.SQLitePath)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lab.yaml")
	content := `provider:
  model: openai/gpt-5-mini
  api_key: test-key
cache:
  backend: redis
  redis_url: redis://cache:6379/1
scheduler:
  max_concurrent: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-5-mini", settings.Provider.Model)
	assert.Equal(t, "test-key", settings.Provider.APIKey)
	assert.Equal(t, "redis", settings.Cache.Backend)
	assert.Equal(t, "redis://cache:6379/1", settings.Cache.RedisURL)
	assert.Equal(t, 4, settings.Scheduler.MaxConcurrent)
	assert.Equal(t, 14, settings.Scheduler.MaxIterations, "unset fields keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LAB_PROVIDER_MODEL", "openai/gpt-5")
	t.Setenv("LAB_SCHEDULER_MAX_CONCURRENT", "2")

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-5", settings.Provider.Model)
	assert.Equal(t, 2, settings.Scheduler.MaxConcurrent)
}

func TestValidate(t *testing.T) {
	t.Run("bad cache backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lab.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  backend: memcached\n"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache backend")
	})

	t.Run("bad concurrency", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lab.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  max_concurrent: 0\n"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_concurrent")
	})
}
