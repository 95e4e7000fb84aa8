package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.InDelta(t, 19.4326077, cfg.Map.CenterLat, 1e-9)
	assert.InDelta(t, -99.133208, cfg.Map.CenterLng, 1e-9)
	assert.Equal(t, 12, cfg.Map.Zoom)
	assert.Equal(t, "bbc0c4", cfg.Map.Colors.Road)
	assert.Equal(t, "f5f5f5", cfg.Map.Colors.POI)
	assert.Equal(t, 1020, cfg.Geocode.BackoffMs)
	assert.Equal(t, "1.02s", cfg.Geocode.Backoff().String())
	assert.Equal(t, 0, cfg.Geocode.MaxRetries)
	assert.True(t, cfg.Geocode.Cache)
	assert.Equal(t, "stores", cfg.Directory.StorageKey)
	assert.Equal(t, "./images/store_on.png", cfg.Directory.ActiveIcon)
	assert.Equal(t, 30, cfg.Directory.SnapshotSecs)
	assert.Equal(t, "favorite_stores", cfg.Favorites.StorageKey)
	assert.Equal(t, "badger", cfg.Storage.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdir(t)

	yaml := `
map:
  zoom: 14
  colors:
    water: 8cb5fd
geocode:
  api_key: abc
  max_retries: 3
storage:
  driver: sqlite
  path: ./data/stores.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storemap.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Map.Zoom)
	assert.Equal(t, "8cb5fd", cfg.Map.Colors.Water)
	assert.Equal(t, "abc", cfg.Geocode.APIKey)
	assert.Equal(t, 3, cfg.Geocode.MaxRetries)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	// Defaults still apply for unset values
	assert.Equal(t, "ffffff", cfg.Map.Colors.Landscape)
	assert.Equal(t, 1020, cfg.Geocode.BackoffMs)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storemap.yaml"), []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("STOREMAP_SERVER_PORT", "7070")
	t.Setenv("STOREMAP_GEOCODE_API_KEY", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Geocode.APIKey)
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	require.NoError(t, InitLogger(LogConfig{}))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
