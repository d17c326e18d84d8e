package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMaxParallelDownloads, cfg.MaxParallelDownloads)
	assert.True(t, filepath.IsAbs(cfg.DownloadsPath))
	assert.Equal(t, "Downloads", filepath.Base(cfg.DownloadsPath))
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	downloads := filepath.Join(dir, "dl")

	content := "downloads_path: " + downloads + "\nmax_parallel_downloads: 8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, downloads, cfg.DownloadsPath)
	assert.Equal(t, 8, cfg.MaxParallelDownloads)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("max_parallel_downloads: 8\n"), 0644))

	t.Setenv("LMM_MAX_PARALLEL_DOWNLOADS", "2")
	t.Setenv("LMM_NEXUS_API_KEY", "secret")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxParallelDownloads)
	assert.Equal(t, "secret", cfg.NexusAPIKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("max_parallel_downloads: 0\n"), 0644))

	_, err := config.Load(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSaveConfig_RoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DownloadsPath:        filepath.Join(dir, "downloads"),
		MaxParallelDownloads: 3,
		NexusAPIKey:          "never-written",
	}
	require.NoError(t, cfg.Save(dir))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "never-written")

	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.DownloadsPath, loaded.DownloadsPath)
	assert.Equal(t, 3, loaded.MaxParallelDownloads)
}
