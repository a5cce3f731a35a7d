package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadHydratesSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "marketdata.yaml", `
default: static
providers:
  static:
    type: static
`)
	writeFile(t, dir, "sentiment.yaml", `
providers:
  stocktwits:
    type: stocktwits
`)
	main := writeFile(t, dir, "config.yaml", `
Env: test
Engine:
  FetchTimeout: 90s
  Workers: 4
Marketdata:
  File: marketdata.yaml
Sentiment:
  File: sentiment.yaml
`)

	cfg, err := Load(main)
	require.NoError(t, err)

	assert.True(t, cfg.IsTestEnv())
	assert.Equal(t, 90*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, dir, cfg.BaseDir())

	require.NotNil(t, cfg.Marketdata.Value)
	assert.Equal(t, "static", cfg.Marketdata.Value.Default)
	require.NotNil(t, cfg.Sentiment.Value)
	assert.Contains(t, cfg.Sentiment.Value.Providers, "stocktwits")
}

func TestLoadDefaultsWithoutSections(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "config.yaml", "Env: dev\n")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.False(t, cfg.IsTestEnv())
	assert.Equal(t, 5*time.Minute, cfg.FetchTimeout())
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Nil(t, cfg.Marketdata.Value)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "config.yaml", "Env: staging\n")

	_, err := Load(main)
	assert.Error(t, err)
}

func TestLoadRejectsBadFetchTimeout(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "config.yaml", `
Engine:
  FetchTimeout: soon
`)
	_, err := Load(main)
	assert.Error(t, err)
}
