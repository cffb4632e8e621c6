package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesMergeOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jsdeminify.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cost_ceiling_cents: 500\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.CostCeilingCents)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
	assert.Contains(t, cfg.Models, "gpt-4o-mini")
}

func TestLoad_CustomModelTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jsdeminify.yaml")
	body := `
default_model: sonnet
models:
  sonnet:
    provider: anthropic
    model: claude-sonnet-4-20250514
    api_key_env: ANTHROPIC_API_KEY
concurrency: 4
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sonnet", cfg.DefaultModel)
	assert.Equal(t, 4, cfg.Concurrency)
	require.Contains(t, cfg.Models, "sonnet")
	assert.Equal(t, "anthropic", cfg.Models["sonnet"].Provider)
}

func TestResolve_MissingAPIKeyEnvErrors(t *testing.T) {
	cfg := Default()
	os.Unsetenv(cfg.Models["gpt-4o-mini"].APIKeyEnv)

	_, _, err := cfg.Resolve("")
	require.Error(t, err)
}

func TestResolve_ReadsAPIKeyFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("OPENAI_API_KEY", "sk-test-key")

	mc, apiKey, err := cfg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "openai", mc.Provider)
	assert.Equal(t, "sk-test-key", apiKey)
}

func TestResolve_UnknownModelErrors(t *testing.T) {
	cfg := Default()
	_, _, err := cfg.Resolve("does-not-exist")
	require.Error(t, err)
}
