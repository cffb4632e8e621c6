// Package config loads the on-disk configuration for the deminify CLI: the
// model table, provider credential env-var names, and the run-wide limits
// that get handed to pkg/deminify.Options.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelConfig names one oracle model and where to find its credentials.
type ModelConfig struct {
	// Provider is the oracle backend: "openai" or "anthropic" (the CLI
	// treats an empty value as "openai").
	Provider string `yaml:"provider"`
	// Model is the provider-specific model identifier, e.g. "gpt-4o-mini".
	Model string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the provider's API
	// key. The key itself is never stored in the config file.
	APIKeyEnv string `yaml:"api_key_env"`
	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Config is the decoded shape of a deminify config file (default
// ".jsdeminify.yaml"). Every field has a workable zero value, so an absent
// file is not an error — callers fall back to Default().
type Config struct {
	// Models is the named model table; Resolve selects one by key.
	Models map[string]ModelConfig `yaml:"models"`
	// DefaultModel is the key into Models used when a run doesn't pick one
	// explicitly.
	DefaultModel string `yaml:"default_model"`

	// Concurrency bounds in-round parallel batch dispatch.
	Concurrency int `yaml:"concurrency"`
	// RateLimitPerMinute caps interactive oracle requests per minute, per
	// provider. 0 means unlimited.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	// TokenBudget caps total tokens spent across a run. 0 means unlimited.
	TokenBudget int `yaml:"token_budget"`
	// CostCeilingCents caps total estimated spend across a run, in US
	// cents. 0 means unlimited.
	CostCeilingCents float64 `yaml:"cost_ceiling_cents"`

	// CacheDir is where the on-disk rename cache and batch state live.
	CacheDir string `yaml:"cache_dir"`
}

// Default returns a Config with one built-in model table entry and no
// limits, so a bare CLI invocation without a config file still works
// against OpenAI once OPENAI_API_KEY is set.
func Default() Config {
	return Config{
		Models: map[string]ModelConfig{
			"gpt-4o-mini": {Provider: "openai", Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
		},
		DefaultModel: "gpt-4o-mini",
		CacheDir:     ".jsdeminify-cache",
	}
}

// Load reads and decodes the config file at path. A missing file is not an
// error: it returns Default() unchanged, since every field is optional.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	// Decode onto the defaults so a config file that only overrides one
	// field (e.g. just cost_ceiling_cents) doesn't blank out the rest.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Models == nil {
		cfg.Models = Default().Models
	}
	return cfg, nil
}

// Resolve looks up modelKey in cfg.Models, falling back to DefaultModel
// when modelKey is empty, and reads the provider's API key from its
// configured environment variable.
func (c Config) Resolve(modelKey string) (ModelConfig, string, error) {
	if modelKey == "" {
		modelKey = c.DefaultModel
	}
	mc, ok := c.Models[modelKey]
	if !ok {
		return ModelConfig{}, "", fmt.Errorf("config: no model named %q", modelKey)
	}
	apiKey := os.Getenv(mc.APIKeyEnv)
	if apiKey == "" {
		return ModelConfig{}, "", fmt.Errorf("config: environment variable %s is not set for model %q", mc.APIKeyEnv, modelKey)
	}
	return mc, apiKey, nil
}
