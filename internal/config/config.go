// Package config loads the core's adapter-level construction settings from
// a YAML file plus environment variable overrides. None of this reaches the
// core packages directly: main wires the loaded values into
// agent.RunnerConfig and the provider constructors.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig is one entry of the providers map: a named ModelPortal
// construction recipe.
type ProviderConfig struct {
	Kind         string `yaml:"kind"` // "openai", "deepseek", "zhipu"
	APIKeyEnv    string `yaml:"api_key_env"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// Config is the root of agentcore.yaml.
type Config struct {
	DefaultProvider        string                    `yaml:"default_provider"`
	FastProvider            string                    `yaml:"fast_provider"`
	Providers               map[string]ProviderConfig `yaml:"providers"`
	AgentProviderOverrides  map[string]string         `yaml:"agent_provider_overrides"`
	WorkDir                 string                    `yaml:"work_dir"`
	IdleTTL                 time.Duration             `yaml:"idle_ttl"`
	MaxConcurrency          int                       `yaml:"max_concurrency"`
}

// Default returns a Config with the built-in DeepSeek/Zhipu wiring the spec
// names, reading API keys from environment variables so no secret is ever
// committed to the YAML file.
func Default() Config {
	return Config{
		DefaultProvider: "deepseek",
		FastProvider:    "",
		Providers: map[string]ProviderConfig{
			"deepseek": {Kind: "deepseek", APIKeyEnv: "DEEPSEEK_API_KEY"},
			"zhipu":    {Kind: "zhipu", APIKeyEnv: "ZHIPU_API_KEY"},
		},
		WorkDir:        ".",
		IdleTTL:        30 * time.Minute,
		MaxConcurrency: 4,
	}
}

// Load reads a YAML config file at path, falling back to Default() for any
// field the file doesn't set. A missing file is not an error: Default() is
// returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// APIKey resolves a provider's API key from its configured environment
// variable. Empty if unset.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}
