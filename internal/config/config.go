// Package config loads and validates the clipforge config file.
//
// Notes:
//   - Secrets (API keys) are never stored here; they live in secrets.json
//     managed by the settings package.
//   - The file is YAML; absent fields fall back to safe defaults exposed
//     through the Effective* accessors.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderSimulated = "simulated"
)

const (
	defaultModel           = "gpt-4o-mini"
	defaultMaxToolRounds   = 10
	defaultMaxOutputTokens = 2000
	defaultTemperature     = 0.01
	defaultLogFormat       = "text"
	defaultLogLevel        = "info"
)

// Config is the on-disk configuration.
type Config struct {
	// Provider selects the cloud chat backend: openai|anthropic|simulated.
	Provider string `yaml:"provider,omitempty"`

	// BaseURL overrides the provider endpoint. Optional.
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the model name sent to the provider.
	Model string `yaml:"model,omitempty"`

	// MaxToolRounds bounds the agent tool-call loop. Defaults to 10.
	MaxToolRounds *int `yaml:"max_tool_rounds,omitempty"`

	// MaxOutputTokens is the hard completion ceiling. Defaults to 2000.
	MaxOutputTokens *int `yaml:"max_output_tokens,omitempty"`

	// Temperature for the one-shot strategy. Defaults to 0.01.
	Temperature *float64 `yaml:"temperature,omitempty"`

	// StateDir holds secrets.json and events.db. Defaults to ~/.clipforge.
	StateDir string `yaml:"state_dir,omitempty"`

	// TempDir receives files produced by the paste-as-file tool.
	// Defaults to the OS temp directory.
	TempDir string `yaml:"temp_dir,omitempty"`

	LogFormat string `yaml:"log_format,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`
}

// DefaultConfigPath returns ~/.clipforge/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".clipforge", "config.yaml")
}

// Load reads and validates the config at path. A missing file yields the
// zero config (all defaults), not an error.
func Load(path string) (*Config, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("missing config path")
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}

	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	switch provider {
	case "", ProviderOpenAI, ProviderAnthropic, ProviderSimulated:
	default:
		return fmt.Errorf("invalid provider %q", c.Provider)
	}

	if baseURL := strings.TrimSpace(c.BaseURL); baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
		scheme := strings.ToLower(strings.TrimSpace(u.Scheme))
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("invalid base_url scheme %q", u.Scheme)
		}
		if strings.TrimSpace(u.Host) == "" {
			return errors.New("invalid base_url host")
		}
	}

	if c.MaxToolRounds != nil && (*c.MaxToolRounds < 1 || *c.MaxToolRounds > 50) {
		return fmt.Errorf("invalid max_tool_rounds %d (must be in [1,50])", *c.MaxToolRounds)
	}
	if c.MaxOutputTokens != nil && *c.MaxOutputTokens < 1 {
		return fmt.Errorf("invalid max_output_tokens %d", *c.MaxOutputTokens)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("invalid temperature %v (must be in [0,2])", *c.Temperature)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	return nil
}

func (c *Config) EffectiveProvider() string {
	if c == nil {
		return ProviderSimulated
	}
	v := strings.ToLower(strings.TrimSpace(c.Provider))
	switch v {
	case ProviderOpenAI, ProviderAnthropic, ProviderSimulated:
		return v
	default:
		return ProviderSimulated
	}
}

func (c *Config) EffectiveModel() string {
	if c == nil {
		return defaultModel
	}
	if v := strings.TrimSpace(c.Model); v != "" {
		return v
	}
	return defaultModel
}

func (c *Config) EffectiveMaxToolRounds() int {
	if c == nil || c.MaxToolRounds == nil {
		return defaultMaxToolRounds
	}
	v := *c.MaxToolRounds
	if v < 1 {
		return defaultMaxToolRounds
	}
	if v > 50 {
		return 50
	}
	return v
}

func (c *Config) EffectiveMaxOutputTokens() int {
	if c == nil || c.MaxOutputTokens == nil || *c.MaxOutputTokens < 1 {
		return defaultMaxOutputTokens
	}
	return *c.MaxOutputTokens
}

func (c *Config) EffectiveTemperature() float64 {
	if c == nil || c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

func (c *Config) EffectiveStateDir() string {
	if c != nil {
		if v := strings.TrimSpace(c.StateDir); v != "" {
			return v
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipforge"
	}
	return filepath.Join(home, ".clipforge")
}

func (c *Config) EffectiveTempDir() string {
	if c != nil {
		if v := strings.TrimSpace(c.TempDir); v != "" {
			return v
		}
	}
	return os.TempDir()
}

func (c *Config) SecretsPath() string {
	return filepath.Join(c.EffectiveStateDir(), "secrets.json")
}

func (c *Config) TelemetryPath() string {
	return filepath.Join(c.EffectiveStateDir(), "events.db")
}

func (c *Config) EffectiveLogFormat() string {
	if c == nil {
		return defaultLogFormat
	}
	v := strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch v {
	case "text", "json":
		return v
	default:
		return defaultLogFormat
	}
}

func (c *Config) EffectiveLogLevel() string {
	if c == nil {
		return defaultLogLevel
	}
	v := strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch v {
	case "debug", "info", "warn", "error":
		return v
	default:
		return defaultLogLevel
	}
}
