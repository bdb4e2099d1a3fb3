// Package config loads shipinsight settings from YAML, a local secrets file
// and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Planner providers.
const (
	ProviderRouter    = "router"
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// Default locations, relative to the working directory.
const (
	DefaultConfigPath  = ".shipinsight/config.yaml"
	DefaultSecretsPath = ".shipinsight/secrets.yaml"
)

// Config holds all shipinsight configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	Planner PlannerConfig `yaml:"planner"`
	Logging LoggingConfig `yaml:"logging"`

	// SecretsPath points at the YAML file holding API tokens.
	SecretsPath string `yaml:"secrets_path,omitempty"`

	secrets    Secrets
	fileAPIKey string
}

// DatasetConfig selects the shipment file. Empty Path means the bundled sample.
type DatasetConfig struct {
	Path string `yaml:"path,omitempty"`
}

// PlannerConfig configures question planning.
type PlannerConfig struct {
	Provider    string  `yaml:"provider"` // router, gemini, heuristic
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Timeout     string  `yaml:"timeout"`
	RatePerSec  float64 `yaml:"rate_per_second"`
	Burst       int     `yaml:"burst"`
	Parallelism int     `yaml:"parallelism"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// Secrets is the layout of the secrets file.
type Secrets struct {
	HFToken      string `yaml:"hf_token"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			Provider:    ProviderRouter,
			Timeout:     "30s",
			RatePerSec:  2,
			Burst:       4,
			Parallelism: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		SecretsPath: DefaultSecretsPath,
	}
}

// Path returns the config file location: $SHIPINSIGHT_CONFIG, else the default.
func Path() string {
	if p := os.Getenv("SHIPINSIGHT_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. The environment then overrides provider and model, and
// ResolveToken picks the API key.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	secrets, err := LoadSecrets(cfg.SecretsPath)
	if err != nil {
		return nil, err
	}
	cfg.secrets = secrets
	cfg.fileAPIKey = cfg.Planner.APIKey
	cfg.applyEnvOverrides()
	cfg.ResolveToken()
	return cfg, nil
}

// LoadSecrets reads the secrets file. A missing file yields empty secrets.
func LoadSecrets(path string) (Secrets, error) {
	var s Secrets
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read secrets: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return s, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies LLM_PROVIDER and LLM_MODEL.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("LLM_PROVIDER"); p != "" {
		c.Planner.Provider = strings.ToLower(p)
	}
	if m := os.Getenv("LLM_MODEL"); m != "" {
		c.Planner.Model = m
	}
}

// ResolveToken sets Planner.APIKey for the current provider: its environment
// variable, else its secrets-file entry, else planner.api_key from the config
// file. Call it again after changing Planner.Provider.
func (c *Config) ResolveToken() {
	var candidates []string
	switch c.Planner.Provider {
	case ProviderGemini:
		candidates = []string{os.Getenv("GEMINI_API_KEY"), c.secrets.GeminiAPIKey}
	case ProviderHeuristic:
	default:
		candidates = []string{os.Getenv("HF_TOKEN"), c.secrets.HFToken}
	}
	c.Planner.APIKey = c.fileAPIKey
	for _, key := range candidates {
		if key = strings.TrimSpace(key); key != "" {
			c.Planner.APIKey = key
			return
		}
	}
}

// GetTimeout returns the planner timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Planner.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// HasToken reports whether remote planning can be attempted.
func (c *Config) HasToken() bool {
	return c.Planner.Provider != ProviderHeuristic && c.Planner.APIKey != ""
}

// ValidProviders lists all supported planner providers.
var ValidProviders = []string{ProviderRouter, ProviderGemini, ProviderHeuristic}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.Planner.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid planner provider: %q (valid: %v)", c.Planner.Provider, ValidProviders)
	}
	if c.Planner.Timeout != "" {
		if _, err := time.ParseDuration(c.Planner.Timeout); err != nil {
			return fmt.Errorf("invalid planner timeout %q: %w", c.Planner.Timeout, err)
		}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %q (valid: console, json)", c.Logging.Format)
	}
	return nil
}
