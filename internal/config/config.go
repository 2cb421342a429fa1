// Package config loads lovenda settings from defaults, an optional YAML file
// and LOVENDA_* environment variables, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/lovenda/lovenda/internal/ai"
)

// Config holds everything the CLI needs to wire the engine together
type Config struct {
	// DBPath is the SQLite database file. Empty means discover it.
	DBPath string `yaml:"db"`

	// Model is the Anthropic model used for plan generation.
	Model string `yaml:"model"`

	// APIKey is read from ANTHROPIC_API_KEY only; it is never loaded from a file.
	APIKey string `yaml:"-"`

	// GenerationTimeout bounds one plan generation call.
	// Default: 30s, Range: 1s-10m
	GenerationTimeout time.Duration `yaml:"generation_timeout"`

	// MaxConcurrentCalls caps in-flight generation calls; 0 = unlimited.
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`

	// RateLimit caps generation calls per second; 0 = unlimited.
	RateLimit float64 `yaml:"rate_limit"`

	// BreakerThreshold opens the generation circuit breaker after this many
	// consecutive unavailable or timed-out calls; 0 disables it.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// BreakerOpenTimeout is how long an open breaker refuses calls.
	// Default: 30s
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`

	// UseFallback makes regeneration fall back to the built-in checklist when
	// the model fails.
	UseFallback bool `yaml:"use_fallback"`

	Events EventRetentionConfig `yaml:"events"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Model:              ai.DefaultModel,
		GenerationTimeout:  ai.DefaultTimeout,
		MaxConcurrentCalls: 2,
		BreakerThreshold:   3,
		BreakerOpenTimeout: 30 * time.Second,
		Events:             DefaultEventRetentionConfig(),
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.GenerationTimeout < time.Second || c.GenerationTimeout > 10*time.Minute {
		return fmt.Errorf("generation_timeout must be between 1s and 10m (got %v)", c.GenerationTimeout)
	}
	if c.MaxConcurrentCalls < 0 {
		return fmt.Errorf("max_concurrent_calls cannot be negative (got %d)", c.MaxConcurrentCalls)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative (got %v)", c.RateLimit)
	}
	if c.BreakerThreshold < 0 {
		return fmt.Errorf("breaker_threshold cannot be negative (got %d)", c.BreakerThreshold)
	}
	if c.BreakerThreshold > 0 && c.BreakerOpenTimeout <= 0 {
		return fmt.Errorf("breaker_open_timeout must be positive (got %v)", c.BreakerOpenTimeout)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return nil
}

// String returns a human-readable representation of the config. The API key
// is reported only as set or unset.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{DB: %q, Model: %s, APIKey: %t, Timeout: %v, MaxConcurrent: %d, "+
			"RateLimit: %v, Breaker: %d/%v, Fallback: %t, Events: %s}",
		c.DBPath, c.Model, c.APIKey != "", c.GenerationTimeout, c.MaxConcurrentCalls,
		c.RateLimit, c.BreakerThreshold, c.BreakerOpenTimeout, c.UseFallback, c.Events,
	)
}

// GatewayConfig translates the generation settings for ai.NewGateway
func (c Config) GatewayConfig(completer ai.Completer, logger *slog.Logger) ai.Config {
	gc := ai.Config{
		Completer:          completer,
		Timeout:            c.GenerationTimeout,
		MaxConcurrentCalls: c.MaxConcurrentCalls,
		RateLimit:          rate.Limit(c.RateLimit),
		Logger:             logger,
	}
	if c.BreakerThreshold > 0 {
		gc.Breaker = ai.NewCircuitBreaker(c.BreakerThreshold, c.BreakerOpenTimeout, logger)
	}
	return gc
}

// AnthropicConfig translates the model settings for ai.NewAnthropicCompleter
func (c Config) AnthropicConfig() ai.AnthropicConfig {
	return ai.AnthropicConfig{APIKey: c.APIKey, Model: c.Model}
}

// FromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - LOVENDA_DB: Database path
//   - LOVENDA_MODEL: Model name (default: ai.DefaultModel)
//   - LOVENDA_GENERATION_TIMEOUT: Generation timeout, e.g. "45s" (default: 30s)
//   - LOVENDA_MAX_CONCURRENT_CALLS: In-flight generation calls, 0 for unlimited (default: 2)
//   - LOVENDA_RATE_LIMIT: Generation calls per second, 0 for unlimited (default: 0)
//   - LOVENDA_BREAKER_THRESHOLD: Failures before the breaker opens, 0 to disable (default: 3)
//   - LOVENDA_BREAKER_OPEN_TIMEOUT: How long the breaker stays open (default: 30s)
//   - LOVENDA_USE_FALLBACK: Fall back to the built-in checklist (default: false)
//   - ANTHROPIC_API_KEY: API key for the Anthropic Messages API
//
// plus the LOVENDA_EVENT_* variables read by EventRetentionConfigFromEnv.
func FromEnv() (Config, error) {
	return Load("")
}

// LoadFile reads a YAML config file over the defaults. Environment variables
// are not consulted.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.overlayFile(path); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Load layers defaults, the YAML file at path (skipped when empty) and the
// environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := parseEnvString("LOVENDA_DB", &c.DBPath); err != nil {
		return err
	}
	if err := parseEnvString("LOVENDA_MODEL", &c.Model); err != nil {
		return err
	}
	if err := parseEnvString("ANTHROPIC_API_KEY", &c.APIKey); err != nil {
		return err
	}
	if err := parseEnvDuration("LOVENDA_GENERATION_TIMEOUT", &c.GenerationTimeout); err != nil {
		return err
	}
	if err := parseEnvInt("LOVENDA_MAX_CONCURRENT_CALLS", &c.MaxConcurrentCalls); err != nil {
		return err
	}
	if err := parseEnvFloat("LOVENDA_RATE_LIMIT", &c.RateLimit); err != nil {
		return err
	}
	if err := parseEnvInt("LOVENDA_BREAKER_THRESHOLD", &c.BreakerThreshold); err != nil {
		return err
	}
	if err := parseEnvDuration("LOVENDA_BREAKER_OPEN_TIMEOUT", &c.BreakerOpenTimeout); err != nil {
		return err
	}
	if err := parseEnvBool("LOVENDA_USE_FALLBACK", &c.UseFallback); err != nil {
		return err
	}
	return c.Events.applyEnv()
}
