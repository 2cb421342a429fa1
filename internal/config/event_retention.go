package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EventRetentionConfig controls how long the task audit trail is kept
type EventRetentionConfig struct {
	// RetentionDays is the retention period for info and warning events.
	// Default: 90, Range: 1-365
	RetentionDays int `yaml:"retention_days"`

	// RetentionErrorDays is the retention period for error events.
	// Must be >= RetentionDays
	// Default: 365, Range: 1-730
	RetentionErrorDays int `yaml:"retention_error_days"`

	// PerWeddingLimitEvents caps the events kept per wedding. Oldest
	// non-error events go first. 0 means unlimited.
	// Default: 5000, Range: 0 or 100-50000
	PerWeddingLimitEvents int `yaml:"per_wedding_limit"`

	// CleanupBatchSize is the number of events deleted per transaction
	// Default: 1000, Range: 100-10000
	CleanupBatchSize int `yaml:"cleanup_batch_size"`

	// CleanupEnabled controls whether commands prune events on exit
	// Default: true
	CleanupEnabled bool `yaml:"cleanup_enabled"`
}

// DefaultEventRetentionConfig returns the default event retention configuration
func DefaultEventRetentionConfig() EventRetentionConfig {
	return EventRetentionConfig{
		RetentionDays:         90,
		RetentionErrorDays:    365,
		PerWeddingLimitEvents: 5000,
		CleanupBatchSize:      1000,
		CleanupEnabled:        true,
	}
}

// Validate checks if the configuration has valid values
func (c EventRetentionConfig) Validate() error {
	if c.RetentionDays < 1 || c.RetentionDays > 365 {
		return fmt.Errorf("retention_days must be between 1 and 365 (got %d)", c.RetentionDays)
	}

	if c.RetentionErrorDays < 1 || c.RetentionErrorDays > 730 {
		return fmt.Errorf("retention_error_days must be between 1 and 730 (got %d)",
			c.RetentionErrorDays)
	}
	if c.RetentionErrorDays < c.RetentionDays {
		return fmt.Errorf("retention_error_days (%d) must be >= retention_days (%d)",
			c.RetentionErrorDays, c.RetentionDays)
	}

	// 0 = unlimited, or 100-50000
	if c.PerWeddingLimitEvents < 0 {
		return fmt.Errorf("per_wedding_limit cannot be negative (got %d)",
			c.PerWeddingLimitEvents)
	}
	if c.PerWeddingLimitEvents > 0 && c.PerWeddingLimitEvents < 100 {
		return fmt.Errorf("per_wedding_limit must be 0 (unlimited) or >= 100 (got %d)",
			c.PerWeddingLimitEvents)
	}
	if c.PerWeddingLimitEvents > 50000 {
		return fmt.Errorf("per_wedding_limit too large (got %d, max 50000)",
			c.PerWeddingLimitEvents)
	}

	if c.CleanupBatchSize < 100 {
		return fmt.Errorf("cleanup_batch_size must be at least 100 (got %d)",
			c.CleanupBatchSize)
	}
	if c.CleanupBatchSize > 10000 {
		return fmt.Errorf("cleanup_batch_size too large (got %d, max 10000)",
			c.CleanupBatchSize)
	}

	return nil
}

// String returns a human-readable representation of the config
func (c EventRetentionConfig) String() string {
	return fmt.Sprintf(
		"EventRetentionConfig{RetentionDays: %d, RetentionErrorDays: %d, "+
			"PerWeddingLimit: %d, BatchSize: %d, Enabled: %t}",
		c.RetentionDays, c.RetentionErrorDays, c.PerWeddingLimitEvents,
		c.CleanupBatchSize, c.CleanupEnabled,
	)
}

// EventRetentionConfigFromEnv creates an EventRetentionConfig from environment variables,
// falling back to defaults
//
// Environment variables:
//   - LOVENDA_EVENT_RETENTION_DAYS: Retention for info and warning events in days (default: 90)
//   - LOVENDA_EVENT_RETENTION_ERROR_DAYS: Retention for error events in days (default: 365)
//   - LOVENDA_EVENT_PER_WEDDING_LIMIT: Maximum events per wedding, 0 for unlimited (default: 5000)
//   - LOVENDA_EVENT_CLEANUP_BATCH_SIZE: Events to delete per transaction (default: 1000)
//   - LOVENDA_EVENT_CLEANUP_ENABLED: Prune events after commands (default: true)
//
// Returns an error if any environment variable has an invalid value.
func EventRetentionConfigFromEnv() (EventRetentionConfig, error) {
	cfg := DefaultEventRetentionConfig()
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid event retention configuration from environment: %w", err)
	}
	return cfg, nil
}

func (c *EventRetentionConfig) applyEnv() error {
	if err := parseEnvInt("LOVENDA_EVENT_RETENTION_DAYS", &c.RetentionDays); err != nil {
		return err
	}
	if err := parseEnvInt("LOVENDA_EVENT_RETENTION_ERROR_DAYS", &c.RetentionErrorDays); err != nil {
		return err
	}
	if err := parseEnvInt("LOVENDA_EVENT_PER_WEDDING_LIMIT", &c.PerWeddingLimitEvents); err != nil {
		return err
	}
	if err := parseEnvInt("LOVENDA_EVENT_CLEANUP_BATCH_SIZE", &c.CleanupBatchSize); err != nil {
		return err
	}
	return parseEnvBool("LOVENDA_EVENT_CLEANUP_ENABLED", &c.CleanupEnabled)
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a duration such as "45s" from an environment variable
func parseEnvDuration(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
