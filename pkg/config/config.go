package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all huetone configuration.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Quota   QuotaConfig   `yaml:"quota"`
	History HistoryConfig `yaml:"history"`

	// Debounce is the quiet interval for rapid repeated visualization
	// triggers; only the last trigger within a burst proceeds.
	Debounce time.Duration `yaml:"debounce"`

	// MinArtifactBytes is the sanity floor for fetched artifacts; shorter
	// results are treated as fetch failures.
	MinArtifactBytes int `yaml:"min_artifact_bytes"`
}

// CacheConfig controls the durable artifact cache.
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`

	// Singleflight de-duplicates concurrent misses on the same key.
	Singleflight bool `yaml:"singleflight"`
}

// QuotaConfig controls the session rate limiter.
type QuotaConfig struct {
	// PrimaryPath is the bbolt key-value store; SecondaryPath is the
	// SQLite mirror keyed by device fingerprint.
	PrimaryPath   string `yaml:"primary_path"`
	SecondaryPath string `yaml:"secondary_path"`

	DailyLimit            int           `yaml:"daily_limit"`
	HourlyLimit           int           `yaml:"hourly_limit"`
	MinCooldown           time.Duration `yaml:"min_cooldown"`
	CooldownStep          time.Duration `yaml:"cooldown_step"`
	MaxCooldown           time.Duration `yaml:"max_cooldown"`
	MaxUniqueImagesPerDay int           `yaml:"max_unique_images_per_day"`
}

// HistoryConfig controls the request history log.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Path: "huetone-cache.db",
			TTL:  7 * 24 * time.Hour,
		},
		Quota: QuotaConfig{
			PrimaryPath:           "huetone-quota.db",
			SecondaryPath:         "huetone-quota-mirror.db",
			DailyLimit:            7,
			HourlyLimit:           3,
			MinCooldown:           30 * time.Second,
			CooldownStep:          30 * time.Second,
			MaxCooldown:           5 * time.Minute,
			MaxUniqueImagesPerDay: 3,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "huetone-history.db",
			RetentionDays: 30,
		},
		Debounce:         300 * time.Millisecond,
		MinArtifactBytes: 100,
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
