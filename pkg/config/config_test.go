package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Quota.DailyLimit != 7 {
		t.Errorf("expected daily limit 7, got %d", cfg.Quota.DailyLimit)
	}
	if cfg.Cache.TTL != 7*24*time.Hour {
		t.Errorf("expected 7-day TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Debounce != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %v", cfg.Debounce)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_DATA_DIR", "/tmp/huetone")

	content := `
cache:
  path: "${TEST_DATA_DIR}/cache.db"
  ttl: 48h
  singleflight: true
quota:
  daily_limit: 10
  hourly_limit: 5
  min_cooldown: 10s
  max_cooldown: 2m
debounce: 150ms
`
	dir := t.TempDir()
	path := filepath.Join(dir, "huetone.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Cache.Path != "/tmp/huetone/cache.db" {
		t.Errorf("env expansion failed: %s", cfg.Cache.Path)
	}
	if cfg.Cache.TTL != 48*time.Hour {
		t.Errorf("expected 48h TTL, got %v", cfg.Cache.TTL)
	}
	if !cfg.Cache.Singleflight {
		t.Error("expected singleflight enabled")
	}
	if cfg.Quota.DailyLimit != 10 {
		t.Errorf("expected daily limit 10, got %d", cfg.Quota.DailyLimit)
	}
	// Unset fields keep defaults.
	if cfg.Quota.MaxUniqueImagesPerDay != 3 {
		t.Errorf("expected default max unique images 3, got %d", cfg.Quota.MaxUniqueImagesPerDay)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
