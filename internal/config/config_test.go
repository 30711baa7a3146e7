package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Defaults()
	cfg.WatchPaths = []string{t.TempDir()}
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no watch paths", func(c *Config) { c.WatchPaths = nil }},
		{"bad policy", func(c *Config) { c.PolicyMode = "audit" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero queue", func(c *Config) { c.EventQueueSize = 0 }},
		{"zero scan cap", func(c *Config) { c.ScanMaxBytes = 0 }},
		{"negative ttl", func(c *Config) { c.DedupTTL = -time.Second }},
		{"zero probes", func(c *Config) { c.StabilityProbes = 0 }},
		{"zero max alerts", func(c *Config) { c.MaxAlerts = 0 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig(t)
			test.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s, got none", test.name)
			}
		})
	}
}

func TestValidateNormalizesPaths(t *testing.T) {
	cfg := validConfig(t)
	cfg.QuarantineDir = "relative/quarantine"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(cfg.QuarantineDir) {
		t.Errorf("expected absolute quarantine dir, got %s", cfg.QuarantineDir)
	}
	for _, p := range cfg.WatchPaths {
		if !filepath.IsAbs(p) {
			t.Errorf("expected absolute watch path, got %s", p)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vigil.yaml")
	content := `
watch_paths:
  - ` + dir + `
policy_mode: warn
dedup_ttl: 15s
custom_patterns:
  phone: '\b\d{10}\b'
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := cfg.loadFromFile(path); err != nil {
		t.Fatalf("loadFromFile failed: %v", err)
	}
	if cfg.PolicyMode != "warn" {
		t.Errorf("expected policy mode 'warn', got %q", cfg.PolicyMode)
	}
	if cfg.DedupTTL != 15*time.Second {
		t.Errorf("expected dedup TTL 15s, got %v", cfg.DedupTTL)
	}
	if cfg.CustomPatterns["phone"] == "" {
		t.Error("expected custom pattern 'phone' to be loaded")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected loaded config to validate, got: %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Defaults()
	if err := cfg.loadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
