package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Scan.Threshold != 90 {
		t.Errorf("default threshold: got %v, want 90", cfg.Scan.Threshold)
	}
	if cfg.Scan.Frames != 20 {
		t.Errorf("default frames: got %d, want 20", cfg.Scan.Frames)
	}
	if cfg.Scan.HashSize != 8 {
		t.Errorf("default hash size: got %d, want 8", cfg.Scan.HashSize)
	}
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above range", func(c *Config) { c.Scan.Threshold = 101 }},
		{"threshold below range", func(c *Config) { c.Scan.Threshold = -1 }},
		{"zero frames", func(c *Config) { c.Scan.Frames = 0 }},
		{"hash size one", func(c *Config) { c.Scan.HashSize = 1 }},
		{"zero workers", func(c *Config) { c.Scan.Workers = 0 }},
		{"negative skip duration", func(c *Config) { c.Scan.SkipDurationSeconds = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[scan]
threshold = 85.0
frames = 10
hash_size = 16

[watched]
db_path = "/tmp/watched.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Errorf("expected config read from %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Scan.Threshold != 85 {
		t.Errorf("threshold: got %v, want 85", cfg.Scan.Threshold)
	}
	if cfg.Scan.Frames != 10 {
		t.Errorf("frames: got %d, want 10", cfg.Scan.Frames)
	}
	if cfg.Watched.DBPath != "/tmp/watched.db" {
		t.Errorf("watched db path: got %q", cfg.Watched.DBPath)
	}
	// Unset fields keep their defaults.
	if cfg.Scan.CacheFile != defaultCacheFile {
		t.Errorf("cache file default lost: %q", cfg.Scan.CacheFile)
	}
	if cfg.Scan.Workers <= 0 {
		t.Errorf("workers should normalize to NumCPU, got %d", cfg.Scan.Workers)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, _, _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[scan]\nframes = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for frames = 0")
	}
}
