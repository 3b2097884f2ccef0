package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docdiff.yaml")
	content := `
paragraph:
  min_length: 10
layout:
  heading_min_size: 14.5
segment:
  strategy: layout
extraction:
  timeout: 30s
store:
  dsn: history.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paragraph.MinLength != 10 {
		t.Errorf("min_length = %d, want 10", cfg.Paragraph.MinLength)
	}
	if cfg.Layout.HeadingMinSize != 14.5 {
		t.Errorf("heading_min_size = %f, want 14.5", cfg.Layout.HeadingMinSize)
	}
	if cfg.Segment.Strategy != "layout" {
		t.Errorf("strategy = %q, want layout", cfg.Segment.Strategy)
	}
	if cfg.Extraction.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Extraction.Timeout)
	}
	if cfg.Store.DSN != "history.db" {
		t.Errorf("dsn = %q, want history.db", cfg.Store.DSN)
	}
	// untouched values keep their defaults
	if cfg.Paragraph.ChunkSize != 500 {
		t.Errorf("chunk_size = %d, want default 500", cfg.Paragraph.ChunkSize)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"strategy", func(c *Config) { c.Segment.Strategy = "magic" }},
		{"chunk size", func(c *Config) { c.Paragraph.ChunkSize = 0 }},
		{"threshold below chunk", func(c *Config) { c.Paragraph.SplitThreshold = 100 }},
		{"heading size", func(c *Config) { c.Layout.HeadingMinSize = 0 }},
		{"timeout", func(c *Config) { c.Extraction.Timeout = 0 }},
		{"ocr command", func(c *Config) { c.OCR.Enabled = true; c.OCR.Command = "" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"text body limit", func(c *Config) { c.Server.MaxTextKB = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
