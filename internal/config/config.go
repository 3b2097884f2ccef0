// Package config holds the runtime configuration of docdiff.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full docdiff configuration. Every component receives the
// part it needs at construction; there is no global state.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Paragraph  ParagraphConfig  `yaml:"paragraph"`
	Layout     LayoutConfig     `yaml:"layout"`
	Segment    SegmentConfig    `yaml:"segment"`
	OCR        OCRConfig        `yaml:"ocr"`
	LLM        LLMConfig        `yaml:"llm"`
	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// ExtractionConfig bounds the calls to extraction collaborators.
type ExtractionConfig struct {
	// MinTextLength is the trimmed length under which a document counts as unreadable.
	MinTextLength int `yaml:"min_text_length"`
	// ScanFallbackChars is the trimmed length under which a PDF text layer is
	// considered missing and OCR is attempted.
	ScanFallbackChars int           `yaml:"scan_fallback_chars"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxFileMB         int           `yaml:"max_file_mb"`
}

// ParagraphConfig drives the paragraph block extraction.
type ParagraphConfig struct {
	MinLength      int     `yaml:"min_length"`
	SplitThreshold int     `yaml:"split_threshold"`
	ChunkSize      int     `yaml:"chunk_size"`
	BlockGapFactor float64 `yaml:"block_gap_factor"`
}

// LayoutConfig drives the typographic heading detection.
type LayoutConfig struct {
	HeadingMinSize float64 `yaml:"heading_min_size"`
	LineTolerance  float64 `yaml:"line_tolerance"`
}

// SegmentConfig selects the segmentation strategy.
type SegmentConfig struct {
	// Strategy is one of auto, numbering, layout, llm.
	Strategy string `yaml:"strategy"`
}

// OCRConfig configures the tesseract collaborator.
type OCRConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Command   string   `yaml:"command"`
	Languages string   `yaml:"languages"`
	Args      []string `yaml:"args"`
}

// LLMConfig configures the Ollama client used by the llm strategy.
type LLMConfig struct {
	// Host overrides OLLAMA_HOST when set.
	Host       string        `yaml:"host"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StoreConfig configures comparison history persistence.
type StoreConfig struct {
	// DSN is a postgres:// URL or a SQLite file path. Empty disables storage.
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen         string        `yaml:"listen"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxTextKB bounds the JSON bodies of the text endpoints (segment, diff).
	MaxTextKB int `yaml:"max_text_kb"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			MinTextLength:     1,
			ScanFallbackChars: 50,
			Timeout:           2 * time.Minute,
			MaxFileMB:         100,
		},
		Paragraph: ParagraphConfig{
			MinLength:      5,
			SplitThreshold: 1000,
			ChunkSize:      500,
			BlockGapFactor: 1.5,
		},
		Layout: LayoutConfig{
			HeadingMinSize: 12,
			LineTolerance:  1,
		},
		Segment: SegmentConfig{Strategy: "auto"},
		OCR: OCRConfig{
			Enabled:   false,
			Command:   "tesseract",
			Languages: "fra+eng",
			Args:      []string{"--oem", "3", "--psm", "6"},
		},
		LLM: LLMConfig{
			Model:      "phi3-mini",
			Timeout:    2 * time.Minute,
			MaxRetries: 2,
		},
		Server: ServerConfig{
			Listen:         ":8080",
			RequestTimeout: 5 * time.Minute,
			MaxTextKB:      1024,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.Extraction.MinTextLength < 0 {
		return fmt.Errorf("extraction.min_text_length must be >= 0")
	}
	if c.Extraction.Timeout <= 0 {
		return fmt.Errorf("extraction.timeout must be > 0")
	}
	if c.Extraction.MaxFileMB <= 0 {
		return fmt.Errorf("extraction.max_file_mb must be > 0")
	}
	if c.Paragraph.MinLength < 0 {
		return fmt.Errorf("paragraph.min_length must be >= 0")
	}
	if c.Paragraph.ChunkSize <= 0 || c.Paragraph.SplitThreshold < c.Paragraph.ChunkSize {
		return fmt.Errorf("paragraph.chunk_size must be > 0 and <= split_threshold")
	}
	if c.Layout.HeadingMinSize <= 0 {
		return fmt.Errorf("layout.heading_min_size must be > 0")
	}
	if c.Server.MaxTextKB <= 0 {
		return fmt.Errorf("server.max_text_kb must be > 0")
	}
	switch c.Segment.Strategy {
	case "auto", "numbering", "layout", "llm":
	default:
		return fmt.Errorf("segment.strategy: unsupported value %q (use auto, numbering, layout or llm)", c.Segment.Strategy)
	}
	if c.OCR.Enabled && c.OCR.Command == "" {
		return fmt.Errorf("ocr.command is required when ocr is enabled")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unsupported value %q (use text or json)", c.Log.Format)
	}
	return nil
}
