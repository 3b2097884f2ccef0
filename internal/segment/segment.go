// Package segment splits document text into keyed sections.
//
// Three strategies share the Segmenter interface: numbering patterns over
// plain text, typographic layout over positioned glyphs, and an LLM pass over
// size-annotated lines. Absent or ambiguous structure yields an empty
// SectionMap, never an error.
package segment

import (
	"context"
	"fmt"
	"log/slog"

	"doc-compare/internal/config"
	"doc-compare/internal/models"
)

// Strategy names a segmentation strategy
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyNumbering Strategy = "numbering"
	StrategyLayout    Strategy = "layout"
	StrategyLLM       Strategy = "llm"
)

// Input is what a segmenter may look at. Spans is empty for sources
// without a positioned text layer.
type Input struct {
	Text  string
	Spans []models.PositionedSpan
}

// Result is the outcome of one segmentation
type Result struct {
	Sections models.SectionMap
	// Skipped counts recoverable problems, such as malformed heading lines.
	Skipped int
	// Strategy is the strategy that produced Sections.
	Strategy Strategy
}

// Segmenter is one segmentation strategy
type Segmenter interface {
	Strategy() Strategy
	Segment(ctx context.Context, in Input) (Result, error)
}

// Registry maps strategy names to segmenters
type Registry struct {
	segmenters map[Strategy]Segmenter
	logger     *slog.Logger
}

// NewRegistry registers the numbering and layout strategies, plus the llm
// strategy when a detector is given.
func NewRegistry(cfg *config.Config, detector SectionDetector, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{segmenters: make(map[Strategy]Segmenter), logger: logger}
	r.Register(NewNumbering())
	r.Register(NewLayout(cfg.Layout))
	if detector != nil {
		r.Register(NewLLM(detector, cfg.Layout, logger))
	}
	return r
}

// Register adds or replaces a segmenter
func (r *Registry) Register(s Segmenter) {
	r.segmenters[s.Strategy()] = s
}

// Get returns the segmenter for a strategy
func (r *Registry) Get(strategy Strategy) (Segmenter, error) {
	s, ok := r.segmenters[strategy]
	if !ok {
		return nil, fmt.Errorf("segmentation strategy %q is not available", strategy)
	}
	return s, nil
}

// Segment runs one strategy. StrategyAuto tries numbering patterns first and
// falls back to layout when no section was found and spans are available.
func (r *Registry) Segment(ctx context.Context, in Input, strategy Strategy) (Result, error) {
	if strategy == "" {
		strategy = StrategyAuto
	}
	if strategy != StrategyAuto {
		s, err := r.Get(strategy)
		if err != nil {
			return Result{}, err
		}
		return r.run(ctx, s, in)
	}

	numbering, err := r.Get(StrategyNumbering)
	if err != nil {
		return Result{}, err
	}
	res, err := r.run(ctx, numbering, in)
	if err != nil || len(res.Sections) > 0 || len(in.Spans) == 0 {
		return res, err
	}

	r.logger.Debug("no numbered sections, falling back to layout")
	layout, err := r.Get(StrategyLayout)
	if err != nil {
		return Result{}, err
	}
	fallback, err := r.run(ctx, layout, in)
	if err != nil {
		return Result{}, err
	}
	fallback.Skipped += res.Skipped
	return fallback, nil
}

func (r *Registry) run(ctx context.Context, s Segmenter, in Input) (Result, error) {
	res, err := s.Segment(ctx, in)
	if err != nil {
		return Result{}, fmt.Errorf("failed to segment with %s strategy: %w", s.Strategy(), err)
	}
	if res.Sections == nil {
		res.Sections = models.SectionMap{}
	}
	res.Strategy = s.Strategy()
	return res, nil
}

// Segment splits plain text with the default configuration. Only the
// numbering strategy can find sections in text without positions; auto
// behaves like numbering here.
func Segment(ctx context.Context, text string, strategy Strategy) (models.SectionMap, error) {
	res, err := NewRegistry(config.DefaultConfig(), nil, nil).Segment(ctx, Input{Text: text}, strategy)
	if err != nil {
		return nil, err
	}
	return res.Sections, nil
}
