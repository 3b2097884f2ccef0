// Package compare runs a full comparison of two documents: extraction,
// segmentation, alignment and scoring.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"doc-compare/internal/align"
	"doc-compare/internal/config"
	"doc-compare/internal/models"
	"doc-compare/internal/paragraph"
	"doc-compare/internal/processor"
	"doc-compare/internal/segment"
	"doc-compare/internal/similarity"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// Comparator compares pairs of documents. It holds no per-comparison state
// and is safe for concurrent use.
type Comparator struct {
	cfg        *config.Config
	strategy   segment.Strategy
	processors *processor.Registry
	segmenters *segment.Registry
	paragraphs *paragraph.Extractor
	logger     *slog.Logger
}

// New creates a Comparator using cfg.Segment.Strategy.
func New(cfg *config.Config, processors *processor.Registry, segmenters *segment.Registry, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{
		cfg:        cfg,
		strategy:   segment.Strategy(cfg.Segment.Strategy),
		processors: processors,
		segmenters: segmenters,
		paragraphs: paragraph.New(cfg.Paragraph, cfg.Layout, logger),
		logger:     logger,
	}
}

// WithStrategy returns a copy of c that segments with strategy.
func (c *Comparator) WithStrategy(strategy segment.Strategy) *Comparator {
	cp := *c
	cp.strategy = strategy
	return &cp
}

// prepared is one document ready for segmentation
type prepared struct {
	info   models.DocumentInfo
	text   string
	spans  []models.PositionedSpan
	blocks []models.ParagraphBlock
}

func (p *prepared) input() segment.Input {
	return segment.Input{Text: p.text, Spans: p.spans}
}

// Compare extracts both documents concurrently, scores them as a whole, then
// segments, aligns and scores their sections and paragraphs. A failure on
// either side aborts the comparison with an *models.ExtractionError.
func (c *Comparator) Compare(ctx context.Context, docA, docB models.Document) (*models.ComparisonResult, error) {
	start := time.Now()

	var a, b *prepared
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = c.prepare(gctx, docA, models.SideA)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = c.prepare(gctx, docB, models.SideB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.ComparisonResult{
		CreatedAt: time.Now().UTC(),
		Score:     similarity.Compute(a.text, b.text),
	}

	segA, segB, err := c.segmentPair(ctx, a, b)
	if err != nil {
		return nil, err
	}
	result.Strategy = string(segA.Strategy)

	alignment := align.Diff(segA.Sections, segB.Sections)
	result.UnitResults = scorePairs(alignment.Pairs)
	result.OnlyInA = alignment.OnlyInA
	result.OnlyInB = alignment.OnlyInB
	if len(alignment.Pairs) == 0 {
		c.logger.Warn("no common sections", "a", a.info.Name, "b", b.info.Name, "sections_a", len(segA.Sections), "sections_b", len(segB.Sections))
	}

	result.ParagraphResults = scorePairs(align.Align(blockMap(a.blocks), blockMap(b.blocks)))

	a.info.Sections, b.info.Sections = len(segA.Sections), len(segB.Sections)
	a.info.Skipped += segA.Skipped
	b.info.Skipped += segB.Skipped
	result.DocumentA, result.DocumentB = a.info, b.info

	c.logger.Info("comparison done",
		"a", a.info.Name,
		"b", b.info.Name,
		"strategy", result.Strategy,
		"similarity", result.Similarity,
		"units", len(result.UnitResults),
		"elapsed", time.Since(start))

	return result, nil
}

// ExtractText extracts one document and returns its normalized text.
func (c *Comparator) ExtractText(ctx context.Context, doc models.Document) (string, error) {
	p, err := c.prepare(ctx, doc, "")
	if err != nil {
		return "", err
	}
	return p.text, nil
}

// ExtractParagraphBlocks extracts one document and returns its paragraph blocks.
func (c *Comparator) ExtractParagraphBlocks(ctx context.Context, doc models.Document) ([]models.ParagraphBlock, error) {
	p, err := c.prepare(ctx, doc, "")
	if err != nil {
		return nil, err
	}
	return p.blocks, nil
}

// SegmentDocument extracts one document and segments it with the comparator strategy.
func (c *Comparator) SegmentDocument(ctx context.Context, doc models.Document) (segment.Result, error) {
	p, err := c.prepare(ctx, doc, "")
	if err != nil {
		return segment.Result{}, err
	}
	return c.segmenters.Segment(ctx, p.input(), c.strategy)
}

// segmentPair segments both documents with the same strategy. In auto mode
// numbering patterns are tried first; when either document has no numbered
// section and both carry positioned spans, both are segmented by layout.
func (c *Comparator) segmentPair(ctx context.Context, a, b *prepared) (segment.Result, segment.Result, error) {
	strategy := c.strategy
	if strategy == "" || strategy == segment.StrategyAuto {
		segA, segB, err := c.segmentBoth(ctx, segment.StrategyNumbering, a, b)
		if err != nil {
			return segA, segB, err
		}
		if (len(segA.Sections) > 0 && len(segB.Sections) > 0) || len(a.spans) == 0 || len(b.spans) == 0 {
			return segA, segB, nil
		}
		c.logger.Debug("numbering found no common structure, using layout", "sections_a", len(segA.Sections), "sections_b", len(segB.Sections))
		strategy = segment.StrategyLayout
	}
	return c.segmentBoth(ctx, strategy, a, b)
}

func (c *Comparator) segmentBoth(ctx context.Context, strategy segment.Strategy, a, b *prepared) (segment.Result, segment.Result, error) {
	var segA, segB segment.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		segA, err = c.segmenters.Segment(gctx, a.input(), strategy)
		return err
	})
	g.Go(func() error {
		var err error
		segB, err = c.segmenters.Segment(gctx, b.input(), strategy)
		return err
	})
	err := g.Wait()
	return segA, segB, err
}

// prepare extracts text, spans and paragraph blocks of one document, bounded
// by the extraction timeout.
func (c *Comparator) prepare(ctx context.Context, doc models.Document, side models.Side) (*prepared, error) {
	fail := func(err error) error {
		return &models.ExtractionError{Side: side, Path: doc.Path, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Extraction.Timeout)
	defer cancel()

	name := doc.Name
	if name == "" {
		name = filepath.Base(doc.Path)
	}

	format, proc, err := c.processors.Lookup(doc.Path)
	if err != nil {
		return nil, fail(err)
	}
	if err := processor.CheckSize(doc.Path, c.cfg.Extraction.MaxFileMB); err != nil {
		return nil, fail(err)
	}

	ext, err := proc.ExtractPlainText(ctx, doc)
	if err != nil {
		return nil, fail(err)
	}
	ext, err = c.ocrFallback(ctx, proc, doc, ext)
	if err != nil {
		return nil, fail(err)
	}

	text := normalizeText(ext.Text)
	if utf8.RuneCountInString(strings.TrimSpace(text)) < max(c.cfg.Extraction.MinTextLength, 1) {
		return nil, fail(models.ErrEmptyText)
	}

	p := &prepared{
		info: models.DocumentInfo{
			Name:    name,
			Format:  string(format),
			Method:  ext.Method,
			Quality: ext.Quality,
		},
		text: text,
	}

	// spans describe the text layer, which OCR replaced
	if se, ok := proc.(processor.SpanExtractor); ok && ext.Method != models.MethodOCR {
		spans, err := se.ExtractPositionedSpans(ctx, doc)
		if err != nil {
			c.logger.Warn("positioned spans unavailable", "path", doc.Path, "error", err)
		} else {
			p.spans = spans
		}
	}

	var paras paragraph.Result
	pe, native := proc.(processor.ParagraphExtractor)
	switch {
	case native:
		styled, err := pe.ExtractStyledParagraphs(ctx, doc)
		if err != nil {
			return nil, fail(err)
		}
		paras = c.paragraphs.FromParagraphs(styled)
	case len(p.spans) > 0:
		paras = c.paragraphs.FromSpans(p.spans)
	default:
		paras = c.paragraphs.FromBlocks([]models.TextBlock{{
			Page:  1,
			Spans: []models.TextSpan{{Text: text, Page: 1}},
		}})
	}
	p.blocks = paras.Blocks
	p.info.Paragraphs = len(paras.Blocks)
	p.info.Skipped = paras.Skipped

	c.logger.Debug("document prepared",
		"side", side,
		"path", doc.Path,
		"format", format,
		"method", ext.Method,
		"spans", len(p.spans),
		"paragraphs", len(p.blocks))

	return p, nil
}

// ocrFallback re-extracts through OCR when the text layer looks unusable and
// the processor and configuration allow it. A failed OCR keeps the text
// layer when it has any content.
func (c *Comparator) ocrFallback(ctx context.Context, proc processor.TextExtractor, doc models.Document, ext processor.Extraction) (processor.Extraction, error) {
	if ext.Method == models.MethodOCR || !ext.Quality.NeedsOCR() {
		return ext, nil
	}

	ocr, ok := proc.(processor.OCRExtractor)
	if !ok || !c.cfg.OCR.Enabled {
		c.logger.Warn("text layer looks unusable and ocr is disabled", "path", doc.Path, "chars", ext.Quality.TextLength)
		return ext, nil
	}

	c.logger.Warn("text layer looks unusable, falling back to ocr", "path", doc.Path, "chars", ext.Quality.TextLength, "printable_ratio", ext.Quality.PrintableRatio)
	ocrExt, err := ocr.ExtractOCRText(ctx, doc)
	if err != nil {
		if strings.TrimSpace(ext.Text) == "" || errors.Is(err, context.DeadlineExceeded) {
			return ext, fmt.Errorf("failed to ocr document: %w", err)
		}
		c.logger.Warn("ocr failed, keeping text layer", "path", doc.Path, "error", err)
		return ext, nil
	}
	return ocrExt, nil
}

// normalizeText converts line endings to "\n" and composes Unicode to NFC
// so that identical glyphs compare equal.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// blockMap keys paragraph blocks by their ordinal index.
func blockMap(blocks []models.ParagraphBlock) models.SectionMap {
	m := make(models.SectionMap, len(blocks))
	for _, b := range blocks {
		m[models.SectionKey(strconv.Itoa(b.Index))] = b.Text
	}
	return m
}

func scorePairs(pairs []models.AlignedPair) []models.UnitResult {
	results := make([]models.UnitResult, 0, len(pairs))
	for _, p := range pairs {
		results = append(results, models.UnitResult{
			Key:    p.Key,
			Score:  similarity.Compute(p.ContentA, p.ContentB),
			Cosine: similarity.Cosine(p.ContentA, p.ContentB),
		})
	}
	return results
}
