// Package paragraph turns extracted spans or native paragraphs into numbered
// paragraph blocks.
package paragraph

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"doc-compare/internal/config"
	"doc-compare/internal/models"
	"doc-compare/internal/textlayout"
)

var (
	// (1) blank-line-delimited runs
	blankLineRe = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
	// (2) sentence end, two or more spaces, then a capital letter
	sentenceGapRe = regexp.MustCompile(`[.!?][ \t]{2,}\p{Lu}`)
	// (3) newline followed by a capital letter
	newlineCapRe = regexp.MustCompile(`\n[ \t]*\p{Lu}`)
	// sentence boundaries used by the re-chunking fallback
	sentenceEndRe = regexp.MustCompile(`[.!?]+["'’)\]]*\s+`)
)

// Result is the outcome of one extraction.
type Result struct {
	Blocks []models.ParagraphBlock
	// Skipped counts fragments dropped for being empty or shorter than MinLength.
	Skipped int
}

// Extractor builds paragraph blocks.
type Extractor struct {
	cfg config.ParagraphConfig
	// lineTolerance is the Y rounding used to rebuild lines from spans.
	lineTolerance float64
	logger        *slog.Logger
}

// New creates an Extractor. Lines are rebuilt from spans with the layout
// line tolerance. A nil logger uses slog.Default().
func New(cfg config.ParagraphConfig, layout config.LayoutConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, lineTolerance: layout.LineTolerance, logger: logger}
}

// FromSpans groups a positioned span stream into visual blocks and splits them into paragraphs.
func (e *Extractor) FromSpans(spans []models.PositionedSpan) Result {
	return e.FromBlocks(e.BuildBlocks(spans))
}

// FromBlocks merges the spans of each block and splits the merged text into paragraphs.
func (e *Extractor) FromBlocks(blocks []models.TextBlock) Result {
	var res Result
	for _, block := range blocks {
		var sb strings.Builder
		for _, span := range block.Spans {
			sb.WriteString(span.Text)
		}

		page := block.Page
		if page < 1 {
			page = 1
		}
		for _, text := range e.SplitParagraphs(sb.String()) {
			if utf8.RuneCountInString(text) < e.cfg.MinLength {
				res.Skipped++
				continue
			}
			res.Blocks = append(res.Blocks, models.ParagraphBlock{
				Text:  text,
				Page:  page,
				Index: len(res.Blocks) + 1,
			})
		}
	}

	e.logger.Debug("paragraphs extracted from blocks", "blocks", len(blocks), "paragraphs", len(res.Blocks), "skipped", res.Skipped)
	return res
}

// FromParagraphs numbers native paragraphs. Text passes through unchanged;
// the page is always 1 since these formats have no page concept.
func (e *Extractor) FromParagraphs(paras []models.StyledParagraph) Result {
	var res Result
	for _, p := range paras {
		if strings.TrimSpace(p.Text) == "" || utf8.RuneCountInString(p.Text) < e.cfg.MinLength {
			res.Skipped++
			continue
		}
		res.Blocks = append(res.Blocks, models.ParagraphBlock{
			Text:  p.Text,
			Page:  1,
			Index: len(res.Blocks) + 1,
			Style: p.Style,
		})
	}

	e.logger.Debug("paragraphs extracted from source paragraphs", "paragraphs", len(res.Blocks), "skipped", res.Skipped)
	return res
}

// SplitParagraphs divides the text of one block into paragraphs. The first
// rule that applies wins: blank lines, a sentence end followed by several
// spaces and a capital, a newline followed by a capital. Pieces still longer
// than SplitThreshold (or the whole block when no rule applied) are re-chunked
// sentence by sentence. Whitespace is collapsed in the returned paragraphs.
func (e *Extractor) SplitParagraphs(text string) []string {
	var pieces []string
	switch {
	case blankLineRe.MatchString(text):
		pieces = blankLineRe.Split(text, -1)
	case sentenceGapRe.MatchString(text):
		pieces = cutAfter(text, sentenceGapRe.FindAllStringIndex(text, -1), 1)
	case newlineCapRe.MatchString(text):
		pieces = cutAfter(text, newlineCapRe.FindAllStringIndex(text, -1), 0)
	default:
		pieces = []string{text}
	}

	var out []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) > e.cfg.SplitThreshold {
			out = append(out, e.rechunk(piece)...)
			continue
		}
		if p := normalizeWhitespace(piece); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cutAfter splits text at offset bytes past the start of each match.
func cutAfter(text string, matches [][]int, offset int) []string {
	var pieces []string
	prev := 0
	for _, m := range matches {
		cut := m[0] + offset
		pieces = append(pieces, text[prev:cut])
		prev = cut
	}
	return append(pieces, text[prev:])
}

// rechunk greedily packs sentences into chunks of about ChunkSize runes.
func (e *Extractor) rechunk(text string) []string {
	var sentences []string
	prev := 0
	for _, m := range sentenceEndRe.FindAllStringIndex(text, -1) {
		sentences = append(sentences, text[prev:m[1]])
		prev = m[1]
	}
	if prev < len(text) {
		sentences = append(sentences, text[prev:])
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if c := normalizeWhitespace(current.String()); c != "" {
			chunks = append(chunks, c)
		}
		current.Reset()
	}

	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+n > e.cfg.ChunkSize {
			flush()
		}
		if n > e.cfg.SplitThreshold {
			// a sentence with no usable boundary is cut on word boundaries
			for _, part := range splitWords(s, e.cfg.ChunkSize) {
				chunks = append(chunks, part)
			}
			continue
		}
		current.WriteString(s)
	}
	flush()

	return chunks
}

func splitWords(text string, size int) []string {
	var parts []string
	var current []string
	length := 0
	for _, w := range strings.Fields(text) {
		n := utf8.RuneCountInString(w)
		if length > 0 && length+1+n > size {
			parts = append(parts, strings.Join(current, " "))
			current, length = nil, 0
		}
		if length > 0 {
			length++
		}
		current = append(current, w)
		length += n
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	return parts
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// BuildBlocks groups positioned spans into visual blocks. Lines come from
// textlayout.GroupLines; a page change or a vertical gap larger than
// BlockGapFactor times the median line pitch starts a new block.
func (e *Extractor) BuildBlocks(spans []models.PositionedSpan) []models.TextBlock {
	lines := textlayout.GroupLines(spans, e.lineTolerance)
	if len(lines) == 0 {
		return nil
	}

	maxGap := e.cfg.BlockGapFactor * medianPitch(lines)

	var blocks []models.TextBlock
	var current *models.TextBlock
	for i, line := range lines {
		newBlock := current == nil || line.Page != current.Page
		if !newBlock && maxGap > 0 && line.Y-lines[i-1].Y > maxGap {
			newBlock = true
		}
		if newBlock {
			blocks = append(blocks, models.TextBlock{Page: line.Page})
			current = &blocks[len(blocks)-1]
		} else {
			appendText(current, "\n", lines[i-1].Spans[len(lines[i-1].Spans)-1].Size)
		}
		for _, s := range line.Spans {
			appendText(current, s.Text, s.Size)
		}
	}

	return blocks
}

// appendText extends the last span when the size matches, else starts a new span.
func appendText(block *models.TextBlock, text string, size float64) {
	if n := len(block.Spans); n > 0 && block.Spans[n-1].Size == size {
		block.Spans[n-1].Text += text
		return
	}
	block.Spans = append(block.Spans, models.TextSpan{Text: text, Size: size, Page: block.Page})
}

func medianPitch(lines []textlayout.Line) float64 {
	var gaps []float64
	for i := 1; i < len(lines); i++ {
		if lines[i].Page == lines[i-1].Page {
			if d := lines[i].Y - lines[i-1].Y; d > 0 {
				gaps = append(gaps, d)
			}
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	return gaps[len(gaps)/2]
}
