package segment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"doc-compare/internal/config"
	"doc-compare/internal/llm"
	"doc-compare/internal/models"
	"doc-compare/internal/textlayout"
)

// SectionDetector asks a language model for the sections of a document.
// *llm.OllamaLLM implements it.
type SectionDetector interface {
	DetectSections(ctx context.Context, lines []string) ([]llm.Section, error)
}

// LLM segments a document by asking a model to group size-annotated lines
type LLM struct {
	detector      SectionDetector
	lineTolerance float64
	logger        *slog.Logger
}

// NewLLM creates the llm segmenter. Lines are rebuilt from spans with
// cfg.LineTolerance.
func NewLLM(detector SectionDetector, cfg config.LayoutConfig, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{detector: detector, lineTolerance: cfg.LineTolerance, logger: logger}
}

func (*LLM) Strategy() Strategy { return StrategyLLM }

// Segment keys the returned sections "1.", "2.", ... in answer order. A
// failed call or an unusable answer yields an empty map.
func (s *LLM) Segment(ctx context.Context, in Input) (Result, error) {
	res := Result{Sections: models.SectionMap{}}

	lines := annotatedLines(in, s.lineTolerance)
	if len(lines) == 0 {
		return res, nil
	}

	sections, err := s.detector.DetectSections(ctx, lines)
	if err != nil {
		s.logger.Warn("llm segmentation failed, no sections", "error", err)
		return res, nil
	}

	count := 0
	for _, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		content := strings.TrimSpace(sec.Content)
		if title == "" && content == "" {
			res.Skipped++
			continue
		}
		count++
		key := models.SectionKey(fmt.Sprintf("%d.", count))
		switch {
		case title == "":
			res.Sections[key] = content
		case content == "":
			res.Sections[key] = title
		default:
			res.Sections[key] = title + "\n" + content
		}
	}

	return res, nil
}

// annotatedLines renders each line as "[size=S] text", S being the average
// glyph size of the line. Without spans the plain text lines are used as is.
func annotatedLines(in Input, tolerance float64) []string {
	var out []string
	if len(in.Spans) == 0 {
		for _, line := range strings.Split(in.Text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	}

	for _, line := range textlayout.GroupLines(in.Spans, tolerance) {
		text := strings.TrimSpace(line.Text())
		if text == "" {
			continue
		}
		var sum float64
		var n int
		for _, s := range line.Spans {
			if strings.TrimSpace(s.Text) != "" {
				sum += s.Size
				n++
			}
		}
		size := strconv.FormatFloat(sum/float64(n), 'f', 1, 64)
		out = append(out, "[size="+size+"] "+text)
	}
	return out
}
