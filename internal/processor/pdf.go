package processor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"doc-compare/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

const (
	// letter height, used when a page has no readable MediaBox
	defaultPageHeight = 792.0
	// a horizontal gap wider than this share of the font size separates words
	wordGapFactor = 0.3
)

// PDFProcessor handles PDF processing
type PDFProcessor struct {
	// MinChars is the trimmed text length under which the text layer counts as missing.
	MinChars int
	ocr      OCREngine
	logger   *slog.Logger
}

// NewPDFProcessor creates a new PDF processor. ocr may be nil.
func NewPDFProcessor(minChars int, ocr OCREngine, logger *slog.Logger) *PDFProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFProcessor{MinChars: minChars, ocr: ocr, logger: logger}
}

// ExtractPlainText extracts the text layer page by page, pages joined by a newline
func (p *PDFProcessor) ExtractPlainText(ctx context.Context, doc models.Document) (Extraction, error) {
	start := time.Now()

	f, r, err := pdf.Open(doc.Path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Extraction{}, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Extraction{}, fmt.Errorf("failed to extract plain text of page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	text := strings.Join(pages, "\n")

	quality := p.quality(doc.Path, text, r.NumPage())
	p.logger.Debug("pdf text layer extracted", "path", doc.Path, "pages", r.NumPage(), "chars", quality.TextLength, "elapsed", time.Since(start))

	return Extraction{Text: text, Quality: quality, Method: models.MethodTextLayer}, nil
}

// quality scores the text layer; pdfcpu provides the page count and image
// detection, falling back to the ledongthuc page count when it cannot parse the file.
func (p *PDFProcessor) quality(path, text string, pageCount int) *models.ExtractionQuality {
	hasImages := false
	pdfCtx, err := readPDFContext(path)
	if err != nil {
		p.logger.Debug("pdfcpu could not read file, quality without image detection", "path", path, "error", err)
	} else {
		pageCount = pdfCtx.PageCount
		hasImages = detectImageStreams(pdfCtx)
	}
	return textQuality(text, pageCount, hasImages, p.MinChars)
}

// ExtractPositionedSpans returns one span per glyph with a top-origin Y.
// Synthetic " " spans are inserted where the gap between two glyphs of a
// line is wide enough to separate words.
func (p *PDFProcessor) ExtractPositionedSpans(ctx context.Context, doc models.Document) ([]models.PositionedSpan, error) {
	f, r, err := pdf.Open(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var spans []models.PositionedSpan
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		spans = append(spans, pageSpans(page.Content().Text, i, pageHeight(page))...)
	}

	p.logger.Debug("pdf spans extracted", "path", doc.Path, "spans", len(spans))
	return spans, nil
}

func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return defaultPageHeight
	}
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if h <= 0 {
		return defaultPageHeight
	}
	return h
}

func pageSpans(texts []pdf.Text, pageNr int, height float64) []models.PositionedSpan {
	var spans []models.PositionedSpan
	var prev *pdf.Text
	for i := range texts {
		t := texts[i]
		if t.S == "" || t.S == "\n" {
			continue
		}

		if prev != nil && math.Round(prev.Y) == math.Round(t.Y) &&
			strings.TrimSpace(prev.S) != "" && strings.TrimSpace(t.S) != "" {
			gapStart := prev.X + prev.W
			if t.X-gapStart > wordGapFactor*t.FontSize {
				spans = append(spans, models.PositionedSpan{
					TextSpan: models.TextSpan{Text: " ", Size: t.FontSize, Page: pageNr},
					X:        gapStart,
					Y:        height - t.Y,
				})
			}
		}

		spans = append(spans, models.PositionedSpan{
			TextSpan: models.TextSpan{Text: t.S, Size: t.FontSize, Page: pageNr},
			X:        t.X,
			Y:        height - t.Y,
		})
		prev = &texts[i]
	}
	return spans
}

// ExtractOCRText runs OCR over the images embedded in each page. Scanned
// PDFs carry one full-page image per page.
func (p *PDFProcessor) ExtractOCRText(ctx context.Context, doc models.Document) (Extraction, error) {
	if p.ocr == nil {
		return Extraction{}, fmt.Errorf("ocr is not enabled")
	}
	start := time.Now()

	pdfCtx, err := readPDFContext(doc.Path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read PDF: %w", err)
	}

	dir, err := os.MkdirTemp("", "docdiff-ocr-*")
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		images, err := pdfcpu.ExtractPageImages(pdfCtx, pageNr, false)
		if err != nil {
			return Extraction{}, fmt.Errorf("failed to extract images of page %d: %w", pageNr, err)
		}

		objNrs := make([]int, 0, len(images))
		for objNr := range images {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			img := images[objNr]
			path := filepath.Join(dir, fmt.Sprintf("p%d_%d.%s", pageNr, objNr, img.FileType))
			if err := writeImage(path, img); err != nil {
				return Extraction{}, err
			}
			text, err := p.ocr.Recognize(ctx, path)
			if err != nil {
				return Extraction{}, fmt.Errorf("failed to recognize page %d: %w", pageNr, err)
			}
			pages = append(pages, text)
		}
	}

	text := strings.Join(pages, "\n")
	p.logger.Info("pdf ocr done", "path", doc.Path, "pages", pdfCtx.PageCount, "images", len(pages), "elapsed", time.Since(start))

	return Extraction{
		Text:    text,
		Quality: textQuality(text, pdfCtx.PageCount, true, p.MinChars),
		Method:  models.MethodOCR,
	}, nil
}

func writeImage(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return f.Close()
}
