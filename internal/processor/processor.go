// Package processor extracts text, positioned spans and styled paragraphs
// from source documents.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"doc-compare/internal/config"
	"doc-compare/internal/models"
)

// Format identifies a document type
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDocx  Format = "docx"
	FormatHTML  Format = "html"
	FormatText  Format = "txt"
	FormatImage Format = "image"
)

// Extraction is the plain text of a document together with how it was
// obtained. Quality is only set for sources with a text layer that may be
// missing or garbled.
type Extraction struct {
	Text    string
	Quality *models.ExtractionQuality
	Method  models.ExtractionMethod
}

// TextExtractor returns the plain text of a document. Every processor implements it.
type TextExtractor interface {
	ExtractPlainText(ctx context.Context, doc models.Document) (Extraction, error)
}

// SpanExtractor returns the positioned glyph stream of a document.
type SpanExtractor interface {
	ExtractPositionedSpans(ctx context.Context, doc models.Document) ([]models.PositionedSpan, error)
}

// ParagraphExtractor returns the native paragraphs of a document.
type ParagraphExtractor interface {
	ExtractStyledParagraphs(ctx context.Context, doc models.Document) ([]models.StyledParagraph, error)
}

// OCRExtractor re-extracts the text of a document through OCR.
type OCRExtractor interface {
	ExtractOCRText(ctx context.Context, doc models.Document) (Extraction, error)
}

// Detect returns the document format based on file extension.
func Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDocx, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".txt", ".text", ".md":
		return FormatText, nil
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return FormatImage, nil
	default:
		return "", &models.UnsupportedFormatError{Path: path, Ext: ext}
	}
}

// CheckSize rejects files larger than maxMB megabytes.
func CheckSize(path string, maxMB int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if limit := int64(maxMB) << 20; maxMB > 0 && info.Size() > limit {
		return fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), limit)
	}
	return nil
}

// Registry maps formats to processors
type Registry struct {
	processors map[Format]TextExtractor
}

// NewRegistry registers the processor of every supported format. The OCR
// engine is only wired when cfg.OCR.Enabled is set.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	var ocr OCREngine
	if cfg.OCR.Enabled {
		ocr = NewTesseractEngine(cfg.OCR)
	}

	r := &Registry{processors: make(map[Format]TextExtractor)}
	r.Register(FormatPDF, NewPDFProcessor(cfg.Extraction.ScanFallbackChars, ocr, logger))
	r.Register(FormatDocx, NewDocxProcessor())
	r.Register(FormatHTML, NewHTMLProcessor())
	r.Register(FormatText, NewTextProcessor())
	r.Register(FormatImage, NewImageProcessor(ocr))
	return r
}

// Register adds or replaces the processor of a format
func (r *Registry) Register(format Format, p TextExtractor) {
	r.processors[format] = p
}

// Lookup detects the format of path and returns its processor
func (r *Registry) Lookup(path string) (Format, TextExtractor, error) {
	format, err := Detect(path)
	if err != nil {
		return "", nil, err
	}
	p, ok := r.processors[format]
	if !ok {
		return "", nil, &models.UnsupportedFormatError{Path: path, Ext: strings.ToLower(filepath.Ext(path))}
	}
	return format, p, nil
}
