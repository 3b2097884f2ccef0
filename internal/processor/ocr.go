package processor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"doc-compare/internal/config"
	"doc-compare/internal/models"
)

// OCREngine turns an image file into text
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// TesseractEngine runs the tesseract command line tool
type TesseractEngine struct {
	Command   string
	Languages string
	Args      []string
}

// NewTesseractEngine creates an engine from the ocr configuration
func NewTesseractEngine(cfg config.OCRConfig) *TesseractEngine {
	return &TesseractEngine{Command: cfg.Command, Languages: cfg.Languages, Args: cfg.Args}
}

// commandArgs builds "IMAGE stdout [args] -l LANGS".
func (t *TesseractEngine) commandArgs(imagePath string) []string {
	args := []string{imagePath, "stdout"}
	args = append(args, t.Args...)
	if t.Languages != "" {
		args = append(args, "-l", t.Languages)
	}
	return args
}

// Recognize runs tesseract on one image. The subprocess is killed when ctx ends.
func (t *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, t.Command, t.commandArgs(imagePath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("failed to run %s: %w: %s", t.Command, err, msg)
		}
		return "", fmt.Errorf("failed to run %s: %w", t.Command, err)
	}
	return string(out), nil
}

// ImageProcessor extracts the text of a scanned image through OCR
type ImageProcessor struct {
	ocr OCREngine
}

// NewImageProcessor creates an image processor. Without an engine every extraction fails.
func NewImageProcessor(ocr OCREngine) *ImageProcessor {
	return &ImageProcessor{ocr: ocr}
}

func (p *ImageProcessor) ExtractPlainText(ctx context.Context, doc models.Document) (Extraction, error) {
	if p.ocr == nil {
		return Extraction{}, fmt.Errorf("ocr is not enabled, cannot read image %s", doc.Path)
	}
	text, err := p.ocr.Recognize(ctx, doc.Path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to recognize image: %w", err)
	}
	return Extraction{Text: text, Method: models.MethodOCR}, nil
}
