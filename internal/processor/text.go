package processor

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"doc-compare/internal/models"
)

var blankLinesRe = regexp.MustCompile(`\n[ \t]*\n`)

// TextProcessor reads plain text and markdown files
type TextProcessor struct{}

// NewTextProcessor creates a text processor
func NewTextProcessor() *TextProcessor { return &TextProcessor{} }

func (p *TextProcessor) ExtractPlainText(_ context.Context, doc models.Document) (Extraction, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read text file: %w", err)
	}
	return Extraction{Text: string(data), Method: models.MethodNative}, nil
}

// ExtractStyledParagraphs splits the file on blank lines
func (p *TextProcessor) ExtractStyledParagraphs(ctx context.Context, doc models.Document) ([]models.StyledParagraph, error) {
	ext, err := p.ExtractPlainText(ctx, doc)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(ext.Text, "\r\n", "\n")

	var paras []models.StyledParagraph
	for _, chunk := range blankLinesRe.Split(text, -1) {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			paras = append(paras, models.StyledParagraph{Text: chunk})
		}
	}
	return paras, nil
}
