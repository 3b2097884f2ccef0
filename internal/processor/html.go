package processor

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"doc-compare/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// HTMLProcessor isolates the main content of a page with go-readability
// and reads its headings, paragraphs and list items with goquery.
type HTMLProcessor struct{}

// NewHTMLProcessor creates an html processor
func NewHTMLProcessor() *HTMLProcessor { return &HTMLProcessor{} }

func (p *HTMLProcessor) ExtractPlainText(ctx context.Context, doc models.Document) (Extraction, error) {
	paras, err := p.ExtractStyledParagraphs(ctx, doc)
	if err != nil {
		return Extraction{}, err
	}
	texts := make([]string, len(paras))
	for i, para := range paras {
		texts[i] = para.Text
	}
	return Extraction{Text: strings.Join(texts, "\n"), Method: models.MethodNative}, nil
}

// ExtractStyledParagraphs returns one paragraph per h1-h6, p or li element,
// styled with the tag name. Pages readability cannot make sense of are read whole.
func (p *HTMLProcessor) ExtractStyledParagraphs(_ context.Context, doc models.Document) ([]models.StyledParagraph, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read html: %w", err)
	}
	return parseHTML(data, doc.Path)
}

func parseHTML(data []byte, path string) ([]models.StyledParagraph, error) {
	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}

	content := string(data)
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(data), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		content = article.Content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var paras []models.StyledParagraph
	doc.Find("h1,h2,h3,h4,h5,h6,p,li").Each(func(_ int, s *goquery.Selection) {
		// a paragraph nested in a list item is read with the item
		if goquery.NodeName(s) == "p" && s.ParentsFiltered("li").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		paras = append(paras, models.StyledParagraph{Text: text, Style: goquery.NodeName(s)})
	})

	return paras, nil
}
