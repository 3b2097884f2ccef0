package processor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"doc-compare/internal/models"
)

// DocxProcessor reads word/document.xml out of a .docx archive
type DocxProcessor struct{}

// NewDocxProcessor creates a docx processor
func NewDocxProcessor() *DocxProcessor { return &DocxProcessor{} }

// ExtractPlainText returns the paragraphs joined by newlines
func (p *DocxProcessor) ExtractPlainText(ctx context.Context, doc models.Document) (Extraction, error) {
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

// ExtractStyledParagraphs returns every w:p in body order with its w:pStyle.
// Empty paragraphs are kept; the paragraph extractor drops and counts them.
func (p *DocxProcessor) ExtractStyledParagraphs(_ context.Context, doc models.Document) ([]models.StyledParagraph, error) {
	r, err := zip.OpenReader(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	return parseDocumentXML(rc)
}

func parseDocumentXML(r io.Reader) ([]models.StyledParagraph, error) {
	decoder := xml.NewDecoder(r)

	var paras []models.StyledParagraph
	var current strings.Builder
	var style string
	inParagraph, inRun, inText := false, false, false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
				style = ""
			case "pStyle":
				if inParagraph {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							style = attr.Value
						}
					}
				}
			case "r":
				inRun = inParagraph
			case "t":
				inText = inRun
			case "tab":
				// w:tab also declares tab stops in w:pPr; only run tabs are text
				if inRun {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					current.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				current.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				inRun = false
			case "p":
				if inParagraph {
					paras = append(paras, models.StyledParagraph{Text: current.String(), Style: style})
					inParagraph = false
				}
			}
		}
	}

	return paras, nil
}
