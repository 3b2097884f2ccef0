package processor

import (
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"doc-compare/internal/models"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// readPDFContext parses and validates a PDF with pdfcpu.
func readPDFContext(path string) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
}

// textQuality scores extracted text. pageCount and hasImages come from the
// PDF structure; minChars is the trimmed length under which the text layer
// counts as missing. PrintableRatio is the share of runes that are not
// unreadable glyphs; WordlikeRatio is the share of whitespace-separated
// tokens 2 to 15 runes long.
func textQuality(text string, pageCount int, hasImages bool, minChars int) *models.ExtractionQuality {
	q := &models.ExtractionQuality{
		PageCount:       pageCount,
		HasImageStreams: hasImages,
		TextLength:      utf8.RuneCountInString(strings.TrimSpace(text)),
		MinChars:        minChars,
		PrintableRatio:  1,
	}
	if pageCount > 0 {
		q.CharsPerPage = float64(q.TextLength) / float64(pageCount)
	}

	var runes, unreadable, tokens, words, tokenLen int
	endToken := func() {
		if tokenLen == 0 {
			return
		}
		tokens++
		if tokenLen >= 2 && tokenLen <= 15 {
			words++
		}
		tokenLen = 0
	}
	for _, r := range text {
		runes++
		if unreadableGlyph(r) {
			unreadable++
		}
		if unicode.IsSpace(r) {
			endToken()
		} else {
			tokenLen++
		}
	}
	endToken()

	if runes > 0 {
		q.PrintableRatio = float64(runes-unreadable) / float64(runes)
	}
	if tokens > 0 {
		q.WordlikeRatio = float64(words) / float64(tokens)
	}
	return q
}

// unreadableGlyph reports runes a text layer yields for glyphs it cannot map
// to Unicode: private use code points, U+FFFD and non-whitespace controls.
func unreadableGlyph(r rune) bool {
	return r == utf8.RuneError || unicode.Is(unicode.Co, r) || (unicode.IsControl(r) && !unicode.IsSpace(r))
}

// detectImageStreams checks if the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	// scan the xref table for image subtypes
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
