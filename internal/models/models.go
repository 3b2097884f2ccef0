package models

import "time"

// TextSpan is a contiguous run of text sharing one typographic size on one page
type TextSpan struct {
	Text string  `json:"text"`
	Size float64 `json:"size"`
	Page int     `json:"page"`
}

// PositionedSpan is a span (usually a single glyph) with its position on the page.
// Y is measured from the top of the page, so reading order is ascending Y.
type PositionedSpan struct {
	TextSpan
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextBlock groups the spans of one visual block. Line breaks inside the
// block are carried as "\n" in the span text.
type TextBlock struct {
	Page  int        `json:"page"`
	Spans []TextSpan `json:"spans"`
}

// StyledParagraph is a paragraph as delivered by formats that carry native
// paragraph boundaries (DOCX, HTML, plain text)
type StyledParagraph struct {
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

// ParagraphBlock is the smallest structural unit below a section
type ParagraphBlock struct {
	Text  string `json:"text"`
	Page  int    `json:"page"`
	Index int    `json:"index"`
	Style string `json:"style,omitempty"`
}

// SectionKey identifies a structural unit: a numeric path ("1", "2.1.3")
// or a synthetic ordinal ("1.", "2.")
type SectionKey string

// SectionMap maps a section key to the section content
type SectionMap map[SectionKey]string

// Keys returns the keys of the map in no particular order
func (m SectionMap) Keys() []SectionKey {
	keys := make([]SectionKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// AlignedPair holds the content of one key present in both documents
type AlignedPair struct {
	Key      SectionKey `json:"key"`
	ContentA string     `json:"content_a"`
	ContentB string     `json:"content_b"`
}

// Score is the edit-distance comparison of two texts
type Score struct {
	Distance   int     `json:"distance"`
	Similarity float64 `json:"similarity"`
	LengthA    int     `json:"length_a"`
	LengthB    int     `json:"length_b"`
}

// UnitResult is the score of one aligned section or paragraph
type UnitResult struct {
	Key SectionKey `json:"key"`
	Score
	Cosine float64 `json:"cosine"`
}

// ExtractionMethod records how the text of a document was obtained
type ExtractionMethod string

const (
	MethodTextLayer ExtractionMethod = "text-layer"
	MethodOCR       ExtractionMethod = "ocr"
	MethodNative    ExtractionMethod = "native"
)

// DocumentInfo describes one side of a comparison
type DocumentInfo struct {
	Name       string             `json:"name"`
	Format     string             `json:"format"`
	Method     ExtractionMethod   `json:"method"`
	Quality    *ExtractionQuality `json:"quality,omitempty"`
	Paragraphs int                `json:"paragraphs"`
	Sections   int                `json:"sections"`
	Skipped    int                `json:"skipped"`
}

// ComparisonResult is the outcome of comparing two documents
type ComparisonResult struct {
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Strategy  string    `json:"strategy"`

	Score
	UnitResults      []UnitResult `json:"unit_results"`
	ParagraphResults []UnitResult `json:"paragraph_results,omitempty"`

	OnlyInA []SectionKey `json:"only_in_a,omitempty"`
	OnlyInB []SectionKey `json:"only_in_b,omitempty"`

	DocumentA DocumentInfo `json:"document_a"`
	DocumentB DocumentInfo `json:"document_b"`
}

// DiffOp tags a token of a rendered diff
type DiffOp string

const (
	DiffEqual   DiffOp = "equal"
	DiffRemoved DiffOp = "removed"
	DiffAdded   DiffOp = "added"
)

// DiffToken is one annotated token of a diff
type DiffToken struct {
	Op   DiffOp `json:"op"`
	Text string `json:"text"`
}

// Document is a source file to compare
type Document struct {
	Path string `json:"path"`
	// Name is the display name; defaults to the base name of Path.
	Name string `json:"name,omitempty"`
}

// ComparisonSummary is a stored comparison as listed in the history
type ComparisonSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Strategy   string    `json:"strategy"`
	NameA      string    `json:"name_a"`
	NameB      string    `json:"name_b"`
	Distance   int       `json:"distance"`
	Similarity float64   `json:"similarity"`
}
