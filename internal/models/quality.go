package models

// ExtractionQuality captures metrics about how well text was extracted from a source.
type ExtractionQuality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
	TextLength      int     `json:"text_length"`
	// MinChars is the trimmed length under which the text layer counts as missing.
	MinChars int `json:"min_chars"`
}

// NeedsOCR returns true if the text layer is too thin or too garbled to be trusted.
func (q *ExtractionQuality) NeedsOCR() bool {
	if q == nil {
		return false
	}
	if q.TextLength < q.MinChars {
		return true
	}
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}
