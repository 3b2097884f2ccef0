package models

import (
	"errors"
	"fmt"
)

// ErrEmptyText is wrapped by ExtractionError when a source yields no usable text.
var ErrEmptyText = errors.New("extracted text is empty or too short")

// Side names one of the two documents of a comparison
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// ExtractionError reports that the text of one document could not be obtained
type ExtractionError struct {
	Side Side
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("extraction failed for document %s (%s): %v", e.Side, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a source type no processor recognizes
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q for %s", e.Ext, e.Path)
}
