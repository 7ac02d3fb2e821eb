package pdfutil

import (
	"errors"
	"fmt"
	"io"

	pdf "github.com/ledongthuc/pdf"
)

// ContentType is the sniffed MIME type that triggers PDF validation.
const ContentType = "application/pdf"

// ErrNoPages is returned for a structurally valid PDF without pages.
var ErrNoPages = errors.New("pdf has no pages")

// PageCount opens the PDF with ledongthuc/pdf and returns its number of pages.
// The parser panics on some malformed inputs, so panics become errors.
func PageCount(r io.ReaderAt, size int64) (pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = 0
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("new pdf reader: %w", err)
	}
	pages = doc.NumPage()
	if pages == 0 {
		return 0, ErrNoPages
	}
	return pages, nil
}
