// Package extract turns raw PDF bytes into ordered per-page plain text.
//
// Extraction is a pure transformation: no I/O, no retained state. Layout
// fidelity and OCR are out of scope; a PDF without a parseable text layer
// fails with ErrNoTextLayer.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
)

// MaxFileSize is the hard limit for extraction input (50MB).
const MaxFileSize = 50 * 1024 * 1024

// ErrNoTextLayer indicates the PDF contains no parseable text.
var ErrNoTextLayer = errors.New("document has no parseable text layer")

// ErrFileTooLarge indicates the input exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("document exceeds size limit")

// Page is one page of extracted text. Pages with no text are dropped, so
// Number values may be non-contiguous while remaining strictly increasing.
type Page struct {
	Number int32
	Text   string
}

// Document is the result of text extraction.
type Document struct {
	// Pages holds the non-empty pages in document order.
	Pages []Page

	// PageCount is the total page count of the source PDF, including pages
	// that were dropped for having no text.
	PageCount int32

	// Text is the concatenation of all page texts.
	Text string
}

// Extract parses PDF bytes into per-page text.
// Returns ErrNoTextLayer when the PDF yields no text at all.
func Extract(data []byte) (doc *Document, err error) {
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(data))
	}

	// The parser panics on some malformed cross-reference tables; surface
	// that as a normal extraction error instead of crashing the pipeline.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: parser failure: %v", ErrNoTextLayer, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTextLayer, err)
	}

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	var all strings.Builder

	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not invalidate the document.
			continue
		}

		text = normalize(text)
		if text == "" {
			continue
		}

		pages = append(pages, Page{Number: int32(num), Text: text}) // #nosec G115 -- page counts are small
		if all.Len() > 0 {
			all.WriteString("\n\n")
		}
		all.WriteString(text)
	}

	if len(pages) == 0 {
		return nil, ErrNoTextLayer
	}

	return &Document{
		Pages:     pages,
		PageCount: int32(total), // #nosec G115 -- page counts are small
		Text:      all.String(),
	}, nil
}

// normalize collapses runs of horizontal whitespace and trims the page.
// PDF text extraction tends to produce stray spacing around glyph runs;
// paragraph breaks (double newlines) are preserved for the chunker.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
