// Package document turns an uploaded report into plain text for symptom
// extraction. Only PDFs are accepted.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"rsc.io/pdf"
)

// MIMEType is the only accepted document type.
const MIMEType = "application/pdf"

// DefaultMaxSize caps the size of a document read into memory.
const DefaultMaxSize = 32 << 20

// ErrUnsupportedType is returned for anything that does not sniff as a PDF.
var ErrUnsupportedType = errors.New("only PDF documents are supported")

// ExtractionError reports a document whose text could not be read. The user
// should type the text in instead.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor reads the text of a document.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PDFExtractor reads PDFs page by page with rsc.io/pdf.
type PDFExtractor struct {
	MaxSize int64
}

// NewPDFExtractor creates an extractor with the default size cap.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{MaxSize: DefaultMaxSize}
}

// ExtractText returns the text of every page in page order, each page
// followed by a newline. Text pieces within a page are joined by spaces.
func (x *PDFExtractor) ExtractText(ctx context.Context, path string) (text string, err error) {
	fail := func(err error) (string, error) {
		return "", &ExtractionError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	if info.IsDir() {
		return fail(errors.New("path is a directory"))
	}
	if x.MaxSize > 0 && info.Size() > x.MaxSize {
		return fail(fmt.Errorf("document is %d bytes, limit is %d", info.Size(), x.MaxSize))
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fail(fmt.Errorf("detect type: %w", err))
	}
	if !mtype.Is(MIMEType) {
		return fail(fmt.Errorf("%w (got %s)", ErrUnsupportedType, mtype.String()))
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	// rsc.io/pdf panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = fail(fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	doc, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return fail(fmt.Errorf("open pdf: %w", err))
	}

	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		p := doc.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content := p.Content()
		parts := make([]string, 0, len(content.Text))
		for _, t := range content.Text {
			parts = append(parts, t.S)
		}
		pages = append(pages, strings.Join(parts, " "))
	}

	text = joinPages(pages)
	if strings.TrimSpace(text) == "" {
		return fail(errors.New("document contains no extractable text"))
	}
	return text, nil
}

func joinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}
