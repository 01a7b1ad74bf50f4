package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPages(t *testing.T) {
	assert.Equal(t, "page one\npage two\n", joinPages([]string{"page one", "page two"}))
	assert.Equal(t, "\nafter blank\n", joinPages([]string{"", "after blank"}))
	assert.Empty(t, joinPages(nil))
}

func TestExtractText_RejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("Patient reports fever and cough.\n"), 0o600))

	_, err := NewPDFExtractor().ExtractText(context.Background(), path)
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, path, xerr.Path)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractText_Missing(t *testing.T) {
	_, err := NewPDFExtractor().ExtractText(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractText_Directory(t *testing.T) {
	_, err := NewPDFExtractor().ExtractText(context.Background(), t.TempDir())
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
}

func TestExtractText_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.pdf")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o600))

	x := &PDFExtractor{MaxSize: 16}
	_, err := x.ExtractText(context.Background(), path)
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
}

func TestExtractText_TruncatedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"), 0o600))

	_, err := NewPDFExtractor().ExtractText(context.Background(), path)
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
}
