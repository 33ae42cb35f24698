package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestExtractTextReadsPages(t *testing.T) {
	t.Parallel()

	data := buildPDF("Judgment delivered at Nairobi", "Orders accordingly")
	text, err := New(nil).ExtractText(context.Background(), data, 20)
	require.NoError(t, err)
	assert.Contains(t, text, "Judgment delivered at Nairobi")
	assert.Contains(t, text, "Orders accordingly")
}

func TestExtractTextStopsAtMaxPages(t *testing.T) {
	t.Parallel()

	data := buildPDF("First page body", "Second page body", "Third page body")
	text, err := New(nil).ExtractText(context.Background(), data, 1)
	require.NoError(t, err)
	assert.Contains(t, text, "First page body")
	assert.NotContains(t, text, "Second page body")
	assert.NotContains(t, text, "Third page body")
}

func TestExtractTextRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("<html>not a pdf</html>"), {0x00, 0x01, 0x02}} {
		_, err := New(nil).ExtractText(context.Background(), data, 20)
		require.Error(t, err)
		assert.ErrorIs(t, err, crawler.ErrParseFailure)
	}
}

func TestExtractTextRejectsInvalidDocumentBeforeReading(t *testing.T) {
	t.Parallel()

	_, err := New(nil).ExtractText(context.Background(), []byte("%PDF-1.4 not really a pdf"), 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, crawler.ErrParseFailure)
	assert.Contains(t, err.Error(), "validate")
}
