package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

// buildPDF writes a minimal uncompressed PDF with one text line per page.
func buildPDF(pages ...string) []byte {
	var objs []string
	n := len(pages)
	// 1 catalog, 2 pages, 3 font, then page/content pairs
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
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
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestExtract_PlainText(t *testing.T) {
	doc, err := Extract("notes.TXT", []byte("  Line one.\r\nLine two.\n"))
	require.NoError(t, err)
	assert.Equal(t, "notes.TXT", doc.Source)
	assert.Equal(t, []string{"Line one.\nLine two."}, doc.Sections)
	assert.Empty(t, doc.ID)
}

func TestExtract_Markdown(t *testing.T) {
	doc, err := Extract("readme.md", []byte("# Title\n\nBody."))
	require.NoError(t, err)
	assert.Equal(t, []string{"# Title\n\nBody."}, doc.Sections)
}

func TestExtract_PDFPerPage(t *testing.T) {
	data := buildPDF("Paris is the capital of France.", "The Louvre is a famous museum.")
	doc, err := Extract("city.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris is the capital of France.", "The Louvre is a famous museum."}, doc.Sections)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract("report.docx", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.False(t, Supported("report.docx"))
	assert.True(t, Supported("a.PDF"))
}

func TestExtract_BrokenPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("definitely not a pdf"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello there."), 0o644))

	doc, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", doc.Source)
	assert.Equal(t, []string{"Hello there."}, doc.Sections)

	_, err = File(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = File(filepath.Join(dir, "image.png"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestText(t *testing.T) {
	doc := Text("body", " raw text ")
	assert.Equal(t, []string{"raw text"}, doc.Sections)
	assert.Equal(t, "body", doc.Source)
}
