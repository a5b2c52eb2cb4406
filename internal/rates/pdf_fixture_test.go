package rates

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTextPDF writes a minimal uncompressed PDF with one page per entry in
// pages, each showing its text with a single Tj operator.
func writeTextPDF(t *testing.T, pages ...string) string {
	t.Helper()

	n := len(pages)
	// Objects: 1 catalog, 2 page tree, 3 font, then a page and a content
	// stream per input page.
	var objs []string
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 10 Tf 20 700 Td (%s) Tj ET", strings.ReplaceAll(text, "\n", " "))
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), "rates.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf fixture: %v", err)
	}
	return path
}

// rateText renders n rows the way the document's text layer does: the desi
// digits run straight into the first price of the row.
func rateText(n int) string {
	var b strings.Builder
	for d := 0; d < n; d++ {
		fmt.Fprintf(&b, "%d", d)
		for c := 0; c < 10; c++ {
			fmt.Fprintf(&b, "%d,%02d ", 40+d+c, c*5)
		}
		b.WriteString("\n")
	}
	return b.String()
}
