package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// PdfFromPages builds a minimal single-font pdf whose page content
// streams are given verbatim. cross reference offsets are computed
// while writing, so the output stays valid as fixtures change.
func PdfFromPages(t testing.TB, pages ...string) []byte {
	t.Helper()
	if len(pages) == 0 {
		t.Fatal("a pdf needs at least one page")
	}

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), len(pages)))
	obj("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	for i, content := range pages {
		pageNum, contentNum := 4+2*i, 5+2*i
		obj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>\nendobj\n",
			pageNum, contentNum))
		obj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			contentNum, len(content), content))
	}

	xref := buf.Len()
	size := len(offsets) + 1
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", size))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\n", size))
	buf.WriteString(fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xref))
	return buf.Bytes()
}

// PdfPage wraps positioned text runs in a text object with a 10pt
// font, for use as a PdfFromPages content stream.
func PdfPage(runs ...string) string {
	return "BT\n/F1 10 Tf\n" + strings.Join(runs, "") + "ET"
}

// PdfTextRun places one text run at (x, y) in page space. the string
// must not carry unbalanced parentheses or backslashes.
func PdfTextRun(x, y float64, s string) string {
	return fmt.Sprintf("1 0 0 1 %g %g Tm (%s) Tj\n", x, y, s)
}
