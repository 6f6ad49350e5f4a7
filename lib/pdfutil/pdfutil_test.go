package pdfutil

import (
	"testing"

	"cbslwatch-backend/lib/testutil"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
)

func TestSegmentCells(t *testing.T) {
	// widths known: a small gap joins words with a space, a wide gap
	// opens a new cell
	texts := []pdf.Text{
		{S: "Net", X: 72, W: 16, FontSize: 10},
		{S: "Credit", X: 91, W: 28, FontSize: 10},
		{S: "1,234.5", X: 300, W: 35, FontSize: 10},
	}
	require.Equal(t, []string{"Net Credit", "1,234.5"}, segmentCells(texts))
}

func TestSegmentCellsZeroWidthGlyphs(t *testing.T) {
	// no width table: per glyph positioning advances x by roughly half
	// an em, which must not split the word apart
	texts := []pdf.Text{
		{S: "G", X: 72, W: 0, FontSize: 10},
		{S: "D", X: 77, W: 0, FontSize: 10},
		{S: "P", X: 82, W: 0, FontSize: 10},
		{S: "2", X: 200, W: 0, FontSize: 10},
		{S: ".", X: 205, W: 0, FontSize: 10},
		{S: "1", X: 209, W: 0, FontSize: 10},
	}
	require.Equal(t, []string{"GDP", "2.1"}, segmentCells(texts))
}

func TestSegmentCellsNoFontSize(t *testing.T) {
	texts := []pdf.Text{
		{S: "a", X: 72},
		{S: "b", X: 76},
		{S: "c", X: 120},
	}
	require.Equal(t, []string{"ab", "c"}, segmentCells(texts))
}

func TestCandidateTables(t *testing.T) {
	lines := [][]string{
		{"Monthly Economic Indicators"},
		{"Item", "Value"},
		{"Imports", "1,234.5"},
		{"Exports", "987.6"},
		{"end of the first section"},
		{"lonely", "pair"},
		{"prose between tables"},
		{"A", "B"},
		{"C", "D"},
	}

	tables := CandidateTables(lines)
	require.Len(t, tables, 2)
	require.Equal(t, [][]string{
		{"Item", "Value"},
		{"Imports", "1,234.5"},
		{"Exports", "987.6"},
	}, tables[0])
	require.Equal(t, [][]string{{"A", "B"}, {"C", "D"}}, tables[1])
}

func TestPromoteHeader(t *testing.T) {
	header, body, ok := PromoteHeader([][]string{
		{"Item", "Value"},
		{"Imports", "1,234.5"},
	})
	require.True(t, ok)
	require.Equal(t, []string{"Item", "Value"}, header)
	require.Equal(t, [][]string{{"Imports", "1,234.5"}}, body)

	// one usable cell is not a header
	rows := [][]string{
		{"Imports", ""},
		{"Exports", "987.6"},
	}
	header, body, ok = PromoteHeader(rows)
	require.False(t, ok)
	require.Nil(t, header)
	require.Equal(t, rows, body)

	_, body, ok = PromoteHeader(nil)
	require.False(t, ok)
	require.Empty(t, body)
}

func TestNumericToken(t *testing.T) {
	matching := []string{"1,234.5", "12.3%", "4 567", "-345", "+2.1", "0.5", "112,128"}
	for _, s := range matching {
		require.True(t, NumericToken.MatchString(s), s)
	}
	for _, s := range []string{"", "-", "n.a.", "Total", "(a)"} {
		require.False(t, NumericToken.MatchString(s), s)
	}
}

func TestHasNumericCell(t *testing.T) {
	require.True(t, HasNumericCell([][]string{
		{"Imports", "n.a."},
		{"Exports", "987.6"},
	}))
	require.False(t, HasNumericCell([][]string{
		{"Imports", "n.a."},
		{"Exports", "pending"},
	}))
	require.False(t, HasNumericCell(nil))
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := Open([]byte("certainly not a pdf"))
	require.Error(t, err)
}

func TestDocument(t *testing.T) {
	page1 := testutil.PdfPage(
		testutil.PdfTextRun(72, 700, "Monthly Economic Indicators"),
		testutil.PdfTextRun(72, 680, "Item"),
		testutil.PdfTextRun(300, 680, "Value"),
		testutil.PdfTextRun(72, 660, "Workers Remittances"),
		testutil.PdfTextRun(300, 660, "543.2"),
		testutil.PdfTextRun(72, 640, "Tourist Arrivals"),
		testutil.PdfTextRun(300, 640, "112,128"),
	)
	page2 := testutil.PdfPage(
		testutil.PdfTextRun(72, 700, "Notes on methodology"),
	)
	doc, err := Open(testutil.PdfFromPages(t, page1, page2))
	require.NoError(t, err)
	require.Equal(t, 2, doc.NumPages())

	lines, err := doc.PageLines(1)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Monthly Economic Indicators"},
		{"Item", "Value"},
		{"Workers Remittances", "543.2"},
		{"Tourist Arrivals", "112,128"},
	}, lines)

	tables, err := ExtractTables(doc)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, 1, tables[0].Page)
	require.Equal(t, 1, tables[0].Index)
	require.Equal(t, []string{"Item", "Value"}, tables[0].Header)
	require.Equal(t, [][]string{
		{"Workers Remittances", "543.2"},
		{"Tourist Arrivals", "112,128"},
	}, tables[0].Rows)

	text, err := doc.PageText(2)
	require.NoError(t, err)
	require.Contains(t, text, "Notes on methodology")

	all, err := doc.Text()
	require.NoError(t, err)
	require.Contains(t, all, "Tourist Arrivals")
	require.Contains(t, all, "Notes on methodology")
}
