package pdfutil

import (
	"regexp"
	"strings"
)

// NumericToken matches the number shapes the bank's tables print:
// optionally signed, thousands grouped by comma or space, an optional
// decimal tail or percent sign.
var NumericToken = regexp.MustCompile(`[-+]?\d{1,3}(?:[,\s]\d{3})*(?:\.\d+)?%?|\d+\.\d+%?`)

// Table is one reconstructed table. Header is nil when the table's
// first row did not look like one. Rows keep their natural width, the
// gap segmentation does not force a rectangle.
type Table struct {
	Page   int
	Index  int
	Header []string
	Rows   [][]string
}

// CandidateTables splits a page's lines into runs of consecutive
// multi-cell rows. a lone multi-cell line between paragraphs is
// noise, two or more in a row start looking like a table.
func CandidateTables(lines [][]string) [][][]string {
	var tables [][][]string
	var run [][]string
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, run)
		}
		run = nil
	}
	for _, line := range lines {
		if len(line) >= 2 {
			run = append(run, line)
			continue
		}
		flush()
	}
	flush()
	return tables
}

// PromoteHeader lifts the first row out as the header when at least
// two of its cells carry text, which is how the indicator tables lay
// out. when it does not, body is the unchanged input.
func PromoteHeader(rows [][]string) (header []string, body [][]string, ok bool) {
	if len(rows) == 0 {
		return nil, rows, false
	}
	nonEmpty := 0
	for _, cell := range rows[0] {
		if strings.TrimSpace(cell) != "" {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return nil, rows, false
	}
	return rows[0], rows[1:], true
}

// HasNumericCell reports whether any cell carries a numeric token.
// a table without one is a layout artifact, not data.
func HasNumericCell(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			if NumericToken.MatchString(cell) {
				return true
			}
		}
	}
	return false
}

// ExtractTables reconstructs every numeric table in the document. the
// numeric gate runs over the data rows, so a run of prose headings
// with no figures under them is dropped.
func ExtractTables(d *Document) ([]Table, error) {
	var tables []Table
	for page := 1; page <= d.NumPages(); page++ {
		lines, err := d.PageLines(page)
		if err != nil {
			return nil, err
		}
		for idx, candidate := range CandidateTables(lines) {
			header, body, _ := PromoteHeader(candidate)
			if len(body) == 0 || !HasNumericCell(body) {
				continue
			}
			tables = append(tables, Table{
				Page:   page,
				Index:  idx + 1,
				Header: header,
				Rows:   body,
			})
		}
	}
	return tables, nil
}
