package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Table is the text content of one html table, row-major.
type Table [][]string

// TableOf reads the rows of the first table in sel. cell text is
// de-noised the same way anchor names are.
func TableOf(sel *goquery.Selection) Table {
	var table Table
	sel.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			text := removeNonPrintable(cell.Text())
			text = strings.Trim(text, " \t\n")
			text = innerWhitespace.ReplaceAllString(text, " ")
			cells = append(cells, text)
		})
		if cells != nil {
			table = append(table, cells)
		}
	})
	return table
}

// Tables extracts every <table> in the document, in document order.
func Tables(doc *goquery.Document) []Table {
	var out []Table
	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		out = append(out, TableOf(sel))
	})
	return out
}

// DropEmptyColumns removes columns whose every cell is blank, keeping
// the remaining column order. ragged rows are tolerated.
func DropEmptyColumns(table Table) Table {
	width := 0
	for _, row := range table {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}

	keep := make([]bool, width)
	for _, row := range table {
		for i, cell := range row {
			if strings.TrimSpace(cell) != "" {
				keep[i] = true
			}
		}
	}

	var out Table
	for _, row := range table {
		var cells []string
		for i := 0; i < width; i++ {
			if !keep[i] {
				continue
			}
			if i < len(row) {
				cells = append(cells, row[i])
			} else {
				cells = append(cells, "")
			}
		}
		out = append(out, cells)
	}
	return out
}
