// Package pdfutil reads text out of the bank's statistical pdfs. pages
// come back either as plain text for regex work or as visual rows
// segmented into cells for table reconstruction. the underlying parser
// panics on malformed files, every entry point turns that into an
// error.
package pdfutil

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Document struct {
	reader *pdf.Reader
}

func Open(data []byte) (doc *Document, err error) {
	defer rescue(&err)

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &Document{reader: reader}, nil
}

func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// Text returns the plain text of the whole document.
func (d *Document) Text() (text string, err error) {
	defer rescue(&err)

	r, err := d.reader.GetPlainText()
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// PageText returns the plain text of one page, first page is 1. a
// missing page yields empty text, not an error.
func (d *Document) PageText(page int) (text string, err error) {
	defer rescue(&err)

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// PageLines returns one page's visual rows top to bottom, each row
// segmented into cells, first page is 1. rows that carry no text are
// dropped.
func (d *Document) PageLines(page int) (lines [][]string, err error) {
	defer rescue(&err)

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}
	// pdf y grows upward, largest position first is visual top. the
	// stable sorts keep emission order for glyphs sharing a coordinate.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })
	for _, row := range rows {
		glyphs := []pdf.Text(row.Content)
		sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })
		cells := segmentCells(glyphs)
		if len(cells) > 0 {
			lines = append(lines, cells)
		}
	}
	return lines, nil
}

const minCellGap = 4.0

// segmentCells groups one visual row's glyphs into cells. glyphs
// arrive x-sorted. a horizontal gap wider than about half the font
// size opens a new cell, a smaller but visible gap becomes a space
// inside the cell. files without width tables report every W as zero,
// there the glyph advance itself swallows the gap, so the break
// threshold widens past an em and no spaces are guessed at.
func segmentCells(texts []pdf.Text) []string {
	var cells []string
	var cell strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cell.String()); s != "" {
			cells = append(cells, s)
		}
		cell.Reset()
	}

	prevEnd, prevW := 0.0, 0.0
	for i, t := range texts {
		if i > 0 {
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			breakAt := 0.5 * size
			if prevW == 0 {
				breakAt = 1.2 * size
			}
			if breakAt < minCellGap {
				breakAt = minCellGap
			}
			gap := t.X - prevEnd
			if gap > breakAt {
				flush()
			} else if prevW > 0 && gap > 0.2*size && cell.Len() > 0 {
				cell.WriteByte(' ')
			}
		}
		cell.WriteString(t.S)
		if end := t.X + t.W; end > prevEnd || i == 0 {
			prevEnd = end
		}
		prevW = t.W
	}
	flush()
	return cells
}

// the underlying parser panics on malformed input, turn that into an
// error the caller can handle
func rescue(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf: %v", r)
	}
}
