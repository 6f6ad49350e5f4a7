// Package export moves normalized family tables into external sinks.
// a Writer takes long-form observation rows, wide frames are
// flattened first so every sink sees the same shape.
package export

import (
	"time"

	"cbslwatch-backend/lib/frame"
)

// Row is one observation in long form. absent cells never become
// rows, so a stored zero is always a real reading.
type Row struct {
	Family string
	Series string
	Date   time.Time
	Value  float64
}

// Writer is the interface any export sink must satisfy.
type Writer interface {
	Write(rows []Row) error
	Close() error
}

// FromFrame flattens a wide frame into long rows under one family
// name. only valid cells are emitted.
func FromFrame(family string, f *frame.Frame) []Row {
	if f == nil {
		return nil
	}
	columns := f.Columns()
	var rows []Row
	for _, date := range f.Dates() {
		for i, cell := range f.Row(date) {
			if !cell.Valid {
				continue
			}
			rows = append(rows, Row{
				Family: family,
				Series: columns[i],
				Date:   date,
				Value:  cell.Float,
			})
		}
	}
	return rows
}
