package frame

import (
	"sort"
	"time"
)

// Cell holds one reading of one series on one date. Valid reports
// whether the source actually had a value there. a zero with Valid set
// is a real reading and is never conflated with an absent one.
type Cell struct {
	Float float64
	Valid bool
}

func Float(v float64) Cell {
	return Cell{Float: v, Valid: true}
}

var Absent = Cell{}

const dateLayout = "2006-01-02"

// Frame is a date-keyed wide table: one row per observation date, one
// column per series. rows only come into existence through Set, so
// every row holds at least one valid cell by construction.
type Frame struct {
	columns []string
	colset  map[string]bool
	rows    map[string]map[string]float64
	dates   map[string]time.Time
}

func New() *Frame {
	return &Frame{
		colset: map[string]bool{},
		rows:   map[string]map[string]float64{},
		dates:  map[string]time.Time{},
	}
}

// AddColumn registers a column without populating it. registering is
// idempotent and fixes the column's position in output order.
func (f *Frame) AddColumn(name string) {
	if f.colset[name] {
		return
	}
	f.colset[name] = true
	f.columns = append(f.columns, name)
}

// Set records a valid reading. the date's clock time and zone are
// discarded, observations are calendar-dated.
func (f *Frame) Set(date time.Time, column string, value float64) {
	f.AddColumn(column)
	key := date.Format(dateLayout)
	row := f.rows[key]
	if row == nil {
		row = map[string]float64{}
		f.rows[key] = row
		f.dates[key] = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
	row[column] = value
}

// Cell returns the reading at (date, column), Absent when there is none.
func (f *Frame) Cell(date time.Time, column string) Cell {
	row, ok := f.rows[date.Format(dateLayout)]
	if !ok {
		return Absent
	}
	value, ok := row[column]
	if !ok {
		return Absent
	}
	return Float(value)
}

func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Dates returns every observation date ascending. keys are unique by
// construction.
func (f *Frame) Dates() []time.Time {
	keys := make([]string, 0, len(f.dates))
	for k := range f.dates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]time.Time, len(keys))
	for i, k := range keys {
		out[i] = f.dates[k]
	}
	return out
}

func (f *Frame) Len() int {
	return len(f.rows)
}

// Row returns the date's cells aligned to Columns() order.
func (f *Frame) Row(date time.Time) []Cell {
	out := make([]Cell, len(f.columns))
	row, ok := f.rows[date.Format(dateLayout)]
	if !ok {
		return out
	}
	for i, col := range f.columns {
		if value, has := row[col]; has {
			out[i] = Float(value)
		}
	}
	return out
}

// RenameColumns rewrites column names through fn, preserving order and
// data. columns mapping to the same new name must not coexist.
func (f *Frame) RenameColumns(fn func(string) string) {
	renamed := make([]string, len(f.columns))
	colset := map[string]bool{}
	for i, col := range f.columns {
		renamed[i] = fn(col)
		colset[renamed[i]] = true
	}
	for key, row := range f.rows {
		next := map[string]float64{}
		for col, value := range row {
			next[fn(col)] = value
		}
		f.rows[key] = next
	}
	f.columns = renamed
	f.colset = colset
}
