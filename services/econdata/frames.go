package econdata

import (
	"time"

	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/scrapers/eresearch"
	"cbslwatch-backend/lib/scrapers/inflation"
	"cbslwatch-backend/lib/scrapers/prosperity"
)

// column names of the inflation series frame
const (
	ColumnCcpiHeadline = "CCPI Headline"
	ColumnCcpiCore     = "CCPI Core"
	ColumnNcpiHeadline = "NCPI Headline"
	ColumnNcpiCore     = "NCPI Core"
)

// ColumnProsperity is the single prosperity series column.
const ColumnProsperity = "SLPI"

// inflationFrame pivots the monthly records into a four column frame.
// all four columns exist even when a series never published, so the
// csv header stays stable.
func inflationFrame(records []inflation.Record) *frame.Frame {
	f := frame.New()
	f.AddColumn(ColumnCcpiHeadline)
	f.AddColumn(ColumnCcpiCore)
	f.AddColumn(ColumnNcpiHeadline)
	f.AddColumn(ColumnNcpiCore)
	for _, r := range records {
		setCell(f, r.Date, ColumnCcpiHeadline, r.CcpiHeadline)
		setCell(f, r.Date, ColumnCcpiCore, r.CcpiCore)
		setCell(f, r.Date, ColumnNcpiHeadline, r.NcpiHeadline)
		setCell(f, r.Date, ColumnNcpiCore, r.NcpiCore)
	}
	return f
}

// moneySupplyFrame pivots the long observations wide, one column per
// indicator in first seen order.
func moneySupplyFrame(obs []eresearch.Observation) *frame.Frame {
	f := frame.New()
	for _, o := range obs {
		f.Set(o.Date, o.Indicator, o.Value)
	}
	return f
}

// prosperityFrame keys each release year at january 1st. years whose
// pdf could not be read stay absent.
func prosperityFrame(obs []prosperity.Observation) *frame.Frame {
	f := frame.New()
	f.AddColumn(ColumnProsperity)
	for _, o := range obs {
		if !o.Value.Valid {
			continue
		}
		date := time.Date(o.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		f.Set(date, ColumnProsperity, o.Value.Float)
	}
	return f
}

func setCell(f *frame.Frame, date time.Time, column string, c frame.Cell) {
	if c.Valid {
		f.Set(date, column, c.Float)
	}
}
