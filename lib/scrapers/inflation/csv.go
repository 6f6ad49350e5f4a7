package inflation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"cbslwatch-backend/lib/frame"
)

const dateLayout = "2006-01-02"

var recordHeader = []string{
	"date", "year", "month", "month_num",
	"ccpi_headline_yoy", "ccpi_core_yoy", "ncpi_headline_yoy", "ncpi_core_yoy",
}

// WriteRecords encodes the window as csv, one row per month. absent
// measures render as empty cells so a later read keeps them absent.
func WriteRecords(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Date.Format(dateLayout),
			strconv.Itoa(rec.Year),
			rec.Month,
			strconv.Itoa(rec.MonthNum),
			cellField(rec.CcpiHeadline),
			cellField(rec.CcpiCore),
			cellField(rec.NcpiHeadline),
			cellField(rec.NcpiCore),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecords decodes a csv written by WriteRecords. rows with
// unusable dates are dropped, unusable measure cells decode as absent.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty inflation csv")
	}
	if len(rows[0]) < len(recordHeader) || rows[0][0] != "date" {
		return nil, fmt.Errorf("unexpected inflation header %v", rows[0])
	}

	var out []Record
	for _, row := range rows[1:] {
		if len(row) < len(recordHeader) {
			continue
		}
		date, err := time.Parse(dateLayout, row[0])
		if err != nil {
			continue
		}
		rec := Record{
			Date:         date,
			Year:         date.Year(),
			Month:        row[2],
			MonthNum:     int(date.Month()),
			CcpiHeadline: fieldCell(row[4]),
			CcpiCore:     fieldCell(row[5]),
			NcpiHeadline: fieldCell(row[6]),
			NcpiCore:     fieldCell(row[7]),
		}
		out = append(out, rec)
	}
	return out, nil
}

// RecordsAreBad is the cache validity check for the inflation family: a
// table where every one of the four measures is absent in every row
// carries no information and forces a re-scrape.
func RecordsAreBad(records []Record) bool {
	for _, rec := range records {
		if rec.CcpiHeadline.Valid || rec.CcpiCore.Valid ||
			rec.NcpiHeadline.Valid || rec.NcpiCore.Valid {
			return false
		}
	}
	return true
}

func cellField(c frame.Cell) string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Float, 'f', -1, 64)
}

func fieldCell(s string) frame.Cell {
	if s == "" {
		return frame.Absent
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return frame.Absent
	}
	return frame.Float(value)
}

var pressLinkHeader = []string{"year", "month", "pdf_url"}

// WritePressLinks encodes the press release index.
func WritePressLinks(w io.Writer, links []PressLink) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(pressLinkHeader); err != nil {
		return err
	}
	for _, l := range links {
		if err := cw.Write([]string{strconv.Itoa(l.Year), l.Month, l.PdfUrl}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPressLinks decodes the press release index. a header-only file is
// a valid empty index, months without a captured link are simply not
// present.
func ReadPressLinks(r io.Reader) ([]PressLink, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty press link csv")
	}
	if len(rows[0]) < 3 || rows[0][0] != "year" {
		return nil, fmt.Errorf("unexpected press link header %v", rows[0])
	}

	var out []PressLink
	for _, row := range rows[1:] {
		if len(row) < 3 {
			continue
		}
		year, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		out = append(out, PressLink{Year: year, Month: row[1], PdfUrl: row[2]})
	}
	return out, nil
}
