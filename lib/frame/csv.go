package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// WriteCSV renders the frame with a Date header column followed by the
// series columns. absent cells render as empty strings.
func (f *Frame) WriteCSV(w io.Writer) error {
	out := csv.NewWriter(w)

	header := append([]string{"Date"}, f.columns...)
	if err := out.Write(header); err != nil {
		return err
	}

	for _, date := range f.Dates() {
		record := make([]string, 0, len(header))
		record = append(record, date.Format(dateLayout))
		for _, cell := range f.Row(date) {
			if !cell.Valid {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(cell.Float, 'f', -1, 64))
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}

	out.Flush()
	return out.Error()
}

// ReadCSV parses a frame written by WriteCSV. rows with unusable dates
// and cells with unusable numbers decode as absent rather than failing
// the load, the caller's validity check decides whether the result is
// worth keeping.
func ReadCSV(r io.Reader) (*Frame, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = -1

	header, err := in.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv")
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 || header[0] != "Date" {
		return nil, fmt.Errorf("csv header does not start with Date")
	}

	f := New()
	for _, col := range header[1:] {
		f.AddColumn(col)
	}

	for {
		record, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}
		date, err := time.Parse(dateLayout, record[0])
		if err != nil {
			continue
		}
		for i := 1; i < len(record) && i < len(header); i++ {
			if record[i] == "" {
				continue
			}
			value, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				continue
			}
			f.Set(date, header[i], value)
		}
	}
	return f, nil
}
