package prosperity

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cbslwatch-backend/lib/frame"
)

// WriteObservations encodes the yearly readings, absent ones as empty
// cells.
func WriteObservations(w io.Writer, obs []Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "slpi"}); err != nil {
		return err
	}
	for _, o := range obs {
		value := ""
		if o.Value.Valid {
			value = strconv.FormatFloat(o.Value.Float, 'f', -1, 64)
		}
		if err := cw.Write([]string{strconv.Itoa(o.Year), value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadObservations decodes the yearly readings, empty cells as absent.
func ReadObservations(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty prosperity csv")
	}
	if len(records[0]) < 2 || records[0][0] != "year" {
		return nil, fmt.Errorf("unexpected prosperity header %v", records[0])
	}

	var out []Observation
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			continue
		}
		year, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		cell := frame.Absent
		if rec[1] != "" {
			if value, err := strconv.ParseFloat(rec[1], 64); err == nil {
				cell = frame.Float(value)
			}
		}
		out = append(out, Observation{Year: year, Value: cell})
	}
	return out, nil
}
