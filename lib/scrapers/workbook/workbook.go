package workbook

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/textutil"

	"github.com/go-resty/resty/v2"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/workbook")

// Block addresses a rectangular run of one sheet. the row right after
// SkipRows is a header and is consumed without being read, data starts
// on the row below it. the first column of the block holds dates.
type Block struct {
	Sheet    string
	FirstCol string
	LastCol  string
	SkipRows int
	// MaxRows caps the data rows read, 0 reads to the end of the sheet
	MaxRows int
}

// Fetch downloads an excel workbook. the returned file holds the whole
// workbook in memory, close it when done.
func Fetch(ctx context.Context, client *resty.Client, url string) (*excelize.File, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	body, err := cbslweb.Bytes(ctx, client, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		err = scraper.SourceUnavailableError{Source: url, Reason: "not an excel workbook: " + err.Error()}
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return nil, err
	}
	return f, nil
}

// ExtractDated reads a dated block into a frame, naming the value
// columns left to right. rows whose date cell does not parse are
// dropped, blank value cells stay absent.
func ExtractDated(f *excelize.File, b Block, columns []string) (*frame.Frame, error) {
	first, err := excelize.ColumnNameToNumber(b.FirstCol)
	if err != nil {
		return nil, fmt.Errorf("bad column %q: %w", b.FirstCol, err)
	}
	last, err := excelize.ColumnNameToNumber(b.LastCol)
	if err != nil {
		return nil, fmt.Errorf("bad column %q: %w", b.LastCol, err)
	}
	if got := last - first; got != len(columns) {
		return nil, fmt.Errorf("block %s:%s has %d value columns, %d names given",
			b.FirstCol, b.LastCol, got, len(columns))
	}

	// raw values keep date cells as serials instead of whatever the
	// cell style renders them as
	rows, err := f.GetRows(b.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, scraper.SourceUnavailableError{Source: b.Sheet, Reason: err.Error()}
	}

	out := frame.New()
	for _, name := range columns {
		out.AddColumn(name)
	}

	read := 0
	for i := b.SkipRows + 1; i < len(rows); i++ {
		if b.MaxRows > 0 && read >= b.MaxRows {
			break
		}
		read++

		row := rows[i]
		date, ok := parseDate(cellAt(row, first-1))
		if !ok {
			continue
		}
		for j, name := range columns {
			if value, ok := textutil.ParseNumber(cellAt(row, first+j)); ok {
				out.Set(date, name, value)
			}
		}
	}
	return out, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// textLayouts covers the day first spellings the bank's sheets use for
// text-typed date cells. iso sneaks in for sheets saved from exports.
var textLayouts = []string{
	"2/1/2006",
	"02/01/2006",
	"2-1-2006",
	"02-01-2006",
	"2.1.2006",
	"2-Jan-06",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
