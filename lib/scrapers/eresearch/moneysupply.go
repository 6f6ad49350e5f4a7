package eresearch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cbslwatch-backend/lib/browserutil"
	"cbslwatch-backend/lib/htmlutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/textutil"
	"cbslwatch-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/codes"
)

// Observation is one reading of the long money supply table.
type Observation struct {
	Indicator string
	Date      time.Time
	Value     float64
}

// MoneySupply walks the wizard for the monetary sector's daily series
// over the trailing half year. the result grid is read off the page
// directly, this form has no export step.
func (s *Scraper) MoneySupply(ctx context.Context) ([]Observation, error) {
	ctx, span := tracer.Start(ctx, "MoneySupply")
	defer span.End()

	start, stop := timezone.TrailingWindow(timezone.Now(), moneySupplyWindowDays)

	var out []Observation
	err := s.retry.Do(ctx, "money supply grid", func() error {
		obs, err := s.readMoneySupplyGrid(ctx, start, stop)
		if err != nil {
			return err
		}
		out = obs
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wizard failed")
		return nil, err
	}
	return out, nil
}

func (s *Scraper) readMoneySupplyGrid(ctx context.Context, from, to time.Time) ([]Observation, error) {
	allocCtx, cancelAlloc := browserutil.Allocator(ctx)
	defer cancelAlloc()
	tabCtx, cancelTab := browserutil.NewTab(allocCtx)
	defer cancelTab()
	runCtx, cancelTimeout := context.WithTimeout(tabCtx, s.attemptTimeout)
	defer cancelTimeout()

	if err := runStep(runCtx, "open wizard",
		chromedp.Navigate(s.url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "select monetary sector subject",
		setCheckbox(moneySubjectCheckbox)); err != nil {
		return nil, err
	}
	// this form wants the frequency's value code, its labels shift
	// between visits
	if err := runStep(runCtx, "select daily frequency",
		selectByValue(frequencyDropdown, "D")); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "enter date window",
		enterDate(dateFromInput, from),
		enterDate(dateToInput, to),
	); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "submit criteria",
		clickButton(criteriaNextButton)); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "expand series list",
		setCheckbox(showAllCheckbox)); err != nil {
		return nil, err
	}

	var ticked int
	if err := runStep(runCtx, "tick series",
		tickAllSeries(moneySeriesSelector, &ticked)); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "series checkboxes ticked", "count", ticked)

	if err := runStep(runCtx, "add series",
		clickButton(addSeriesButton)); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "submit selection",
		clickButton(selectionNextButton)); err != nil {
		return nil, err
	}

	var gridHtml string
	if err := runStep(runCtx, "read result grid",
		chromedp.OuterHTML(resultGrid, &gridHtml, chromedp.ByID)); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(gridHtml))
	if err != nil {
		return nil, scraper.SourceUnavailableError{Source: resultGrid, Reason: err.Error()}
	}
	return cleanResultGrid(doc, s.url)
}

// cleanResultGrid melts the wide result grid into long observations.
// the first column names the indicator, every other column is a date.
// cells that fail numeric coercion and columns that fail date parsing
// contribute nothing.
func cleanResultGrid(doc *goquery.Document, url string) ([]Observation, error) {
	sel := doc.Find("#" + resultGrid)
	if sel.Length() == 0 {
		return nil, scraper.EmptyContentError{Url: url, What: "result grid"}
	}

	t := htmlutil.DropEmptyColumns(htmlutil.TableOf(sel))
	if len(t) < 2 {
		return nil, scraper.EmptyContentError{Url: url, What: "result rows"}
	}

	labels := t[0]
	dates := make([]time.Time, len(labels))
	dated := make([]bool, len(labels))
	for j := 1; j < len(labels); j++ {
		dates[j], dated[j] = parseGridDate(labels[j])
	}

	var out []Observation
	for _, row := range t[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		indicator := row[0]
		for j := 1; j < len(row) && j < len(labels); j++ {
			if !dated[j] {
				continue
			}
			value, ok := textutil.ParseNumber(row[j])
			if !ok {
				continue
			}
			out = append(out, Observation{Indicator: indicator, Date: dates[j], Value: value})
		}
	}
	if len(out) == 0 {
		return nil, scraper.EmptyContentError{Url: url, What: "money supply observations"}
	}
	return out, nil
}

// WriteObservations encodes the long table as Indicator,Date,Value csv.
func WriteObservations(w io.Writer, obs []Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Indicator", "Date", "Value"}); err != nil {
		return err
	}
	for _, o := range obs {
		record := []string{
			o.Indicator,
			o.Date.Format(wizardDateLayout),
			strconv.FormatFloat(o.Value, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadObservations decodes the long csv, skipping malformed rows the
// same way the other cached tables do.
func ReadObservations(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty money supply csv")
	}
	if len(records[0]) < 3 || records[0][0] != "Indicator" {
		return nil, fmt.Errorf("unexpected money supply header %v", records[0])
	}

	var out []Observation
	for _, rec := range records[1:] {
		if len(rec) < 3 {
			continue
		}
		date, err := time.Parse(wizardDateLayout, rec[1])
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			continue
		}
		out = append(out, Observation{Indicator: rec[0], Date: date, Value: value})
	}
	return out, nil
}
