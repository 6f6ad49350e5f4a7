package eresearch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cbslwatch-backend/lib/browserutil"
	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/htmlutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/textutil"
	"cbslwatch-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/codes"
)

// the export always lands under this name regardless of query
const exportFilename = "data.xls"

const seriesKeyword = "TT Rates"

// ExchangeRates walks the wizard for the daily exchange rate export
// over the trailing month and returns the cleaned wide table, one
// column per Buying/Selling series. attempts repeat per the scraper's
// retry policy until the context gives out.
func (s *Scraper) ExchangeRates(ctx context.Context) (*frame.Frame, error) {
	ctx, span := tracer.Start(ctx, "ExchangeRates")
	defer span.End()

	start, stop := timezone.TrailingWindow(timezone.Now(), exchangeWindowDays)

	var out *frame.Frame
	err := s.retry.Do(ctx, "exchange rates export", func() error {
		f, err := s.downloadExchangeExport(ctx, start, stop)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wizard failed")
		return nil, err
	}
	return out, nil
}

// downloadExchangeExport is one end to end walk of the form. the
// browser is torn down on every exit path, success or not.
func (s *Scraper) downloadExchangeExport(ctx context.Context, from, to time.Time) (*frame.Frame, error) {
	downloadDir, err := os.MkdirTemp("", "eresearch-export-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(downloadDir)

	allocCtx, cancelAlloc := browserutil.Allocator(ctx)
	defer cancelAlloc()
	tabCtx, cancelTab := browserutil.NewTab(allocCtx)
	defer cancelTab()
	runCtx, cancelTimeout := context.WithTimeout(tabCtx, s.attemptTimeout)
	defer cancelTimeout()

	if err := runStep(runCtx, "open wizard",
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir),
		chromedp.Navigate(s.url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "select exchange rates subject",
		setCheckbox(exchangeSubjectCheckbox)); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "select daily frequency",
		selectByText(frequencyDropdown, "Daily")); err != nil {
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
		tickAllSeries(exchangeSeriesSelector, &ticked)); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "series checkboxes ticked", "count", ticked)

	if err := runStep(runCtx, "submit selection",
		clickButton(selectionNextButton)); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "confirm selection", confirmSelection()); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "advance to results",
		clickButton(selectionNextButton)); err != nil {
		return nil, err
	}
	if err := runStep(runCtx, "download export",
		clickDownload(),
		chromedp.Sleep(downloadSettle),
	); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(downloadDir, exportFilename))
	if err != nil {
		return nil, scraper.AutomationStepError{Step: "collect export", Cause: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, scraper.SourceUnavailableError{Source: exportFilename, Reason: err.Error()}
	}
	return cleanExchangeExport(doc, s.url)
}

// cleanExchangeExport normalizes the export, which despite its xls
// name is an html page. the second table holds the data: all empty
// columns go, only TT Rates rows stay, and the date axis comes off the
// header.
func cleanExchangeExport(doc *goquery.Document, url string) (*frame.Frame, error) {
	tables := htmlutil.Tables(doc)
	if len(tables) < 2 {
		return nil, scraper.EmptyContentError{Url: url, What: "exchange rate table"}
	}

	t := htmlutil.DropEmptyColumns(tables[1])
	if len(t) < 2 {
		return nil, scraper.EmptyContentError{Url: url, What: "exchange rate rows"}
	}

	// header positions 0-2 are the grid's category, name and unit
	// columns, dates start at 3
	labels := t[0]
	dates := make([]time.Time, len(labels))
	dated := make([]bool, len(labels))
	for j := 3; j < len(labels); j++ {
		dates[j], dated[j] = parseGridDate(labels[j])
	}

	out := frame.New()
	for _, row := range t[1:] {
		if len(row) < 2 || !strings.Contains(row[1], seriesKeyword) {
			continue
		}
		series := row[1]
		for j := 3; j < len(row) && j < len(labels); j++ {
			if !dated[j] {
				continue
			}
			if value, ok := textutil.ParseNumber(row[j]); ok {
				out.Set(dates[j], series, value)
			}
		}
	}
	if out.Len() == 0 {
		return nil, scraper.EmptyContentError{Url: url, What: "TT rate observations"}
	}

	out.RenameColumns(func(col string) string {
		return strings.TrimSpace(strings.TrimPrefix(col, seriesKeyword+" -"))
	})
	return out, nil
}

var gridDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
}

func parseGridDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range gridDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Quote is the newest usable buy/sell pair for one currency.
type Quote struct {
	Currency string
	Date     time.Time
	Buying   float64
	Selling  float64
	// change vs the previous day with a usable pair, absent when there
	// is no earlier observation
	BuyingChange  frame.Cell
	SellingChange frame.Cell
}

// Currencies lists the currency codes present in a cleaned exchange
// table, sorted.
func Currencies(f *frame.Frame) []string {
	var out []string
	seen := map[string]bool{}
	for _, col := range f.Columns() {
		ccy, ok := strings.CutPrefix(col, "Buying ")
		if !ok {
			continue
		}
		ccy = strings.TrimSpace(ccy)
		if ccy != "" && !seen[ccy] {
			seen[ccy] = true
			out = append(out, ccy)
		}
	}
	sort.Strings(out)
	return out
}

// LatestQuote finds the most recent date where both sides of the
// currency are quoted and computes day over day changes against the
// closest earlier such date.
func LatestQuote(f *frame.Frame, currency string) (Quote, error) {
	buyCol := "Buying " + currency
	sellCol := "Selling " + currency

	dates := f.Dates()
	for i := len(dates) - 1; i >= 0; i-- {
		buy := f.Cell(dates[i], buyCol)
		sell := f.Cell(dates[i], sellCol)
		if !buy.Valid || !sell.Valid {
			continue
		}

		q := Quote{
			Currency: currency,
			Date:     dates[i],
			Buying:   buy.Float,
			Selling:  sell.Float,
		}
		for j := i - 1; j >= 0; j-- {
			prevBuy := f.Cell(dates[j], buyCol)
			prevSell := f.Cell(dates[j], sellCol)
			if prevBuy.Valid && prevSell.Valid {
				q.BuyingChange = frame.Float(buy.Float - prevBuy.Float)
				q.SellingChange = frame.Float(sell.Float - prevSell.Float)
				break
			}
		}
		return q, nil
	}
	return Quote{}, fmt.Errorf("no quotes for %s", currency)
}
