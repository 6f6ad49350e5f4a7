package eresearch

import (
	"strings"
	"testing"
	"time"

	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// the export mimics the site's "xls" download: an html page whose
// second table is the data grid, with a fully empty spacer column and
// non-rate rows mixed in
const exchangeExportHtml = `<html><body>
<table><tr><td>Exchange Rates: Daily Indicators</td></tr></table>
<table>
<tr><th></th><th>Series</th><th>Unit</th><th></th><th>2025-07-01</th><th>2025-07-02</th><th>2025-07-03</th></tr>
<tr><td>External Sector</td><td>TT Rates -Buying USD</td><td>Rs</td><td></td><td>297.5</td><td></td><td>298.25</td></tr>
<tr><td></td><td>TT Rates -Selling USD</td><td>Rs</td><td></td><td>305.1</td><td>305.9</td><td>306.0</td></tr>
<tr><td></td><td>Indicative Rate USD</td><td>Rs</td><td></td><td>300.0</td><td>300.5</td><td>301.0</td></tr>
</table>
</body></html>`

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestCleanExchangeExport(t *testing.T) {
	f, err := cleanExchangeExport(parseDoc(t, exchangeExportHtml), "test")
	require.NoError(t, err)

	require.Equal(t, []string{"Buying USD", "Selling USD"}, f.Columns())

	d1 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)
	require.Equal(t, []time.Time{d1, d2, d3}, f.Dates())

	require.Equal(t, 297.5, f.Cell(d1, "Buying USD").Float)
	require.Equal(t, 305.1, f.Cell(d1, "Selling USD").Float)

	// the gap in the buying series stays a gap
	require.False(t, f.Cell(d2, "Buying USD").Valid)
	require.Equal(t, 305.9, f.Cell(d2, "Selling USD").Float)

	require.Equal(t, 298.25, f.Cell(d3, "Buying USD").Float)
}

func TestCleanExchangeExportSingleTable(t *testing.T) {
	_, err := cleanExchangeExport(parseDoc(t, `<html><body><table><tr><td>x</td></tr></table></body></html>`), "test")
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
}

func TestCleanExchangeExportNoRateRows(t *testing.T) {
	html := `<html><body>
<table><tr><td>title</td></tr></table>
<table>
<tr><th>a</th><th>Series</th><th>Unit</th><th>2025-07-01</th></tr>
<tr><td>x</td><td>Indicative Rate USD</td><td>Rs</td><td>300.0</td></tr>
</table>
</body></html>`
	_, err := cleanExchangeExport(parseDoc(t, html), "test")
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
}

func TestCurrencies(t *testing.T) {
	f := frame.New()
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	f.Set(day, "Buying USD", 297.5)
	f.Set(day, "Selling USD", 305.1)
	f.Set(day, "Buying EUR", 340.0)
	f.Set(day, "Selling EUR", 348.0)
	f.Set(day, "Some Other Series", 1.0)

	require.Equal(t, []string{"EUR", "USD"}, Currencies(f))
}

func TestLatestQuote(t *testing.T) {
	f := frame.New()
	d1 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)
	f.Set(d1, "Buying USD", 297.5)
	f.Set(d1, "Selling USD", 305.1)
	// d2 has only one side quoted, the quote must skip past it
	f.Set(d2, "Selling USD", 305.9)
	f.Set(d3, "Buying USD", 298.25)
	f.Set(d3, "Selling USD", 306.0)

	q, err := LatestQuote(f, "USD")
	require.NoError(t, err)
	require.Equal(t, d3, q.Date)
	require.Equal(t, 298.25, q.Buying)
	require.Equal(t, 306.0, q.Selling)
	require.True(t, q.BuyingChange.Valid)
	require.InDelta(t, 0.75, q.BuyingChange.Float, 1e-9)
	require.True(t, q.SellingChange.Valid)
	require.InDelta(t, 0.9, q.SellingChange.Float, 1e-9)
}

func TestLatestQuoteFirstObservationHasNoChange(t *testing.T) {
	f := frame.New()
	d1 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	f.Set(d1, "Buying USD", 297.5)
	f.Set(d1, "Selling USD", 305.1)

	q, err := LatestQuote(f, "USD")
	require.NoError(t, err)
	require.False(t, q.BuyingChange.Valid)
	require.False(t, q.SellingChange.Valid)
}

func TestLatestQuoteUnknownCurrency(t *testing.T) {
	f := frame.New()
	f.Set(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), "Buying USD", 297.5)

	_, err := LatestQuote(f, "JPY")
	require.Error(t, err)
}
