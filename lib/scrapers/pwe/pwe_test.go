package pwe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cbslwatch-backend/lib/retryutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const pwePageHtml = `<html><body>
<a href="/files/price_indices.xlsx">Price Indices</a>
<a href="/files/price_indices.xlsx">Price Indices (duplicate)</a>
<a href="/files/wage_index.csv?rev=3">Wage Rate Index</a>
<a href="/files/legacy_wages.xls">Legacy Wages</a>
<a href="/files/methodology.pdf">Methodology</a>
<a href="javascript:void(0)">expand</a>
</body></html>`

const wageCsv = "Year,Wage Index\n2019,95.2\n2020,100.0\n2021,\n"

func newTestScraper(t *testing.T, handler http.Handler) Scraper {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := cbslweb.NewClient(cbslweb.ClientOptions{})
	require.NoError(t, err)
	return NewScraper(client, Options{
		PageUrl: srv.URL + "/page",
		Retry: retryutil.Config{
			MaxAttempts: 3,
			Interval:    time.Millisecond,
			Sleep:       func(time.Duration) {},
		},
	})
}

func pweWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Prices")
	require.NoError(t, err)
	for ref, value := range map[string]string{
		"A1": "Date", "B1": "CCPI Index", "C1": "NCPI Index",
		"A2": "15/01/2023", "B2": "171.2", "C2": "183.4",
		"A3": "15/02/2023", "B3": "172.0", "C3": "184.1",
	} {
		require.NoError(t, f.SetCellValue("Prices", ref, value))
	}

	_, err = f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "Figures are provisional."))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDocuments(t *testing.T) {
	workbook := pweWorkbook(t)
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			_, _ = w.Write([]byte(pwePageHtml))
		case "/files/price_indices.xlsx":
			_, _ = w.Write(workbook)
		case "/files/wage_index.csv":
			_, _ = w.Write([]byte(wageCsv))
		default:
			http.NotFound(w, r)
		}
	}))

	docs, err := s.Documents(context.Background())
	require.NoError(t, err)

	// the duplicate collapses, the pdf and pseudo links are ignored,
	// the dead legacy workbook is skipped after its retries
	require.Len(t, docs, 2)

	prices := docs[0]
	require.Equal(t, "price_indices", prices.Name)
	require.Equal(t, ".xlsx", prices.Ext)
	require.Equal(t, len(workbook), prices.Size)
	// the default empty Sheet1 is dropped
	require.Len(t, prices.Sheets, 2)

	require.Equal(t, "Prices", prices.Sheets[0].Name)
	require.Equal(t, "Date", prices.Sheets[0].DateColumn)
	require.Equal(t, [][]string{
		{"Date", "CCPI Index", "NCPI Index"},
		{"15/01/2023", "171.2", "183.4"},
		{"15/02/2023", "172.0", "184.1"},
	}, prices.Sheets[0].Grid)

	require.Equal(t, "Notes", prices.Sheets[1].Name)
	require.Empty(t, prices.Sheets[1].DateColumn)
	require.Equal(t, [][]string{{"Figures are provisional."}}, prices.Sheets[1].Grid)

	wages := docs[1]
	require.Equal(t, "wage_index", wages.Name)
	require.Equal(t, ".csv", wages.Ext)
	require.Len(t, wages.Sheets, 1)
	require.Equal(t, "wage_index", wages.Sheets[0].Name)
	require.Equal(t, "Year", wages.Sheets[0].DateColumn)
	require.Equal(t, [][]string{
		{"Year", "Wage Index"},
		{"2019", "95.2"},
		{"2020", "100.0"},
		{"2021", ""},
	}, wages.Sheets[0].Grid)
}

func TestDocumentsNoLinks(t *testing.T) {
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/about">About</a></body></html>`))
	}))

	_, err := s.Documents(context.Background())
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "spreadsheet links", empty.What)
}

func TestDocumentsEveryDownloadFails(t *testing.T) {
	var tries atomic.Int32
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			_, _ = w.Write([]byte(`<html><body><a href="/files/gone.xlsx">Gone</a></body></html>`))
		case "/files/gone.xlsx":
			tries.Add(1)
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	_, err := s.Documents(context.Background())
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "spreadsheet files", empty.What)
	require.EqualValues(t, 3, tries.Load())
}

func TestDocumentsUnreadableWorkbook(t *testing.T) {
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			_, _ = w.Write([]byte(`<html><body><a href="/files/broken.xlsx">Broken</a></body></html>`))
		case "/files/broken.xlsx":
			_, _ = w.Write([]byte("this is not a workbook"))
		default:
			http.NotFound(w, r)
		}
	}))

	// an undecodable file is still recorded, size and name intact
	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "broken", docs[0].Name)
	require.NotZero(t, docs[0].Size)
	require.Empty(t, docs[0].Sheets)
}

func TestDetectDateColumn(t *testing.T) {
	cases := []struct {
		name   string
		header []string
		rows   [][]string
		col    int
		ok     bool
	}{
		{
			name:   "day first dates with a plain header",
			header: []string{"Observed", "Index"},
			rows:   [][]string{{"15/01/2023", "171.2"}, {"15/02/2023", "172.0"}},
			col:    0,
			ok:     true,
		},
		{
			name:   "name hint lifts a half parsing column",
			header: []string{"Period", "Value"},
			rows:   [][]string{{"Jan-23", "100"}, {"n/a", "101"}},
			col:    0,
			ok:     true,
		},
		{
			name:   "year integers",
			header: []string{"Year", "Employment"},
			rows:   [][]string{{"2019", "8123"}, {"2020", "8050"}},
			col:    0,
			ok:     true,
		},
		{
			name:   "plain figures are not dates",
			header: []string{"Region", "Value"},
			rows:   [][]string{{"Western", "45123"}, {"Central", "45124"}},
			ok:     false,
		},
		{
			name:   "no rows",
			header: []string{"Date"},
			ok:     false,
		},
	}
	for _, c := range cases {
		col, ok := DetectDateColumn(c.header, c.rows)
		require.Equal(t, c.ok, ok, c.name)
		if c.ok {
			require.Equal(t, c.col, col, c.name)
		}
	}
}

func TestParseDateish(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15/01/2023", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2-Jan-24", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"March 2021", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2023-05", time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"2023", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"8123", time.Time{}, false},
		{"45123", time.Time{}, false},
		{"5.9", time.Time{}, false},
		{"provisional", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := ParseDateish(c.in)
		require.Equal(t, c.ok, ok, c.in)
		if c.ok {
			require.Equal(t, c.want, got, c.in)
		}
	}
}

func TestCleanGrid(t *testing.T) {
	grid := [][]string{
		{" Date ", "Value", "", "Junk"},
		nil,
		{"15/01/2023", "1.5", ""},
		{"", "", "", ""},
		{"15/02/2023", "2.5", "", "x"},
	}
	require.Equal(t, [][]string{
		{"Date", "Value", "Junk"},
		{"15/01/2023", "1.5", ""},
		{"15/02/2023", "2.5", "x"},
	}, cleanGrid(grid))

	require.Nil(t, cleanGrid(nil))
	require.Nil(t, cleanGrid([][]string{{"", " "}, {}}))
}

func TestSpreadsheetExt(t *testing.T) {
	cases := []struct {
		link string
		ext  string
		ok   bool
	}{
		{"https://www.cbsl.gov.lk/files/a.xlsx", ".xlsx", true},
		{"https://www.cbsl.gov.lk/files/a.XLS", ".xls", true},
		{"https://www.cbsl.gov.lk/files/a.xlsm?rev=2", ".xlsm", true},
		{"https://www.cbsl.gov.lk/files/a.csv#t", ".csv", true},
		{"https://www.cbsl.gov.lk/files/a.pdf", "", false},
		{"https://www.cbsl.gov.lk/files/a.xlsx.zip", "", false},
	}
	for _, c := range cases {
		ext, ok := spreadsheetExt(c.link)
		require.Equal(t, c.ok, ok, c.link)
		require.Equal(t, c.ext, ext, c.link)
	}
}

func TestDocumentsAreBad(t *testing.T) {
	require.True(t, DocumentsAreBad(nil))
	require.False(t, DocumentsAreBad([]Document{{Name: "wages"}}))
}
