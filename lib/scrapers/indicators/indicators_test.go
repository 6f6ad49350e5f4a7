package indicators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"cbslwatch-backend/lib/retryutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

const indicatorsPageHtml = `<html><body>
<div class="content">
<a href="/files/mei_2025_07.pdf">Monthly Economic Indicators July 2025</a>
<a href="/files/mei_2025_07.pdf">Monthly Economic Indicators July 2025 (pdf)</a>
<a href="/files/survey_note.pdf?ver=2#summary">Special Survey Note</a>
<a href="/files/missing.pdf">Withdrawn Release</a>
<a href="/files/press_schedule.txt">Press Schedule</a>
<a href="javascript:void(0)">Show chart</a>
<a href="mailto:statistics@cbsl.gov.lk">Contact</a>
</div>
</body></html>`

func newTestScraper(t *testing.T, handler http.Handler) Scraper {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := cbslweb.NewClient(cbslweb.ClientOptions{})
	require.NoError(t, err)
	return NewScraper(client, Options{
		PageUrl: srv.URL + "/page",
		RootUrl: srv.URL,
		Retry: retryutil.Config{
			MaxAttempts: 3,
			Interval:    time.Millisecond,
			Sleep:       func(time.Duration) {},
		},
	})
}

func meiPdf(t *testing.T) []byte {
	return testutil.PdfFromPages(t, testutil.PdfPage(
		testutil.PdfTextRun(72, 700, "Monthly Economic Indicators"),
		testutil.PdfTextRun(72, 680, "Item"),
		testutil.PdfTextRun(300, 680, "Value"),
		testutil.PdfTextRun(72, 660, "Workers Remittances"),
		testutil.PdfTextRun(300, 660, "543.2"),
		testutil.PdfTextRun(72, 640, "Tourist Arrivals"),
		testutil.PdfTextRun(300, 640, "112,128"),
	))
}

func prosePdf(t *testing.T) []byte {
	return testutil.PdfFromPages(t, testutil.PdfPage(
		testutil.PdfTextRun(72, 700, "The survey results will be published next quarter."),
	))
}

func TestDocuments(t *testing.T) {
	mei := meiPdf(t)
	prose := prosePdf(t)
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		case "/page":
			_, _ = w.Write([]byte(indicatorsPageHtml))
		case "/files/mei_2025_07.pdf":
			_, _ = w.Write(mei)
		case "/files/survey_note.pdf":
			_, _ = w.Write(prose)
		default:
			http.NotFound(w, r)
		}
	}))

	docs, err := s.Documents(context.Background())
	require.NoError(t, err)

	// the duplicate link collapses, the text and pseudo links are
	// ignored, the dead link is skipped after its retries
	require.Len(t, docs, 2)

	mon := docs[0]
	require.Equal(t, "mei_2025_07", mon.Name)
	require.True(t, mon.Monthly)
	require.Equal(t, len(mei), mon.Size)
	require.Len(t, mon.Tables, 1)
	require.Equal(t, []string{"Item", "Value"}, mon.Tables[0].Header)
	require.Equal(t, [][]string{
		{"Workers Remittances", "543.2"},
		{"Tourist Arrivals", "112,128"},
	}, mon.Tables[0].Rows)
	require.Empty(t, mon.Snippet)

	note := docs[1]
	require.Equal(t, "survey_note", note.Name)
	require.False(t, note.Monthly)
	require.Empty(t, note.Tables)
	require.Contains(t, note.Snippet, "published next quarter")

	for _, d := range docs {
		require.Equal(t, s.pageUrl, d.FoundOn)
		require.Contains(t, d.PdfUrl, "/files/")
	}
}

func TestDocumentsRobotsDisallowed(t *testing.T) {
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /page\n"))
		default:
			t.Errorf("unexpected request %s after robots refusal", r.URL.Path)
		}
	}))

	_, err := s.Documents(context.Background())
	var unavailable scraper.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestDocumentsRobotsUnreadable(t *testing.T) {
	mei := meiPdf(t)
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			_, _ = w.Write([]byte(`<html><body><a href="/files/mei.pdf">MEI</a></body></html>`))
		case "/files/mei.pdf":
			_, _ = w.Write(mei)
		default:
			http.NotFound(w, r)
		}
	}))

	// a missing robots.txt does not block the scrape
	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestDocumentsNoPdfLinks(t *testing.T) {
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		case "/page":
			_, _ = w.Write([]byte(`<html><body><a href="/about">About</a></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))

	_, err := s.Documents(context.Background())
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "pdf links", empty.What)
}

func TestDocumentsEveryDownloadFails(t *testing.T) {
	var tries atomic.Int32
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		case "/page":
			_, _ = w.Write([]byte(`<html><body><a href="/files/gone.pdf">Gone</a></body></html>`))
		case "/files/gone.pdf":
			tries.Add(1)
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	_, err := s.Documents(context.Background())
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "indicator releases", empty.What)
	require.EqualValues(t, 3, tries.Load())
}

func TestDocumentsUnreadablePdf(t *testing.T) {
	s := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		case "/page":
			_, _ = w.Write([]byte(`<html><body><a href="/files/broken.pdf">Broken</a></body></html>`))
		case "/files/broken.pdf":
			_, _ = w.Write([]byte("this is not pdf data"))
		default:
			http.NotFound(w, r)
		}
	}))

	// an undecodable release is still recorded, size and name intact
	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "broken", docs[0].Name)
	require.NotZero(t, docs[0].Size)
	require.Empty(t, docs[0].Tables)
	require.Empty(t, docs[0].Snippet)
}

func TestNormalizeLink(t *testing.T) {
	base, err := url.Parse("https://www.cbsl.gov.lk/en/statistics/economic-indicators/monthly-indicators")
	require.NoError(t, err)

	cases := []struct {
		href string
		want string
		ok   bool
	}{
		{"/sites/default/files/mei.pdf", "https://www.cbsl.gov.lk/sites/default/files/mei.pdf", true},
		{"mei.pdf", "https://www.cbsl.gov.lk/en/statistics/economic-indicators/mei.pdf", true},
		{"https://example.org/a.pdf#page=2", "https://example.org/a.pdf", true},
		{"javascript:void(0)", "", false},
		{"mailto:statistics@cbsl.gov.lk", "", false},
		{"tel:+94112477000", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := normalizeLink(base, c.href)
		require.Equal(t, c.ok, ok, c.href)
		require.Equal(t, c.want, got, c.href)
	}
}

func TestLooksMonthly(t *testing.T) {
	cases := []struct {
		url, name string
		want      bool
	}{
		{"https://www.cbsl.gov.lk/sites/default/files/statistics/mei/report.pdf", "report", true},
		{"https://www.cbsl.gov.lk/files/x.pdf", "mei_2025_07", true},
		{"https://www.cbsl.gov.lk/files/x.pdf", "monthly_bulletin", true},
		{"https://www.cbsl.gov.lk/files/x.pdf", "annual_report_2024", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, LooksMonthly(c.url, c.name), c.name)
	}
}

func TestDocumentName(t *testing.T) {
	require.Equal(t, "mei_2025_07",
		documentName("https://www.cbsl.gov.lk/files/mei_2025_07.pdf?ver=1"))
	require.Equal(t, "mei _07_",
		documentName("https://www.cbsl.gov.lk/files/mei%20(07).pdf"))
	require.Equal(t, "download", documentName("https://www.cbsl.gov.lk/"))
}

func TestDocumentsAreBad(t *testing.T) {
	require.True(t, DocumentsAreBad(nil))
	require.False(t, DocumentsAreBad([]Document{{Name: "mei"}}))
}
