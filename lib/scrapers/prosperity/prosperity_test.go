package prosperity

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func newTestScraper(t *testing.T, handler http.Handler) (Scraper, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := cbslweb.NewClient(cbslweb.ClientOptions{})
	require.NoError(t, err)
	s := NewScraper(client, Options{
		PageUrl:       srv.URL + "/page",
		NoteUrlFormat: srv.URL + "/notes/slpi_%d.pdf",
		PressUrl:      srv.URL + "/press/slpi_2021.pdf",
	})
	return s, srv.URL
}

func TestSlpiFromNote(t *testing.T) {
	// the overview sentence form, second figure is the current year
	v, ok := slpiFromNote("Sri Lanka Prosperity Index 6.0 6.1", 2015)
	require.True(t, ok)
	require.Equal(t, 6.1, v)

	// prose forms
	v, ok = slpiFromNote("The index improved to 6.3 in 2016 from the previous year.", 2016)
	require.True(t, ok)
	require.Equal(t, 6.3, v)

	v, ok = slpiFromNote("Overall Index for 2018\n6.9", 2018)
	require.True(t, ok)
	require.Equal(t, 6.9, v)

	_, ok = slpiFromNote("no figures on this page", 2019)
	require.False(t, ok)
}

func TestSlpiFromPress(t *testing.T) {
	v, ok := slpiFromPress("Sri Lanka recorded an index value of 6.9 in 2021 amid challenges.")
	require.True(t, ok)
	require.Equal(t, 6.9, v)

	v, ok = slpiFromPress("The SLPI stood at 6.4 index points in 2021.")
	require.True(t, ok)
	require.Equal(t, 6.4, v)

	v, ok = slpiFromPress("In 2021, the Sri Lanka Prosperity Index declined to 6.4 from 6.7.")
	require.True(t, ok)
	require.Equal(t, 6.4, v)

	// the footnote marker after the abbreviation must not read as a value
	v, ok = slpiFromPress("In 2021 the Prosperity Index ( SLPI ) 1 stood at 6.4")
	require.True(t, ok)
	require.Equal(t, 6.4, v)

	// comma decimal separator
	v, ok = slpiFromPress("an index value of 6 , 9 in 2021")
	require.True(t, ok)
	require.Equal(t, 6.9, v)

	// implausible figures are noise, first match wins and gates
	_, ok = slpiFromPress("an index value of 65.2 in 2021")
	require.False(t, ok)

	_, ok = slpiFromPress("nothing about the index here")
	require.False(t, ok)
}

const landingPageHtml = `<html><body>
<div class="field-item odd">
<h1>Sri Lanka Prosperity Index</h1>
<p><img src="/sites/default/files/slpi_chart.png"></p>
<ul>
<li>Sri Lanka Prosperity Index - 2020</li>
<li>Sri Lanka Prosperity Index - 2019</li>
</ul>
</div>
</body></html>`

func TestMetadata(t *testing.T) {
	s, base := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page" {
			_, _ = w.Write([]byte(landingPageHtml))
			return
		}
		http.NotFound(w, r)
	}))

	meta, err := s.Metadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Sri Lanka Prosperity Index", meta.Title)
	require.Equal(t, base+"/sites/default/files/slpi_chart.png", meta.ImageUrl)
	require.Equal(t, []string{
		"Sri Lanka Prosperity Index - 2020",
		"Sri Lanka Prosperity Index - 2019",
	}, meta.Reports)
}

func TestMetadataBareTagFallback(t *testing.T) {
	page := `<html><body>
<h1>  Prosperity  </h1>
<img src="chart.png">
</body></html>`
	s, base := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))

	meta, err := s.Metadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Prosperity", meta.Title)
	require.Equal(t, base+"/chart.png", meta.ImageUrl)
	require.Empty(t, meta.Reports)
}

func notePdf(t *testing.T, year int) []byte {
	t.Helper()
	text := fmt.Sprintf("The index improved to 6.3 in %d from the previous year.", year)
	if year == 2015 {
		text = "Sri Lanka Prosperity Index 6.0 6.1"
	}
	return testutil.PdfFromPages(t, testutil.PdfPage(testutil.PdfTextRun(72, 700, text)))
}

func pressPdf(t *testing.T) []byte {
	t.Helper()
	return testutil.PdfFromPages(t,
		testutil.PdfPage(testutil.PdfTextRun(72, 700, "The prosperity of the nation is assessed annually.")),
		testutil.PdfPage(testutil.PdfTextRun(72, 700, "Sri Lanka recorded an index value of 6.9 in 2021 amid challenges.")),
	)
}

func TestIndexByYear(t *testing.T) {
	s, _ := newTestScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/notes/slpi_"):
			if strings.Contains(r.URL.Path, "2017") {
				http.NotFound(w, r)
				return
			}
			var year int
			_, err := fmt.Sscanf(r.URL.Path, "/notes/slpi_%d.pdf", &year)
			require.NoError(t, err)
			_, _ = w.Write(notePdf(t, year))
		case r.URL.Path == "/press/slpi_2021.pdf":
			_, _ = w.Write(pressPdf(t))
		default:
			http.NotFound(w, r)
		}
	}))

	obs, err := s.IndexByYear(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 7)
	for i, o := range obs {
		require.Equal(t, 2015+i, o.Year)
	}

	require.Equal(t, frame.Float(6.1), obs[0].Value)
	require.Equal(t, frame.Float(6.3), obs[1].Value)
	// the year whose note is gone stays absent instead of failing the scrape
	require.Equal(t, frame.Absent, obs[2].Value)
	require.Equal(t, frame.Float(6.9), obs[6].Value)
}

func TestIndexByYearAllMissing(t *testing.T) {
	s, _ := newTestScraper(t, http.NotFoundHandler())

	_, err := s.IndexByYear(context.Background())
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
}

func TestObservationsCsvRoundTrip(t *testing.T) {
	obs := []Observation{
		{Year: 2015, Value: frame.Float(6.1)},
		{Year: 2016, Value: frame.Absent},
		{Year: 2017, Value: frame.Float(0)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteObservations(&buf, obs))

	got, err := ReadObservations(&buf)
	require.NoError(t, err)
	require.Equal(t, obs, got)
}

func TestObservationsAreBad(t *testing.T) {
	require.True(t, ObservationsAreBad(nil))
	require.True(t, ObservationsAreBad([]Observation{{Year: 2015}}))
	require.False(t, ObservationsAreBad([]Observation{
		{Year: 2015},
		{Year: 2016, Value: frame.Float(6.3)},
	}))
}
