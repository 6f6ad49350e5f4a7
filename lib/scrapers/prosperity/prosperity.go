// Package prosperity reads the Sri Lanka Prosperity Index releases.
// the 2015 through 2020 readings each live in a statistical note pdf,
// the 2021 one in a press release pdf, and the landing page carries
// the chart image and the list of published reports.
package prosperity

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/pdfutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/prosperity")

const (
	DefaultPageUrl = "https://www.cbsl.gov.lk/statistics/economic-indicators/srilanka-prosperity-index"
	// the %d is the release year, 2015 through 2020
	DefaultNoteUrlFormat = "https://www.cbsl.gov.lk/sites/default/files/cbslweb_documents/statistics/note_sri_lanka_prosperity_index_%d_e.pdf"
	DefaultPressUrl      = "https://www.cbsl.gov.lk/sites/default/files/cbslweb_documents/press/pr/press_20221230_sri_lanka_prosperity_index_2021_e.pdf"
)

var noteYears = []int{2015, 2016, 2017, 2018, 2019, 2020}

const pressYear = 2021

// Metadata describes the index landing page.
type Metadata struct {
	Title    string
	ImageUrl string
	Reports  []string
}

// Observation is one release year's overall index. years whose pdf
// cannot be read come back absent.
type Observation struct {
	Year  int
	Value frame.Cell
}

type Scraper struct {
	http          *resty.Client
	pageUrl       string
	noteUrlFormat string
	pressUrl      string
}

type Options struct {
	// urls default to the live site when empty
	PageUrl       string
	NoteUrlFormat string
	PressUrl      string
}

func NewScraper(client *resty.Client, opts Options) Scraper {
	if opts.PageUrl == "" {
		opts.PageUrl = DefaultPageUrl
	}
	if opts.NoteUrlFormat == "" {
		opts.NoteUrlFormat = DefaultNoteUrlFormat
	}
	if opts.PressUrl == "" {
		opts.PressUrl = DefaultPressUrl
	}
	return Scraper{
		http:          client,
		pageUrl:       opts.PageUrl,
		noteUrlFormat: opts.NoteUrlFormat,
		pressUrl:      opts.PressUrl,
	}
}

// Metadata scrapes the landing page heading, chart image and report
// list. the content block selectors come first, bare tag fallbacks
// cover the page being restructured.
func (s Scraper) Metadata(ctx context.Context) (Metadata, error) {
	ctx, span := tracer.Start(ctx, "Metadata")
	defer span.End()

	doc, err := cbslweb.Document(ctx, s.http, s.pageUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return Metadata{}, err
	}
	base, err := url.Parse(s.pageUrl)
	if err != nil {
		return Metadata{}, err
	}

	var meta Metadata
	title := doc.Find("div.field-item.odd h1").First()
	if title.Length() == 0 {
		title = doc.Find("h1").First()
	}
	meta.Title = textutil.CollapseSpace(title.Text())

	img := doc.Find("div.field-item.odd img").First()
	if img.Length() == 0 {
		img = doc.Find("img").First()
	}
	if src, ok := img.Attr("src"); ok && src != "" {
		if ref, err := url.Parse(src); err == nil {
			meta.ImageUrl = base.ResolveReference(ref).String()
		}
	}

	doc.Find("div.field-item.odd li").Each(func(_ int, sel *goquery.Selection) {
		if text := textutil.CollapseSpace(sel.Text()); text != "" {
			meta.Reports = append(meta.Reports, text)
		}
	})
	return meta, nil
}

// IndexByYear returns one observation per release year, oldest first.
// an unreadable year is logged and left absent rather than failing the
// scrape, only a fully empty result is an error.
func (s Scraper) IndexByYear(ctx context.Context) ([]Observation, error) {
	ctx, span := tracer.Start(ctx, "IndexByYear")
	defer span.End()

	var out []Observation
	for _, year := range noteYears {
		cell := frame.Absent
		data, err := cbslweb.Bytes(ctx, s.http, fmt.Sprintf(s.noteUrlFormat, year))
		if err != nil {
			slog.WarnContext(ctx, "prosperity note unavailable", "year", year, "err", err)
		} else if value, ok := noteValue(ctx, data, year); ok {
			cell = frame.Float(value)
		}
		out = append(out, Observation{Year: year, Value: cell})
	}

	cell := frame.Absent
	data, err := cbslweb.Bytes(ctx, s.http, s.pressUrl)
	if err != nil {
		slog.WarnContext(ctx, "prosperity press release unavailable", "year", pressYear, "err", err)
	} else if value, ok := pressValue(ctx, data); ok {
		cell = frame.Float(value)
	}
	out = append(out, Observation{Year: pressYear, Value: cell})

	if ObservationsAreBad(out) {
		err := scraper.EmptyContentError{Url: s.pageUrl, What: "prosperity index values"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "no values extracted")
		return nil, err
	}
	return out, nil
}

func noteValue(ctx context.Context, data []byte, year int) (float64, bool) {
	doc, err := pdfutil.Open(data)
	if err != nil {
		slog.WarnContext(ctx, "unreadable prosperity note", "year", year, "err", err)
		return 0, false
	}
	text, err := doc.PageText(1)
	if err != nil {
		slog.WarnContext(ctx, "unreadable prosperity note", "year", year, "err", err)
		return 0, false
	}
	return slpiFromNote(text, year)
}

func pressValue(ctx context.Context, data []byte) (float64, bool) {
	doc, err := pdfutil.Open(data)
	if err != nil {
		slog.WarnContext(ctx, "unreadable prosperity press release", "err", err)
		return 0, false
	}
	text, err := doc.Text()
	if err != nil {
		slog.WarnContext(ctx, "unreadable prosperity press release", "err", err)
		return 0, false
	}
	return slpiFromPress(text)
}

// ObservationsAreBad is the cache validity check: a table with no
// valid reading at all carries no information.
func ObservationsAreBad(obs []Observation) bool {
	for _, o := range obs {
		if o.Value.Valid {
			return false
		}
	}
	return true
}
