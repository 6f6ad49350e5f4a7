// Package inflation reads the bank's CCPI/NCPI year over year figures.
// the inflation window is a script rendered widget, so the text is
// captured through a headless browser when one is around and through a
// plain fetch when not. figures for 2023 through 2025 are parsed out
// of the visible text, there are no html tables to lean on.
package inflation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"cbslwatch-backend/lib/browserutil"
	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/htmlutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/textutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/inflation")

const (
	DefaultWindowUrl = "https://www.cbsl.gov.lk/cbsl_custom/inflation/inflationwindow.php"
	DefaultPressUrl  = "https://www.cbsl.gov.lk/en/measures-of-consumer-price-inflation"
	DefaultFeedUrl   = "https://www.cbsl.gov.lk/rss.xml"
)

var months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthIndex = map[string]int{}

// the published window covers these years, newest first
var windowYears = []int{2025, 2024, 2023}

type monthPatterns struct {
	four *regexp.Regexp
	two  *regexp.Regexp
}

var (
	yearBlocks   = map[int]*regexp.Regexp{}
	monthRegexes = map[string]monthPatterns{}
)

func init() {
	for i, m := range months {
		monthIndex[m] = i + 1
	}
	for _, year := range windowYears {
		// a year heading opens a block that runs to the next year token
		yearBlocks[year] = regexp.MustCompile(fmt.Sprintf(`(?s)%d\s+(.*?)(?:202\d|\z)`, year))
	}
	for _, m := range months {
		monthRegexes[m] = monthPatterns{
			four: regexp.MustCompile(m + `\s+([-\d.]+)\s+([-\d.]+)\s+([-\d.]+)\s+([-\d.]+)`),
			two:  regexp.MustCompile(m + `\s+([-\d.]+)\s+([-\d.]+)`),
		}
	}
}

// Record is one month of the window. the four measures are nullable,
// the bank publishes CCPI well before NCPI and prints -- for the rest.
type Record struct {
	Date         time.Time
	Year         int
	Month        string
	MonthNum     int
	CcpiHeadline frame.Cell
	CcpiCore     frame.Cell
	NcpiHeadline frame.Cell
	NcpiCore     frame.Cell
}

// PressLink points at the official monthly press release pdf.
type PressLink struct {
	Year   int
	Month  string
	PdfUrl string
}

type Scraper struct {
	http       *resty.Client
	windowUrl  string
	pressUrl   string
	feedUrl    string
	renderText func(ctx context.Context, url string) (string, error)
}

type Options struct {
	// urls default to the live site when empty
	WindowUrl string
	PressUrl  string
	FeedUrl   string
	// RenderTimeout bounds the headless render, default one minute
	RenderTimeout time.Duration
	// RenderText replaces the headless browser capture, for tests. nil
	// renders through chrome.
	RenderText func(ctx context.Context, url string) (string, error)
}

func NewScraper(client *resty.Client, opts Options) Scraper {
	if opts.WindowUrl == "" {
		opts.WindowUrl = DefaultWindowUrl
	}
	if opts.PressUrl == "" {
		opts.PressUrl = DefaultPressUrl
	}
	if opts.FeedUrl == "" {
		opts.FeedUrl = DefaultFeedUrl
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = time.Minute
	}
	render := opts.RenderText
	if render == nil {
		timeout := opts.RenderTimeout
		render = func(ctx context.Context, url string) (string, error) {
			return browserutil.PageText(ctx, url, timeout)
		}
	}
	return Scraper{
		http:       client,
		windowUrl:  opts.WindowUrl,
		pressUrl:   opts.PressUrl,
		feedUrl:    opts.FeedUrl,
		renderText: render,
	}
}

// Window scrapes the inflation window and returns its monthly records
// in date order. a browser render is preferred since the widget builds
// its rows in script, but a plain fetch of the page often carries the
// same text and serves as the fallback.
func (s Scraper) Window(ctx context.Context) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "Window")
	defer span.End()

	text, err := s.renderText(ctx, s.windowUrl)
	if err != nil {
		slog.WarnContext(ctx, "browser render unavailable, fetching plain page",
			"url", s.windowUrl, "err", err)
		doc, err := cbslweb.Document(ctx, s.http, s.windowUrl)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return nil, err
		}
		text = htmlutil.TextLines(doc.Selection)
	}

	records := parseWindowText(text)
	if len(records) == 0 {
		err := scraper.EmptyContentError{Url: s.windowUrl, What: "inflation rows"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "no rows parsed")
		return nil, err
	}
	return records, nil
}

func parseWindowText(text string) []Record {
	text = textutil.NormalizeMinus(text)

	var out []Record
	for _, year := range windowYears {
		m := yearBlocks[year].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, month := range months {
			if rec, ok := parseMonthLine(m[1], year, month); ok {
				out = append(out, rec)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// parseMonthLine pulls one month's figures out of a year block. a full
// line carries all four measures with -- standing in for the missing
// ones. a line with just the two CCPI figures is a month the NCPI
// release hasn't caught up with yet.
func parseMonthLine(blob string, year int, month string) (Record, bool) {
	rec := Record{
		Date:     time.Date(year, time.Month(monthIndex[month]), 1, 0, 0, 0, 0, time.UTC),
		Year:     year,
		Month:    month,
		MonthNum: monthIndex[month],
	}

	p := monthRegexes[month]
	if m := p.four.FindStringSubmatch(blob); m != nil {
		rec.CcpiHeadline = toCell(m[1])
		rec.CcpiCore = toCell(m[2])
		rec.NcpiHeadline = toCell(m[3])
		rec.NcpiCore = toCell(m[4])
		return rec, true
	}
	if m := p.two.FindStringSubmatch(blob); m != nil {
		head, okHead := textutil.ParseNumber(m[1])
		core, okCore := textutil.ParseNumber(m[2])
		if okHead && okCore {
			rec.CcpiHeadline = frame.Float(head)
			rec.CcpiCore = frame.Float(core)
			return rec, true
		}
	}
	return Record{}, false
}

func toCell(s string) frame.Cell {
	if value, ok := textutil.ParseNumber(s); ok {
		return frame.Float(value)
	}
	return frame.Absent
}
