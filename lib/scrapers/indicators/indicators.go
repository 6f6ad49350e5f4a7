// Package indicators collects the pdf releases linked from the
// monthly economic indicators page, downloads each one and lifts the
// numeric tables out of it. a release whose tables cannot be
// reconstructed keeps a plain text snippet instead so the scrape
// still captures something reviewable.
package indicators

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"cbslwatch-backend/lib/htmlutil"
	"cbslwatch-backend/lib/pdfutil"
	"cbslwatch-backend/lib/retryutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/textutil"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/indicators")

const (
	DefaultPageUrl = "https://www.cbsl.gov.lk/en/statistics/economic-indicators/monthly-indicators"
	DefaultRootUrl = "https://www.cbsl.gov.lk"
)

// snippetLimit caps the plain text kept for releases without a single
// reconstructable table.
const snippetLimit = 20000

var pdfExtRegex = regexp.MustCompile(`(?i)\.pdf($|\?)`)

// Document is one downloaded release.
type Document struct {
	PdfUrl  string
	FoundOn string
	// Name is the sanitized url basename without extension, usable as
	// a directory name.
	Name string
	Size int
	// Monthly marks releases that belong to the monthly economic
	// indicators series proper rather than a one-off publication.
	Monthly bool
	Tables  []pdfutil.Table
	// Snippet holds the leading document text when no table passed
	// the numeric gate.
	Snippet string
}

type Scraper struct {
	http    *resty.Client
	pageUrl string
	rootUrl string
	retry   retryutil.Config
}

type Options struct {
	// urls default to the live site when empty
	PageUrl string
	RootUrl string
	// Retry drives pdf downloads. zero values mean three attempts a
	// couple of seconds apart.
	Retry retryutil.Config
}

func NewScraper(client *resty.Client, opts Options) Scraper {
	if opts.PageUrl == "" {
		opts.PageUrl = DefaultPageUrl
	}
	if opts.RootUrl == "" {
		opts.RootUrl = DefaultRootUrl
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry.MaxAttempts = 3
	}
	if opts.Retry.Interval == 0 {
		opts.Retry.Interval = 2 * time.Second
	}
	return Scraper{
		http:    client,
		pageUrl: opts.PageUrl,
		rootUrl: opts.RootUrl,
		retry:   opts.Retry,
	}
}

// Documents runs the whole collection: robots gate, link discovery,
// download and table extraction. a release that fails to download is
// logged and skipped. a page with no pdf links at all is an error,
// the page always carries at least the current release.
func (s Scraper) Documents(ctx context.Context) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "Documents")
	defer span.End()

	if err := s.robotsAllowed(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "robots disallowed")
		return nil, err
	}

	links, err := s.PdfLinks(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "link discovery failed")
		return nil, err
	}
	if len(links) == 0 {
		err := scraper.EmptyContentError{Url: s.pageUrl, What: "pdf links"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "no pdf links")
		return nil, err
	}

	var docs []Document
	for _, link := range links {
		data, err := s.download(ctx, link)
		if err != nil {
			slog.WarnContext(ctx, "indicator release skipped", "url", link, "err", err)
			continue
		}
		docs = append(docs, s.buildDocument(ctx, link, data))
	}
	if len(docs) == 0 {
		err := scraper.EmptyContentError{Url: s.pageUrl, What: "indicator releases"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "every download failed")
		return nil, err
	}
	return docs, nil
}

// PdfLinks lists every pdf linked from the indicators page, resolved
// to absolute form, fragment-stripped, deduplicated and sorted.
func (s Scraper) PdfLinks(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "PdfLinks")
	defer span.End()

	doc, err := cbslweb.Document(ctx, s.http, s.pageUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "page fetch failed")
		return nil, err
	}
	base, err := url.Parse(s.pageUrl)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var links []string
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find("a[href]")) {
		link, ok := normalizeLink(base, anchor.Href)
		if !ok || !pdfExtRegex.MatchString(link) {
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	sort.Strings(links)
	return links, nil
}

// robotsAllowed checks the site policy for the indicators page before
// crawling it. an unreadable or unparseable robots.txt does not block
// the scrape, a readable policy that disallows the page does.
func (s Scraper) robotsAllowed(ctx context.Context) error {
	root, err := url.Parse(s.rootUrl)
	if err != nil {
		return err
	}
	robotsUrl := root.ResolveReference(&url.URL{Path: "/robots.txt"}).String()

	body, err := cbslweb.Bytes(ctx, s.http, robotsUrl)
	if err != nil {
		slog.WarnContext(ctx, "robots.txt unreadable, assuming allowed",
			"url", robotsUrl, "err", err)
		return nil
	}
	policy, err := robotstxt.FromBytes(body)
	if err != nil {
		slog.WarnContext(ctx, "robots.txt unparseable, assuming allowed",
			"url", robotsUrl, "err", err)
		return nil
	}

	page, err := url.Parse(s.pageUrl)
	if err != nil {
		return err
	}
	if !policy.FindGroup(cbslweb.UserAgent).Test(page.RequestURI()) {
		return scraper.SourceUnavailableError{
			Source: s.pageUrl,
			Reason: "disallowed by robots.txt",
		}
	}
	return nil
}

func (s Scraper) download(ctx context.Context, pdfUrl string) ([]byte, error) {
	var body []byte
	err := s.retry.Do(ctx, "download "+pdfUrl, func() error {
		var err error
		body, err = cbslweb.Bytes(ctx, s.http, pdfUrl)
		return err
	})
	return body, err
}

// buildDocument extracts what it can from one downloaded release. an
// unreadable pdf still yields a document, recording that the release
// exists matters more than its missing tables.
func (s Scraper) buildDocument(ctx context.Context, pdfUrl string, data []byte) Document {
	doc := Document{
		PdfUrl:  pdfUrl,
		FoundOn: s.pageUrl,
		Name:    documentName(pdfUrl),
		Size:    len(data),
	}
	doc.Monthly = LooksMonthly(pdfUrl, doc.Name)

	parsed, err := pdfutil.Open(data)
	if err != nil {
		slog.WarnContext(ctx, "unreadable indicator pdf", "url", pdfUrl, "err", err)
		return doc
	}
	tables, err := pdfutil.ExtractTables(parsed)
	if err != nil {
		slog.WarnContext(ctx, "table extraction failed", "url", pdfUrl, "err", err)
	}
	doc.Tables = tables
	if len(tables) == 0 {
		if text, err := parsed.Text(); err == nil {
			doc.Snippet = clip(text, snippetLimit)
		}
	}
	return doc
}

// normalizeLink resolves href against base and strips the fragment.
// script and contact pseudo links are dropped.
func normalizeLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String(), true
}

// documentName derives a directory-safe name from the url path.
func documentName(pdfUrl string) string {
	name := ""
	if u, err := url.Parse(pdfUrl); err == nil {
		name = path.Base(u.Path)
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	return textutil.SanitizeFilename(name)
}

// LooksMonthly reports whether a release belongs to the monthly
// economic indicators series, by url path or by filename hints.
func LooksMonthly(pdfUrl, name string) bool {
	if strings.Contains(strings.ToLower(pdfUrl), "/statistics/mei/") {
		return true
	}
	name = strings.ToLower(name)
	return strings.Contains(name, "mei") || strings.Contains(name, "monthly")
}

// DocumentsAreBad is the cache validity check: a scrape that produced
// no documents carries no information.
func DocumentsAreBad(docs []Document) bool {
	return len(docs) == 0
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
