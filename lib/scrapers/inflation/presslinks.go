package inflation

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/mmcdole/gofeed"
	"go.opentelemetry.io/otel/codes"

	"cbslwatch-backend/lib/htmlutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/textutil"
)

var pressTitleRegex = regexp.MustCompile(
	`^Inflation in (` + strings.Join(months, "|") + `) (\d{4}) - CCPI`)

const pressFuzzyThreshold = 0.93

// PressLinks collects the monthly CCPI press release pdfs linked from
// the consumer price inflation page. anchor titles are matched against
// the release naming exactly first, then fuzzily, since the site
// occasionally reworks spacing and punctuation. when the page yields
// nothing the site feed is tried before giving up.
func (s Scraper) PressLinks(ctx context.Context) ([]PressLink, error) {
	ctx, span := tracer.Start(ctx, "PressLinks")
	defer span.End()

	links, err := s.pagePressLinks(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "press page fetch failed")
		return nil, err
	}
	if len(links) == 0 {
		slog.WarnContext(ctx, "press page yielded no links, trying feed",
			"url", s.pressUrl)
		links = s.feedPressLinks(ctx)
	}
	if len(links) == 0 {
		err := scraper.EmptyContentError{Url: s.pressUrl, What: "press release links"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "no press links found")
		return nil, err
	}

	links = dedupePressLinks(links)
	sort.Slice(links, func(i, j int) bool {
		if links[i].Year != links[j].Year {
			return links[i].Year < links[j].Year
		}
		return monthIndex[links[i].Month] < monthIndex[links[j].Month]
	})
	return links, nil
}

func (s Scraper) pagePressLinks(ctx context.Context) ([]PressLink, error) {
	doc, err := cbslweb.Document(ctx, s.http, s.pressUrl)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(s.pressUrl)
	if err != nil {
		return nil, err
	}

	var out []PressLink
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find("a[href]")) {
		month, year, ok := matchPressTitle(anchor.Name)
		if !ok {
			continue
		}
		href := resolveHref(base, anchor.Href)
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			continue
		}
		out = append(out, PressLink{Year: year, Month: month, PdfUrl: href})
	}
	return out, nil
}

// feedPressLinks matches release titles out of the site feed. the feed
// rarely links the pdf itself, so a pdf enclosure wins over the item
// link when one exists.
func (s Scraper) feedPressLinks(ctx context.Context) []PressLink {
	feed, err := gofeed.NewParser().ParseURLWithContext(s.feedUrl, ctx)
	if err != nil {
		slog.WarnContext(ctx, "feed unavailable", "url", s.feedUrl, "err", err)
		return nil
	}

	var out []PressLink
	for _, item := range feed.Items {
		month, year, ok := matchPressTitle(item.Title)
		if !ok {
			continue
		}
		link := item.Link
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasSuffix(strings.ToLower(enc.URL), ".pdf") {
				link = enc.URL
				break
			}
		}
		if link == "" {
			continue
		}
		out = append(out, PressLink{Year: year, Month: month, PdfUrl: link})
	}
	return out
}

// matchPressTitle extracts (month, year) from a press release title.
// the fuzzy pass only considers years that still appear verbatim in the
// title, so a mangled title can shift the month but never the year.
func matchPressTitle(title string) (string, int, bool) {
	title = textutil.CollapseSpace(textutil.NormalizeMinus(title))
	if m := pressTitleRegex.FindStringSubmatch(title); m != nil {
		year, _ := strconv.Atoi(m[2])
		if withinWindow(year) {
			return m[1], year, true
		}
		return "", 0, false
	}

	got := textutil.NormalizeName(title)
	var bestScore float64
	bestMonth, bestYear := "", 0
	for _, year := range windowYears {
		if !strings.Contains(title, strconv.Itoa(year)) {
			continue
		}
		for _, month := range months {
			want := textutil.NormalizeName(
				fmt.Sprintf("Inflation in %s %d - CCPI", month, year))
			score := matchr.JaroWinkler(got, want, false)
			if score > bestScore {
				bestScore = score
				bestMonth, bestYear = month, year
			}
		}
	}
	if bestScore >= pressFuzzyThreshold {
		return bestMonth, bestYear, true
	}
	return "", 0, false
}

func withinWindow(year int) bool {
	for _, y := range windowYears {
		if y == year {
			return true
		}
	}
	return false
}

func dedupePressLinks(links []PressLink) []PressLink {
	seen := map[int]bool{}
	out := make([]PressLink, 0, len(links))
	for _, l := range links {
		key := l.Year*100 + monthIndex[l.Month]
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
