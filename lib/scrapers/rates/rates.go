package rates

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/scrapers/workbook"
	"cbslwatch-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/rates")

const (
	DefaultCurrentRatesUrl = "https://www.cbsl.gov.lk/cbsl_custom/param/plrates.php"
	DefaultPolicyPageUrl   = "https://www.cbsl.gov.lk/en/rates-and-indicators/policy-rates"
	DefaultHistoryUrl      = "https://www.cbsl.gov.lk/sites/default/files/cbslweb_documents/about/20250522_historical_policy_interest_rates.xlsx"
)

const (
	LabelOPR  = "Overnight Policy Rate (OPR)"
	LabelSRR  = "Statutory Reserve Ratio (SRR)"
	LabelSDFR = "Standing Deposit Facility Rate (SDFR)"
	LabelSLFR = "Standing Lending Facility Rate (SLFR)"
)

// Observation is one policy rate as currently published.
type Observation struct {
	Label      string
	Value      float64
	ObservedAt time.Time
}

type Scraper struct {
	http            *resty.Client
	currentRatesUrl string
	policyPageUrl   string
	historyUrl      string
}

type Options struct {
	// all urls default to the live site when empty
	CurrentRatesUrl string
	PolicyPageUrl   string
	HistoryUrl      string
}

func NewScraper(client *resty.Client, opts Options) Scraper {
	if opts.CurrentRatesUrl == "" {
		opts.CurrentRatesUrl = DefaultCurrentRatesUrl
	}
	if opts.PolicyPageUrl == "" {
		opts.PolicyPageUrl = DefaultPolicyPageUrl
	}
	if opts.HistoryUrl == "" {
		opts.HistoryUrl = DefaultHistoryUrl
	}
	return Scraper{
		http:            client,
		currentRatesUrl: opts.CurrentRatesUrl,
		policyPageUrl:   opts.PolicyPageUrl,
		historyUrl:      opts.HistoryUrl,
	}
}

// Current scrapes all four policy rates. the two upstream pages fail
// independently, a partial read is still a success. no rates at all is
// an error, never an empty result.
func (s Scraper) Current(ctx context.Context) ([]Observation, error) {
	ctx, span := tracer.Start(ctx, "Current")
	defer span.End()

	var out []Observation

	fromTable, err := s.scrapeRatesTable(ctx)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "rates table unavailable", "url", s.currentRatesUrl, "err", err)
	}
	out = append(out, fromTable...)

	fromPage, err := s.scrapePolicyPage(ctx)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "policy rates page unavailable", "url", s.policyPageUrl, "err", err)
	}
	out = append(out, fromPage...)

	if len(out) == 0 {
		span.SetStatus(codes.Error, "no rates found")
		if err != nil {
			return nil, err
		}
		return nil, scraper.EmptyContentError{Url: s.currentRatesUrl, What: "policy rates"}
	}
	return out, nil
}

// scrapeRatesTable reads the two-cell (label, value) rows of the
// custom rates widget, yielding OPR and SRR.
func (s Scraper) scrapeRatesTable(ctx context.Context) ([]Observation, error) {
	ctx, span := tracer.Start(ctx, "scrapeRatesTable")
	defer span.End()

	doc, err := cbslweb.Document(ctx, s.http, s.currentRatesUrl)
	if err != nil {
		return nil, err
	}

	now := timezone.Now()
	var out []Observation
	doc.Find("#container tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() != 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		text := strings.TrimSpace(cells.Eq(1).Text())

		var display string
		switch {
		case strings.Contains(label, "Overnight Policy Rate"):
			display = LabelOPR
		case strings.Contains(label, "Statutory Reserve Ratio"):
			display = LabelSRR
		default:
			return
		}

		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			// a malformed row never fails the scrape
			slog.WarnContext(ctx, "skipping unparseable rate row",
				"label", label, "value", text)
			return
		}
		out = append(out, Observation{Label: display, Value: value, ObservedAt: now})
	})
	return out, nil
}

var (
	sdfrTextRegex  = regexp.MustCompile(`Standing Deposit Facility Rate \(SDFR\)\s*\|\s*([\d.]+)`)
	slfrTextRegex  = regexp.MustCompile(`Standing Lending Facility Rate \(SLFR\)\s*\|\s*([\d.]+)`)
	numericPortion = regexp.MustCompile(`([\d.]+)`)
)

// scrapePolicyPage pulls SDFR and SLFR off the policy rates page. the
// page renders the figures in running text most of the time, so the
// text regex goes first and a table scan covers whichever rate the
// regex missed.
func (s Scraper) scrapePolicyPage(ctx context.Context) ([]Observation, error) {
	ctx, span := tracer.Start(ctx, "scrapePolicyPage")
	defer span.End()

	doc, err := cbslweb.Document(ctx, s.http, s.policyPageUrl)
	if err != nil {
		return nil, err
	}

	now := timezone.Now()
	pageText := doc.Text()

	var out []Observation
	haveSdfr := false
	haveSlfr := false

	if m := sdfrTextRegex.FindStringSubmatch(pageText); m != nil {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, Observation{Label: LabelSDFR, Value: value, ObservedAt: now})
			haveSdfr = true
		}
	}
	if m := slfrTextRegex.FindStringSubmatch(pageText); m != nil {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, Observation{Label: LabelSLFR, Value: value, ObservedAt: now})
			haveSlfr = true
		}
	}
	if haveSdfr && haveSlfr {
		return out, nil
	}

	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td,th")
		if cells.Length() < 2 {
			return true
		}
		name := strings.TrimSpace(cells.Eq(0).Text())
		text := strings.TrimSpace(cells.Eq(1).Text())

		m := numericPortion.FindStringSubmatch(text)
		if m == nil {
			return true
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return true
		}

		switch {
		case !haveSdfr && (strings.Contains(name, "Standing Deposit Facility Rate") || strings.Contains(name, "SDFR")):
			out = append(out, Observation{Label: LabelSDFR, Value: value, ObservedAt: now})
			haveSdfr = true
		case !haveSlfr && (strings.Contains(name, "Standing Lending Facility Rate") || strings.Contains(name, "SLFR")):
			out = append(out, Observation{Label: LabelSLFR, Value: value, ObservedAt: now})
			haveSlfr = true
		}
		return !(haveSdfr && haveSlfr)
	})

	return out, nil
}

const (
	ColumnSDFR = "Standing Deposit Facility Rate"
	ColumnSLFR = "Standing Lending Facility Rate"
	ColumnSRR  = "SRR"
)

var (
	facilitiesBlock = workbook.Block{
		Sheet:    "Historical Policy Rates",
		FirstCol: "B",
		LastCol:  "D",
		SkipRows: 3,
		MaxRows:  100,
	}
	reserveRatioBlock = workbook.Block{
		Sheet:    "SRR",
		FirstCol: "B",
		LastCol:  "C",
		SkipRows: 3,
		MaxRows:  14,
	}
)

// History holds the published rate history. Facilities carries the
// standing deposit and lending series by decision date, ReserveRatio
// the SRR by effective date. both frames are always non nil, a sheet
// that failed to extract leaves its frame empty.
type History struct {
	Facilities   *frame.Frame
	ReserveRatio *frame.Frame
}

// History downloads the historical rates workbook once and extracts
// both sheets. one bad sheet degrades to a warning, both bad is an
// error.
func (s Scraper) History(ctx context.Context) (History, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	f, err := workbook.Fetch(ctx, s.http, s.historyUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "workbook download failed")
		return History{}, err
	}
	defer f.Close()

	out := History{Facilities: frame.New(), ReserveRatio: frame.New()}

	facilities, ferr := workbook.ExtractDated(f, facilitiesBlock, []string{ColumnSDFR, ColumnSLFR})
	if ferr != nil {
		span.RecordError(ferr)
		slog.WarnContext(ctx, "facility rates sheet unusable", "url", s.historyUrl, "err", ferr)
	} else {
		out.Facilities = facilities
	}

	reserve, rerr := workbook.ExtractDated(f, reserveRatioBlock, []string{ColumnSRR})
	if rerr != nil {
		span.RecordError(rerr)
		slog.WarnContext(ctx, "reserve ratio sheet unusable", "url", s.historyUrl, "err", rerr)
	} else {
		out.ReserveRatio = reserve
	}

	if ferr != nil && rerr != nil {
		span.SetStatus(codes.Error, "no usable sheets")
		return History{}, ferr
	}
	return out, nil
}
