// Package econdata fronts the individual central bank scrapers with
// one service. persisted families go through the flat-file store
// behind a validity check, live families hit the upstream on every
// call, and forced refreshes are journaled in sqlite so operators can
// see what last ran and how it went.
package econdata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"cbslwatch-backend/lib/datastore"
	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/scrapers/eresearch"
	"cbslwatch-backend/lib/scrapers/indicators"
	"cbslwatch-backend/lib/scrapers/inflation"
	"cbslwatch-backend/lib/scrapers/prosperity"
	"cbslwatch-backend/lib/scrapers/pwe"
	"cbslwatch-backend/lib/scrapers/rates"
	"cbslwatch-backend/services/econdata/db"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/econdata")

// family keys accepted by HistoricalSeries, Refresh and the journal.
const (
	FamilyExchange        = "exchange"
	FamilyInflation       = "inflation"
	FamilyMoneySupply     = "moneysupply"
	FamilyHistoricalRates = "historical-rates"
	FamilySrr             = "srr"
	FamilyProsperity      = "prosperity"
	FamilyIndicators      = "indicators"
	FamilyPwe             = "pwe"
)

// CachedFamilies lists the families backed by the flat-file store, in
// the order RefreshAll walks them. the rest are live and never
// persisted.
var CachedFamilies = []string{
	FamilyExchange,
	FamilyInflation,
	FamilyMoneySupply,
	FamilyIndicators,
	FamilyPwe,
}

// SeriesFamilies lists every family HistoricalSeries accepts.
var SeriesFamilies = []string{
	FamilyExchange,
	FamilyInflation,
	FamilyMoneySupply,
	FamilyHistoricalRates,
	FamilySrr,
	FamilyProsperity,
}

type Service struct {
	db    *sql.DB
	qry   *db.Queries
	store datastore.Store

	rates      rates.Scraper
	research   *eresearch.Scraper
	inflation  inflation.Scraper
	prosperity prosperity.Scraper
	indicators indicators.Scraper
	pwe        pwe.Scraper

	alerts *alerter
}

type Options struct {
	// DataDir is the flat-file cache root, "Data" when empty.
	DataDir string
	// Client is shared by the plain http scrapers, a fresh cbslweb
	// client when nil.
	Client *resty.Client

	// per scraper overrides, zero values target the live site
	Rates      rates.Options
	Research   eresearch.Options
	Inflation  inflation.Options
	Prosperity prosperity.Options
	Indicators indicators.Options
	Pwe        pwe.Options

	// Alerts enables failure mail on journaled refreshes when non nil.
	Alerts *AlertOptions
}

func NewService(database *sql.DB, opts Options) (Service, error) {
	if opts.DataDir == "" {
		opts.DataDir = "Data"
	}
	store, err := datastore.NewStore(opts.DataDir)
	if err != nil {
		return Service{}, fmt.Errorf("open data dir: %w", err)
	}

	client := opts.Client
	if client == nil {
		client, err = cbslweb.NewClient(cbslweb.ClientOptions{})
		if err != nil {
			return Service{}, err
		}
	}

	var alerts *alerter
	if opts.Alerts != nil {
		alerts = newAlerter(*opts.Alerts)
	}

	return Service{
		db:         database,
		qry:        db.New(database),
		store:      store,
		rates:      rates.NewScraper(client, opts.Rates),
		research:   eresearch.NewScraper(opts.Research),
		inflation:  inflation.NewScraper(client, opts.Inflation),
		prosperity: prosperity.NewScraper(client, opts.Prosperity),
		indicators: indicators.NewScraper(client, opts.Indicators),
		pwe:        pwe.NewScraper(client, opts.Pwe),
		alerts:     alerts,
	}, nil
}

// Store exposes the data directory, mainly so callers can report
// where the files live.
func (s Service) Store() datastore.Store {
	return s.store
}

// CurrentRates scrapes the live policy rates. nothing is persisted
// and a partial read of the two upstream pages still succeeds.
func (s Service) CurrentRates(ctx context.Context) ([]rates.Observation, error) {
	ctx, span := tracer.Start(ctx, "CurrentRates")
	defer span.End()

	obs, err := s.rates.Current(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return obs, nil
}

// HistoricalSeries returns one family as a date-keyed frame. cached
// families read the store unless force is set, live families scrape
// on every call and ignore force.
func (s Service) HistoricalSeries(ctx context.Context, family string, force bool) (*frame.Frame, error) {
	ctx, span := tracer.Start(ctx, "HistoricalSeries")
	defer span.End()
	span.SetAttributes(
		attribute.String("family", family),
		attribute.Bool("force", force),
	)

	var f *frame.Frame
	var err error
	switch family {
	case FamilyExchange:
		f, err = s.exchangeFrame(ctx, force)
	case FamilyInflation:
		var records []inflation.Record
		records, err = s.inflationRecords(ctx, force)
		if err == nil {
			f = inflationFrame(records)
		}
	case FamilyMoneySupply:
		var obs []eresearch.Observation
		obs, err = s.moneySupply(ctx, force)
		if err == nil {
			f = moneySupplyFrame(obs)
		}
	case FamilyHistoricalRates:
		var h rates.History
		h, err = s.rates.History(ctx)
		if err == nil {
			f = h.Facilities
		}
	case FamilySrr:
		var h rates.History
		h, err = s.rates.History(ctx)
		if err == nil {
			f = h.ReserveRatio
		}
	case FamilyProsperity:
		var obs []prosperity.Observation
		obs, err = s.prosperity.IndexByYear(ctx)
		if err == nil {
			f = prosperityFrame(obs)
		}
	default:
		err = fmt.Errorf("unknown series family %q", family)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return f, nil
}

// PressLinks returns the captured inflation press release links.
func (s Service) PressLinks(ctx context.Context, force bool) ([]inflation.PressLink, error) {
	ctx, span := tracer.Start(ctx, "PressLinks")
	defer span.End()
	span.SetAttributes(attribute.Bool("force", force))

	links, err := s.pressLinks(ctx, force)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return links, nil
}

// InflationEntry is one monthly inflation record joined with its
// press release pdf when one was captured.
type InflationEntry struct {
	inflation.Record
	PdfUrl string
}

// InflationTable joins the monthly records with their press links.
// missing links degrade to blank urls, the table is useful without
// them.
func (s Service) InflationTable(ctx context.Context, force bool) ([]InflationEntry, error) {
	ctx, span := tracer.Start(ctx, "InflationTable")
	defer span.End()
	span.SetAttributes(attribute.Bool("force", force))

	records, err := s.inflationRecords(ctx, force)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	links, err := s.pressLinks(ctx, force)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "press links unavailable", "err", err)
	}
	byMonth := map[string]string{}
	for _, l := range links {
		byMonth[pressKey(l.Year, l.Month)] = l.PdfUrl
	}

	out := make([]InflationEntry, len(records))
	for i, r := range records {
		out[i] = InflationEntry{
			Record: r,
			PdfUrl: byMonth[pressKey(r.Year, r.Month)],
		}
	}
	return out, nil
}

func pressKey(year int, month string) string {
	return fmt.Sprintf("%d %s", year, strings.ToLower(month))
}

// MonthlyIndicators returns the monthly economic indicator releases,
// extracted tables and all.
func (s Service) MonthlyIndicators(ctx context.Context, force bool) ([]indicators.Document, error) {
	ctx, span := tracer.Start(ctx, "MonthlyIndicators")
	defer span.End()
	span.SetAttributes(attribute.Bool("force", force))

	docs, err := s.monthlyDocuments(ctx, force)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return docs, nil
}

// PricesWagesEmployment returns the statistics workbooks of the
// prices, wages and employment page, sheet grids and all.
func (s Service) PricesWagesEmployment(ctx context.Context, force bool) ([]pwe.Document, error) {
	ctx, span := tracer.Start(ctx, "PricesWagesEmployment")
	defer span.End()
	span.SetAttributes(attribute.Bool("force", force))

	docs, err := s.pweDocuments(ctx, force)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return docs, nil
}

// ProsperityMetadata scrapes the index landing page heading, chart
// image and report list. always live.
func (s Service) ProsperityMetadata(ctx context.Context) (prosperity.Metadata, error) {
	ctx, span := tracer.Start(ctx, "ProsperityMetadata")
	defer span.End()

	meta, err := s.prosperity.Metadata(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return prosperity.Metadata{}, err
	}
	return meta, nil
}

// LatestExchange reads the newest usable quote for one currency out
// of the cached exchange table.
func (s Service) LatestExchange(ctx context.Context, currency string) (eresearch.Quote, error) {
	ctx, span := tracer.Start(ctx, "LatestExchange")
	defer span.End()
	span.SetAttributes(attribute.String("currency", currency))

	f, err := s.exchangeFrame(ctx, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return eresearch.Quote{}, err
	}

	q, err := eresearch.LatestQuote(f, currency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return eresearch.Quote{}, err
	}
	return q, nil
}
