// Package eresearch drives the bank's eResearch statistics wizard with
// a headless browser. the site has no data API, every series is behind
// the same multi step query form: pick a subject, pick a frequency,
// give a date window, confirm the series list, then either download an
// export or read the result grid off the page.
package eresearch

import (
	"time"

	"cbslwatch-backend/lib/retryutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/eresearch")

const DefaultUrl = "https://www.cbsl.lk/eResearch/"

// element ids of the query wizard, stable across the asp.net postbacks
const (
	exchangeSubjectCheckbox = "ContentPlaceHolder1_grdSubjects_ExternalSector_chkIsSelect_4"
	moneySubjectCheckbox    = "ContentPlaceHolder1_grdSubjects_MonitorySector_chkIsSelect_0"
	frequencyDropdown       = "ContentPlaceHolder1_drpFrequency"
	dateFromInput           = "ContentPlaceHolder1_txtDateFrom"
	dateToInput             = "ContentPlaceHolder1_txtDateTo"
	criteriaNextButton      = "ContentPlaceHolder1_btnNext2"
	showAllCheckbox         = "ContentPlaceHolder1_chkshowAll"
	selectionNextButton     = "ContentPlaceHolder1_btnNext"
	downloadImage           = "ContentPlaceHolder1_imgDownload"
	resultGrid              = "ContentPlaceHolder1_grdResult"
	addSeriesButton         = "add"
)

// the two forms use different markup for the series checkboxes
const (
	exchangeSeriesSelector = `input[type='checkbox'][id$='chkSelect']`
	moneySeriesSelector    = `input[type='checkbox'][id='chkSelect']`
)

// confirmation dialog rendered outside the form, only reachable by
// position
const confirmYesXPath = `/html/body/div[1]/div[3]/div/button[1]`

const (
	exchangeWindowDays    = 30
	moneySupplyWindowDays = 180

	// the export is served with no completion signal, the site needs a
	// fixed settle before the file is whole
	downloadSettle = 15 * time.Second

	wizardDateLayout = "2006-01-02"
)

type Scraper struct {
	url            string
	attemptTimeout time.Duration
	retry          retryutil.Config
}

type Options struct {
	// Url is the wizard entry page, the live site when empty.
	Url string
	// AttemptTimeout bounds one end to end walk of the form, defaults
	// to 5 minutes. the server is slow once many series are selected.
	AttemptTimeout time.Duration
	// Retry controls attempts of the whole walk. the zero value retries
	// forever at one minute intervals, bounded only by the caller's
	// context deadline.
	Retry retryutil.Config
}

func NewScraper(opts Options) *Scraper {
	if opts.Url == "" {
		opts.Url = DefaultUrl
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 5 * time.Minute
	}
	if opts.Retry.Interval <= 0 {
		opts.Retry.Interval = time.Minute
	}
	return &Scraper{
		url:            opts.Url,
		attemptTimeout: opts.AttemptTimeout,
		retry:          opts.Retry,
	}
}
