// Package rest exposes the econdata service as a json http api.
// responses compress with zstd when the client advertises it.
package rest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/serviceutil"
	"cbslwatch-backend/services/econdata"
	"cbslwatch-backend/services/econdata/db"

	"github.com/gorilla/mux"
)

type Options struct {
	// AccessToken gates every /api route behind a bearer token, empty
	// leaves the api open.
	AccessToken string
}

type handler struct {
	service econdata.Service
}

// NewHandler routes the /api surface onto the service.
func NewHandler(service econdata.Service, opts Options) http.Handler {
	h := handler{service: service}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(serviceutil.VerifyAccessTokenMiddleware(opts.AccessToken))

	api.HandleFunc("/rates/current", h.currentRates).Methods(http.MethodGet)
	api.HandleFunc("/series/{family}", h.series).Methods(http.MethodGet)
	api.HandleFunc("/exchange/latest", h.latestExchange).Methods(http.MethodGet)
	api.HandleFunc("/inflation", h.inflation).Methods(http.MethodGet)
	api.HandleFunc("/indicators", h.indicators).Methods(http.MethodGet)
	api.HandleFunc("/journal", h.journal).Methods(http.MethodGet)
	api.HandleFunc("/refresh/{family}", h.refresh).Methods(http.MethodPost)

	return ZstdMiddleware(r)
}

func writeJson(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func forceParam(r *http.Request) bool {
	force, err := strconv.ParseBool(r.URL.Query().Get("force"))
	return err == nil && force
}

type rateResponse struct {
	Label      string    `json:"label"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

func (h handler) currentRates(w http.ResponseWriter, r *http.Request) {
	obs, err := h.service.CurrentRates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	out := make([]rateResponse, len(obs))
	for i, o := range obs {
		out[i] = rateResponse{Label: o.Label, Value: o.Value, ObservedAt: o.ObservedAt}
	}
	writeJson(w, out)
}

type seriesResponse struct {
	Family  string      `json:"family"`
	Columns []string    `json:"columns"`
	Rows    []seriesRow `json:"rows"`
}

type seriesRow struct {
	Date string `json:"date"`
	// Cells align with Columns, null marks an absent reading.
	Cells []*float64 `json:"cells"`
}

func (h handler) series(w http.ResponseWriter, r *http.Request) {
	family := mux.Vars(r)["family"]
	if !slices.Contains(econdata.SeriesFamilies, family) {
		http.Error(w, "unknown series family", http.StatusNotFound)
		return
	}

	f, err := h.service.HistoricalSeries(r.Context(), family, forceParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	out := seriesResponse{Family: family, Columns: f.Columns(), Rows: []seriesRow{}}
	for _, date := range f.Dates() {
		row := seriesRow{Date: date.Format("2006-01-02")}
		for _, c := range f.Row(date) {
			row.Cells = append(row.Cells, cellPtr(c))
		}
		out.Rows = append(out.Rows, row)
	}
	writeJson(w, out)
}

type quoteResponse struct {
	Currency      string   `json:"currency"`
	Date          string   `json:"date"`
	Buying        float64  `json:"buying"`
	Selling       float64  `json:"selling"`
	BuyingChange  *float64 `json:"buying_change"`
	SellingChange *float64 `json:"selling_change"`
}

func (h handler) latestExchange(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		http.Error(w, "missing currency", http.StatusBadRequest)
		return
	}

	q, err := h.service.LatestExchange(r.Context(), currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJson(w, quoteResponse{
		Currency:      q.Currency,
		Date:          q.Date.Format("2006-01-02"),
		Buying:        q.Buying,
		Selling:       q.Selling,
		BuyingChange:  cellPtr(q.BuyingChange),
		SellingChange: cellPtr(q.SellingChange),
	})
}

type inflationResponse struct {
	Date         string   `json:"date"`
	Year         int      `json:"year"`
	Month        string   `json:"month"`
	MonthNum     int      `json:"month_num"`
	CcpiHeadline *float64 `json:"ccpi_headline_yoy"`
	CcpiCore     *float64 `json:"ccpi_core_yoy"`
	NcpiHeadline *float64 `json:"ncpi_headline_yoy"`
	NcpiCore     *float64 `json:"ncpi_core_yoy"`
	PdfUrl       string   `json:"pdf_url,omitempty"`
}

func (h handler) inflation(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.InflationTable(r.Context(), forceParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	out := make([]inflationResponse, len(entries))
	for i, e := range entries {
		out[i] = inflationResponse{
			Date:         e.Date.Format("2006-01-02"),
			Year:         e.Year,
			Month:        e.Month,
			MonthNum:     e.MonthNum,
			CcpiHeadline: cellPtr(e.CcpiHeadline),
			CcpiCore:     cellPtr(e.CcpiCore),
			NcpiHeadline: cellPtr(e.NcpiHeadline),
			NcpiCore:     cellPtr(e.NcpiCore),
			PdfUrl:       e.PdfUrl,
		}
	}
	writeJson(w, out)
}

type tableResponse struct {
	Page   int        `json:"page"`
	Index  int        `json:"index"`
	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows"`
}

type documentResponse struct {
	PdfUrl  string          `json:"pdf_url"`
	FoundOn string          `json:"found_on"`
	Name    string          `json:"name"`
	Size    int             `json:"size_bytes"`
	Monthly bool            `json:"monthly"`
	Tables  []tableResponse `json:"tables"`
	Snippet string          `json:"text_snippet,omitempty"`
}

func (h handler) indicators(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.MonthlyIndicators(r.Context(), forceParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	out := make([]documentResponse, len(docs))
	for i, doc := range docs {
		tables := make([]tableResponse, len(doc.Tables))
		for j, t := range doc.Tables {
			tables[j] = tableResponse{Page: t.Page, Index: t.Index, Header: t.Header, Rows: t.Rows}
		}
		out[i] = documentResponse{
			PdfUrl:  doc.PdfUrl,
			FoundOn: doc.FoundOn,
			Name:    doc.Name,
			Size:    doc.Size,
			Monthly: doc.Monthly,
			Tables:  tables,
			Snippet: doc.Snippet,
		}
	}
	writeJson(w, out)
}

type runResponse struct {
	ID         string `json:"id"`
	Family     string `json:"family"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt *int64 `json:"finished_at"`
	Outcome    string `json:"outcome"`
	RowCount   int64  `json:"row_count"`
	Error      string `json:"error,omitempty"`
}

func toRunResponse(run db.RefreshRun) runResponse {
	return runResponse{
		ID:         run.ID,
		Family:     run.Family,
		StartedAt:  run.StartedAt,
		FinishedAt: nullableInt(run.FinishedAt.Int64, run.FinishedAt.Valid),
		Outcome:    run.Outcome,
		RowCount:   run.RowCount,
		Error:      run.Error,
	}
}

func (h handler) journal(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.service.Journal(r.Context(), r.URL.Query().Get("family"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = toRunResponse(run)
	}
	writeJson(w, out)
}

func (h handler) refresh(w http.ResponseWriter, r *http.Request) {
	family := mux.Vars(r)["family"]
	if !slices.Contains(econdata.CachedFamilies, family) {
		http.Error(w, "family is not refreshable", http.StatusBadRequest)
		return
	}

	run, err := h.service.Refresh(r.Context(), family)
	if err != nil {
		// the journaled outcome still goes back to the caller
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(toRunResponse(run))
		return
	}
	writeJson(w, toRunResponse(run))
}

func cellPtr(c frame.Cell) *float64 {
	if !c.Valid {
		return nil
	}
	v := c.Float
	return &v
}

func nullableInt(v int64, valid bool) *int64 {
	if !valid {
		return nil
	}
	return &v
}
