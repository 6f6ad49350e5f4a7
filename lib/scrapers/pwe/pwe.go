// Package pwe collects the spreadsheet files linked from the prices,
// wages and employment statistical tables page. each workbook is
// downloaded, every sheet is flattened to a text grid and a heuristic
// marks the column that carries the observation dates.
package pwe

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"cbslwatch-backend/lib/htmlutil"
	"cbslwatch-backend/lib/retryutil"
	"cbslwatch-backend/lib/scraper"
	"cbslwatch-backend/lib/scrapers/cbslweb"
	"cbslwatch-backend/lib/textutil"

	"github.com/extrame/xls"
	"github.com/go-resty/resty/v2"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/pwe")

const DefaultPageUrl = "https://www.cbsl.gov.lk/en/statistics/statistical-tables/real-sector/prices-wages-employment"

var spreadsheetExts = []string{".xls", ".xlsx", ".xlsm", ".csv"}

// Sheet is one flattened worksheet. csv files yield a single sheet
// named after the document.
type Sheet struct {
	Name string
	// Grid is the cleaned cell grid, first row the header. fully
	// empty rows and columns are dropped and every cell is trimmed.
	Grid [][]string
	// DateColumn is the header of the column the date heuristic
	// picked, empty when none scored high enough.
	DateColumn string
}

// Document is one downloaded spreadsheet.
type Document struct {
	FileUrl string
	// Name is the sanitized url basename without extension, usable as
	// a directory name.
	Name   string
	Ext    string
	Size   int
	Sheets []Sheet
}

type Scraper struct {
	http    *resty.Client
	pageUrl string
	retry   retryutil.Config
}

type Options struct {
	// PageUrl defaults to the live site when empty
	PageUrl string
	// Retry drives workbook downloads. zero values mean three
	// attempts a couple of seconds apart.
	Retry retryutil.Config
}

func NewScraper(client *resty.Client, opts Options) Scraper {
	if opts.PageUrl == "" {
		opts.PageUrl = DefaultPageUrl
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
		retry:   opts.Retry,
	}
}

// Documents downloads and parses every spreadsheet linked from the
// page. a file that fails to download is logged and skipped, a page
// with no spreadsheet links at all is an error.
func (s Scraper) Documents(ctx context.Context) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "Documents")
	defer span.End()

	links, err := s.FileLinks(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "link discovery failed")
		return nil, err
	}
	if len(links) == 0 {
		err := scraper.EmptyContentError{Url: s.pageUrl, What: "spreadsheet links"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "no spreadsheet links")
		return nil, err
	}

	var docs []Document
	for _, link := range links {
		data, err := s.download(ctx, link)
		if err != nil {
			slog.WarnContext(ctx, "spreadsheet skipped", "url", link, "err", err)
			continue
		}
		docs = append(docs, parseDocument(ctx, link, data))
	}
	if len(docs) == 0 {
		err := scraper.EmptyContentError{Url: s.pageUrl, What: "spreadsheet files"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "every download failed")
		return nil, err
	}
	return docs, nil
}

// FileLinks lists every spreadsheet linked from the page, resolved to
// absolute form, deduplicated and sorted. only http links count, the
// extension check runs on the url path so query strings do not hide a
// workbook.
func (s Scraper) FileLinks(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "FileLinks")
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
		ref, err := url.Parse(strings.TrimSpace(anchor.Href))
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		link := resolved.String()
		if _, ok := spreadsheetExt(link); !ok {
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

func (s Scraper) download(ctx context.Context, fileUrl string) ([]byte, error) {
	var body []byte
	err := s.retry.Do(ctx, "download "+fileUrl, func() error {
		var err error
		body, err = cbslweb.Bytes(ctx, s.http, fileUrl)
		return err
	})
	return body, err
}

// parseDocument flattens one downloaded file. an unreadable workbook
// still yields a document, recording that the file exists matters
// more than its missing sheets.
func parseDocument(ctx context.Context, fileUrl string, data []byte) Document {
	ext, _ := spreadsheetExt(fileUrl)
	doc := Document{
		FileUrl: fileUrl,
		Name:    documentName(fileUrl),
		Ext:     ext,
		Size:    len(data),
	}
	sheets, err := parseWorkbook(doc.Name, ext, data)
	if err != nil {
		slog.WarnContext(ctx, "unreadable workbook", "url", fileUrl, "err", err)
		return doc
	}
	doc.Sheets = sheets
	return doc
}

func parseWorkbook(name, ext string, data []byte) ([]Sheet, error) {
	switch ext {
	case ".csv":
		grid, err := readCsv(data)
		if err != nil {
			return nil, err
		}
		var sheets []Sheet
		if sheet := newSheet(name, grid); len(sheet.Grid) > 0 {
			sheets = append(sheets, sheet)
		}
		return sheets, nil
	case ".xlsx", ".xlsm":
		return readExcel(data)
	case ".xls":
		return readLegacyExcel(data)
	}
	return nil, fmt.Errorf("unsupported spreadsheet type %q", ext)
}

func readCsv(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func readExcel(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, err
		}
		if sheet := newSheet(name, rows); len(sheet.Grid) > 0 {
			sheets = append(sheets, sheet)
		}
	}
	return sheets, nil
}

func readLegacyExcel(data []byte) ([]Sheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}

	var sheets []Sheet
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		var grid [][]string
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				grid = append(grid, nil)
				continue
			}
			var cells []string
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			grid = append(grid, cells)
		}
		if sheet := newSheet(ws.Name, grid); len(sheet.Grid) > 0 {
			sheets = append(sheets, sheet)
		}
	}
	return sheets, nil
}

func newSheet(name string, grid [][]string) Sheet {
	grid = cleanGrid(grid)
	sheet := Sheet{Name: name, Grid: grid}
	if len(grid) > 1 {
		if col, ok := DetectDateColumn(grid[0], grid[1:]); ok {
			sheet.DateColumn = grid[0][col]
		}
	}
	return sheet
}

// cleanGrid trims every cell, squares the grid off to its widest row
// and drops rows and columns that are entirely empty.
func cleanGrid(grid [][]string) [][]string {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil
	}

	var rows [][]string
	for _, row := range grid {
		cells := make([]string, width)
		empty := true
		for i := 0; i < width; i++ {
			if i < len(row) {
				cells[i] = strings.TrimSpace(row[i])
			}
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, cells)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	keep := make([]bool, width)
	kept := 0
	for col := 0; col < width; col++ {
		for _, row := range rows {
			if row[col] != "" {
				keep[col] = true
				kept++
				break
			}
		}
	}
	if kept == width {
		return rows
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, 0, kept)
		for col, ok := range keep {
			if ok {
				cells = append(cells, row[col])
			}
		}
		out[i] = cells
	}
	return out
}

// spreadsheetExt tests the url path against the workbook extensions
// the page publishes.
func spreadsheetExt(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	lower := strings.ToLower(u.Path)
	for _, ext := range spreadsheetExts {
		if strings.HasSuffix(lower, ext) {
			return ext, true
		}
	}
	return "", false
}

// documentName derives a directory-safe name from the url path.
func documentName(fileUrl string) string {
	name := ""
	if u, err := url.Parse(fileUrl); err == nil {
		name = path.Base(u.Path)
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	return textutil.SanitizeFilename(name)
}

// DocumentsAreBad is the cache validity check: a scrape that produced
// no documents carries no information.
func DocumentsAreBad(docs []Document) bool {
	return len(docs) == 0
}
