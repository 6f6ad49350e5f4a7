package econdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cbslwatch-backend/lib/datastore"
	"cbslwatch-backend/lib/frame"
	"cbslwatch-backend/lib/pdfutil"
	"cbslwatch-backend/lib/scrapers/eresearch"
	"cbslwatch-backend/lib/scrapers/indicators"
	"cbslwatch-backend/lib/scrapers/inflation"
	"cbslwatch-backend/lib/scrapers/pwe"
	"cbslwatch-backend/lib/textutil"
)

// file layout under the store root
const (
	exchangeFile    = "exchange_rates.csv"
	inflationFile   = "cbsl_inflation_2023_2025.csv"
	pressLinksFile  = "cbsl_inflation_press_links.csv"
	moneySupplyFile = "money_supply.csv"
	indicatorsDir   = "monthly_indicators"
	pweDir          = "prices_wages_employment"
	documentsFile   = "documents.json"
	indexFile       = "index.json"
	extractedFile   = "monthly_extracted_files.csv"
	snippetFile     = "text_snippet.txt"
)

var frameCodec = datastore.Codec[*frame.Frame]{
	Encode: func(w io.Writer, f *frame.Frame) error { return f.WriteCSV(w) },
	Decode: frame.ReadCSV,
}

var recordCodec = datastore.Codec[[]inflation.Record]{
	Encode: inflation.WriteRecords,
	Decode: inflation.ReadRecords,
}

var pressLinkCodec = datastore.Codec[[]inflation.PressLink]{
	Encode: inflation.WritePressLinks,
	Decode: inflation.ReadPressLinks,
}

var observationCodec = datastore.Codec[[]eresearch.Observation]{
	Encode: eresearch.WriteObservations,
	Decode: eresearch.ReadObservations,
}

func jsonCodec[T any]() datastore.Codec[T] {
	return datastore.Codec[T]{
		Encode: func(w io.Writer, value T) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(value)
		},
		Decode: func(r io.Reader) (T, error) {
			var value T
			err := json.NewDecoder(r).Decode(&value)
			return value, err
		},
	}
}

func frameIsGood(f *frame.Frame) bool {
	return f != nil && f.Len() > 0
}

func (s Service) exchangeFrame(ctx context.Context, force bool) (*frame.Frame, error) {
	return datastore.LoadOrRefresh(ctx, s.store, exchangeFile,
		frameCodec, frameIsGood, force,
		func(ctx context.Context) (*frame.Frame, error) {
			return s.research.ExchangeRates(ctx)
		})
}

func (s Service) inflationRecords(ctx context.Context, force bool) ([]inflation.Record, error) {
	return datastore.LoadOrRefresh(ctx, s.store, inflationFile,
		recordCodec,
		func(records []inflation.Record) bool { return !inflation.RecordsAreBad(records) },
		force,
		func(ctx context.Context) ([]inflation.Record, error) {
			return s.inflation.Window(ctx)
		})
}

func (s Service) pressLinks(ctx context.Context, force bool) ([]inflation.PressLink, error) {
	return datastore.LoadOrRefresh(ctx, s.store, pressLinksFile,
		pressLinkCodec,
		func(links []inflation.PressLink) bool { return len(links) > 0 },
		force,
		func(ctx context.Context) ([]inflation.PressLink, error) {
			return s.inflation.PressLinks(ctx)
		})
}

func (s Service) moneySupply(ctx context.Context, force bool) ([]eresearch.Observation, error) {
	return datastore.LoadOrRefresh(ctx, s.store, moneySupplyFile,
		observationCodec,
		func(obs []eresearch.Observation) bool { return len(obs) > 0 },
		force,
		func(ctx context.Context) ([]eresearch.Observation, error) {
			return s.research.MoneySupply(ctx)
		})
}

func (s Service) monthlyDocuments(ctx context.Context, force bool) ([]indicators.Document, error) {
	return datastore.LoadOrRefresh(ctx, s.store,
		filepath.Join(indicatorsDir, documentsFile),
		jsonCodec[[]indicators.Document](),
		func(docs []indicators.Document) bool { return !indicators.DocumentsAreBad(docs) },
		force,
		func(ctx context.Context) ([]indicators.Document, error) {
			docs, err := s.indicators.Documents(ctx)
			if err != nil {
				return nil, err
			}
			if err := s.writeIndicatorArtifacts(docs); err != nil {
				return nil, err
			}
			return docs, nil
		})
}

func (s Service) pweDocuments(ctx context.Context, force bool) ([]pwe.Document, error) {
	return datastore.LoadOrRefresh(ctx, s.store,
		filepath.Join(pweDir, documentsFile),
		jsonCodec[[]pwe.Document](),
		func(docs []pwe.Document) bool { return !pwe.DocumentsAreBad(docs) },
		force,
		func(ctx context.Context) ([]pwe.Document, error) {
			docs, err := s.pwe.Documents(ctx)
			if err != nil {
				return nil, err
			}
			if err := s.writePweArtifacts(docs); err != nil {
				return nil, err
			}
			return docs, nil
		})
}

// writeIndicatorArtifacts mirrors the indicator scrape for manual
// inspection: one directory per release holding its table csvs (or
// the text snippet when no table survived), an index keyed by pdf
// url, and a flat csv listing every extracted file. the previous
// generation is dropped wholesale first.
func (s Service) writeIndicatorArtifacts(docs []indicators.Document) error {
	if err := os.RemoveAll(s.store.Path(indicatorsDir)); err != nil {
		return err
	}

	index := map[string][]string{}
	for _, doc := range docs {
		var files []string
		for _, t := range doc.Tables {
			name := tableFilename(t)
			data, err := tableCsv(t)
			if err != nil {
				return err
			}
			if err := s.store.WriteFile(data, indicatorsDir, doc.Name, name); err != nil {
				return err
			}
			files = append(files, path.Join(doc.Name, name))
		}
		if len(doc.Tables) == 0 && doc.Snippet != "" {
			if err := s.store.WriteFile([]byte(doc.Snippet), indicatorsDir, doc.Name, snippetFile); err != nil {
				return err
			}
			files = append(files, path.Join(doc.Name, snippetFile))
		}
		if len(files) > 0 {
			index[doc.PdfUrl] = files
		}
	}

	if err := s.writeIndex(indicatorsDir, index); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"pdf_url", "extracted_file"})
	for _, doc := range docs {
		for _, file := range index[doc.PdfUrl] {
			w.Write([]string{doc.PdfUrl, file})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return s.store.WriteFile(buf.Bytes(), indicatorsDir, extractedFile)
}

// writePweArtifacts writes one directory per workbook with a csv per
// sheet, plus an index keyed by file url.
func (s Service) writePweArtifacts(docs []pwe.Document) error {
	if err := os.RemoveAll(s.store.Path(pweDir)); err != nil {
		return err
	}

	index := map[string][]string{}
	for _, doc := range docs {
		var files []string
		for _, sheet := range doc.Sheets {
			name := textutil.SanitizeFilename(sheet.Name) + ".csv"
			data, err := gridCsv(sheet.Grid)
			if err != nil {
				return err
			}
			if err := s.store.WriteFile(data, pweDir, doc.Name, name); err != nil {
				return err
			}
			files = append(files, path.Join(doc.Name, name))
		}
		if len(files) > 0 {
			index[doc.FileUrl] = files
		}
	}

	return s.writeIndex(pweDir, index)
}

func (s Service) writeIndex(dir string, index map[string][]string) error {
	blob, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return s.store.WriteFile(blob, dir, indexFile)
}

func tableFilename(t pdfutil.Table) string {
	return fmt.Sprintf("table_p%d_%d.csv", t.Page, t.Index)
}

func tableCsv(t pdfutil.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(t.Header) > 0 {
		w.Write(t.Header)
	}
	for _, row := range t.Rows {
		w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gridCsv(grid [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range grid {
		w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
