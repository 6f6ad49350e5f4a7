package cbslweb

import (
	"bytes"
	"context"

	"cbslwatch-backend/lib/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/cbslweb")

// Document fetches url and parses the response as html. transport
// failures and non-success statuses come back as FetchError, a blank
// body as EmptyContentError.
func Document(ctx context.Context, client *resty.Client, url string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "Document")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	body, err := fetch(ctx, client, url, span)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	return doc, nil
}

// Bytes fetches a binary document such as a workbook or a pdf.
func Bytes(ctx context.Context, client *resty.Client, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Bytes")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	return fetch(ctx, client, url, span)
}

func fetch(ctx context.Context, client *resty.Client, url string, span trace.Span) ([]byte, error) {
	res, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		ferr := scraper.FetchError{Url: url, Cause: err}
		span.RecordError(ferr)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, ferr
	}
	if !res.IsSuccess() {
		ferr := scraper.FetchError{Url: url, Status: res.StatusCode()}
		span.RecordError(ferr)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, ferr
	}
	body := res.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		eerr := scraper.EmptyContentError{Url: url, What: "response body"}
		span.RecordError(eerr)
		span.SetStatus(codes.Error, "empty response")
		return nil, eerr
	}
	return body, nil
}
