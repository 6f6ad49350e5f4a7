package cbslweb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cbslwatch-backend/lib/scraper"

	"github.com/stretchr/testify/require"
)

func TestDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rates":
			w.Write([]byte(`<html><body><div id="container">Overnight Policy Rate (OPR) 7.75</div></body></html>`))
		case "/blank":
			w.Write([]byte("   \n "))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{})
	require.NoError(t, err)

	doc, err := Document(context.Background(), client, srv.URL+"/rates")
	require.NoError(t, err)
	require.Contains(t, doc.Find("#container").Text(), "Overnight Policy Rate")

	_, err = Document(context.Background(), client, srv.URL+"/blank")
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)

	_, err = Document(context.Background(), client, srv.URL+"/missing")
	var fetchErr scraper.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusNotFound, fetchErr.Status)
}

func TestBytesTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client, err := NewClient(ClientOptions{})
	require.NoError(t, err)

	_, err = Bytes(context.Background(), client, addr+"/report.pdf")
	var fetchErr scraper.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Error(t, fetchErr.Cause)
}

func TestBrowserHeaders(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{})
	require.NoError(t, err)
	_, err = Document(context.Background(), client, srv.URL)
	require.NoError(t, err)
	require.Contains(t, gotAgent, "Mozilla/5.0")
}
