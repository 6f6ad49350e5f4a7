package eresearch

import (
	"bytes"
	"testing"
	"time"

	"cbslwatch-backend/lib/scraper"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const moneyGridHtml = `<html><body>
<table id="ContentPlaceHolder1_grdResult">
<tr><th>Indicator</th><th></th><th>2025-02-14</th><th>2025-02-15</th><th>Notes</th></tr>
<tr><td>Reserve Money</td><td></td><td>1,234.5</td><td>--</td><td></td></tr>
<tr><td>Money Supply M1</td><td></td><td>5000</td><td>5100.25</td><td></td></tr>
<tr><td></td><td></td><td>junk</td><td>junk</td><td></td></tr>
</table>
</body></html>`

func TestCleanResultGrid(t *testing.T) {
	got, err := cleanResultGrid(parseDoc(t, moneyGridHtml), "test")
	require.NoError(t, err)

	feb14 := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	feb15 := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	want := []Observation{
		{Indicator: "Reserve Money", Date: feb14, Value: 1234.5},
		{Indicator: "Money Supply M1", Date: feb14, Value: 5000},
		{Indicator: "Money Supply M1", Date: feb15, Value: 5100.25},
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestCleanResultGridMissing(t *testing.T) {
	_, err := cleanResultGrid(parseDoc(t, `<html><body><p>no grid</p></body></html>`), "test")
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
}

func TestCleanResultGridAllCoerceFailures(t *testing.T) {
	html := `<html><body>
<table id="ContentPlaceHolder1_grdResult">
<tr><th>Indicator</th><th>2025-02-14</th></tr>
<tr><td>Reserve Money</td><td>n/a</td></tr>
</table>
</body></html>`
	_, err := cleanResultGrid(parseDoc(t, html), "test")
	var empty scraper.EmptyContentError
	require.ErrorAs(t, err, &empty)
}

func TestObservationCsvRoundTrip(t *testing.T) {
	obs := []Observation{
		{Indicator: "Reserve Money", Date: time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), Value: 1234.5},
		{Indicator: "Money Supply M1", Date: time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), Value: 0},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteObservations(&buf, obs))

	got, err := ReadObservations(&buf)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(obs, got))
}

func TestReadObservationsSkipsMalformedRows(t *testing.T) {
	csv := "Indicator,Date,Value\n" +
		"Reserve Money,2025-02-14,1234.5\n" +
		"Bad Date,yesterday,1\n" +
		"Bad Value,2025-02-15,many\n"

	got, err := ReadObservations(bytes.NewReader([]byte(csv)))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Reserve Money", got[0].Indicator)
}

func TestReadObservationsRejectsForeignHeader(t *testing.T) {
	_, err := ReadObservations(bytes.NewReader([]byte("Name,When,HowMuch\nx,2025-02-14,1\n")))
	require.Error(t, err)
}
