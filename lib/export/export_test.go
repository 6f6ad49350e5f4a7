package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cbslwatch-backend/lib/frame"

	"github.com/stretchr/testify/require"
)

func TestFromFrame(t *testing.T) {
	f := frame.New()
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	f.Set(jan, "Buying USD", 318.2)
	f.Set(jan, "Selling USD", 327.9)
	// a real zero is exported, the absent february selling rate is not
	f.Set(feb, "Buying USD", 0)

	rows := FromFrame("exchange", f)
	require.Equal(t, []Row{
		{Family: "exchange", Series: "Buying USD", Date: jan, Value: 318.2},
		{Family: "exchange", Series: "Selling USD", Date: jan, Value: 327.9},
		{Family: "exchange", Series: "Buying USD", Date: feb, Value: 0},
	}, rows)

	require.Nil(t, FromFrame("exchange", nil))
	require.Empty(t, FromFrame("exchange", frame.New()))
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "observations.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write([]Row{
		{Family: "exchange", Series: "Buying USD", Date: jan, Value: 318.2},
		{Family: "srr", Series: "SRR", Date: jan, Value: 2},
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t,
		"family,series,date,value\n"+
			"exchange,Buying USD,2024-01-15,318.2\n"+
			"srr,SRR,2024-01-15,2\n",
		string(data))
}

func TestFamilies(t *testing.T) {
	rows := []Row{
		{Family: "exchange"},
		{Family: "inflation"},
		{Family: "exchange"},
	}
	require.Equal(t, []string{"exchange", "inflation"}, families(rows))
}
