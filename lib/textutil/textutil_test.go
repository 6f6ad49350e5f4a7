package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMinus(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "−1.2", expect: "-1.2"},
		{in: "–0.9", expect: "-0.9"},
		{in: "—2.5", expect: "-2.5"},
		{in: "‒3", expect: "-3"},
		{in: "﹣4", expect: "-4"},
		{in: "－5", expect: "-5"},
		{in: "1.2 %", expect: "1.2 %"},
		{in: "-7", expect: "-7"},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, NormalizeMinus(test.in))
	}
}

func TestNormalizeMinusIdempotent(t *testing.T) {
	cases := []string{"−1.2", "–0.9", "—2.5", "‒3", "﹣4", "－5", " 7.75", "plain -1"}
	for _, in := range cases {
		once := NormalizeMinus(in)
		require.Equal(t, once, NormalizeMinus(once), "input %q", in)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in    string
		value float64
		ok    bool
	}{
		{in: "9.50", value: 9.5, ok: true},
		{in: " 1,234.75 ", value: 1234.75, ok: true},
		{in: "−1.2", value: -1.2, ok: true},
		{in: "0", value: 0, ok: true},
		{in: "0.0 %", value: 0, ok: true},
		{in: "--", value: 0, ok: false},
		{in: "", value: 0, ok: false},
		{in: "n/a", value: 0, ok: false},
		{in: "Rate (per annum)", value: 0, ok: false},
		{in: "8.25 - 9.25", value: 8.25, ok: true},
	}

	for _, test := range cases {
		value, ok := ParseNumber(test.in)
		require.Equal(t, test.ok, ok, "input %q", test.in)
		if test.ok {
			require.InDelta(t, test.value, value, 1e-9, "input %q", test.in)
		}
	}
}

func TestParseNumberZeroIsNotAbsent(t *testing.T) {
	value, ok := ParseNumber("0.0")
	require.True(t, ok)
	require.Equal(t, 0.0, value)

	_, ok = ParseNumber("--")
	require.False(t, ok)
}

func TestCollapseSpace(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "  Sri  Lanka\n\tProsperity   Index ", expect: "Sri Lanka Prosperity Index"},
		{in: "already clean", expect: "already clean"},
		{in: "", expect: ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, CollapseSpace(test.in))
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in     string
		expect string
	}{
		{in: "Monthly Economic Indicators - June 2025.pdf", expect: "Monthly Economic Indicators - June 2025.pdf"},
		{in: "price*charts?/<q3>", expect: "price_charts_q3_"},
		{in: "///", expect: "_"},
	}
	for _, test := range cases {
		require.Equal(t, test.expect, SanitizeFilename(test.in))
	}
}
