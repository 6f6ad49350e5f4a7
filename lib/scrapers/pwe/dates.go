package pwe

import (
	"strconv"
	"strings"
	"time"

	"cbslwatch-backend/lib/textutil"
)

// dateScoreThreshold is the lowest combined score a column can have
// and still be called the date column.
const dateScoreThreshold = 0.35

var dateNameHints = []string{"date", "month", "year", "period", "time"}

// DetectDateColumn scores every column on how date-like it is: the
// fraction of cells that parse as a date, plus 0.3 for a dateish
// header name and 0.2 when the column holds a plausible year number.
// the best column wins when its score clears the threshold.
func DetectDateColumn(header []string, rows [][]string) (int, bool) {
	if len(rows) == 0 || len(header) == 0 {
		return 0, false
	}
	best, bestScore := 0, 0.0
	for col := range header {
		score := dateScore(strings.ToLower(header[col]), column(rows, col))
		if score > bestScore {
			best, bestScore = col, score
		}
	}
	return best, bestScore >= dateScoreThreshold
}

func dateScore(name string, cells []string) float64 {
	parsed := 0
	yearLike := false
	for _, cell := range cells {
		if _, ok := ParseDateish(cell); ok {
			parsed++
		}
		if v, ok := textutil.ParseNumber(cell); ok {
			if y := int(v); y >= 1900 && y <= 2100 {
				yearLike = true
			}
		}
	}

	score := float64(parsed) / float64(len(cells))
	for _, hint := range dateNameHints {
		if strings.Contains(name, hint) {
			score += 0.3
			break
		}
	}
	if yearLike {
		score += 0.2
	}
	return score
}

func column(rows [][]string, col int) []string {
	cells := make([]string, len(rows))
	for i, row := range rows {
		if col < len(row) {
			cells[i] = row[col]
		}
	}
	return cells
}

// dateishLayouts covers the spellings the bank's sheets use, day
// first. specific layouts come before shorter ones so a month-year
// cell never half-matches a full date.
var dateishLayouts = []string{
	"2/1/2006",
	"02/01/2006",
	"2-1-2006",
	"02-01-2006",
	"2.1.2006",
	"2-Jan-06",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02",
	"Jan-06",
	"Jan-2006",
	"Jan 2006",
	"January 2006",
	"2006 January",
	"2006-01",
	"01/2006",
	"2006/01",
}

// ParseDateish parses the date spellings the detection heuristic
// accepts. a bare number counts only when it is a plausible year, so
// a column of excel serials or plain figures is data, not dates.
func ParseDateish(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateishLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	if y, err := strconv.Atoi(raw); err == nil && y >= 1900 && y <= 2100 {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
