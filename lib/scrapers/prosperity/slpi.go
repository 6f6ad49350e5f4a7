package prosperity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cbslwatch-backend/lib/textutil"
)

// the statistical notes open with a sentence carrying the previous and
// current readings back to back, the current one is the second
var noteOverviewRegex = regexp.MustCompile(
	`(?i)Sri Lanka Prosperity Index[^\d]+(\d+\.\d+)\s+(\d+\.\d+)`)

var (
	valueBeforeYear = map[int]*regexp.Regexp{}
	valueAfterYear  = map[int]*regexp.Regexp{}
)

func init() {
	for _, year := range noteYears {
		valueBeforeYear[year] = regexp.MustCompile(fmt.Sprintf(`(?i)(\d+\.\d+)\s+in\s+%d`, year))
		valueAfterYear[year] = regexp.MustCompile(fmt.Sprintf(`(?i)%d\s+(\d+\.\d+)`, year))
	}
}

// slpiFromNote pulls one year's overall index out of a note's first
// page text.
func slpiFromNote(text string, year int) (float64, bool) {
	t := textutil.CollapseSpace(text)
	for _, m := range [][]string{
		noteOverviewRegex.FindStringSubmatch(t),
		valueBeforeYear[year].FindStringSubmatch(t),
		valueAfterYear[year].FindStringSubmatch(t),
	} {
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[len(m)-1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// the 2021 figure moved into a press release that spreads prose across
// pages and sticks footnote markers right after the abbreviation, so
// "(SLPI) 1" would read as a value without the scrub. the number shape
// tolerates spaced digits and a comma decimal separator.
const pressNum = `(\d+(?:\s*[.,]\s*\d+)?)`

var (
	slpiFootnoteRegex = regexp.MustCompile(`(?i)\(\s*SLPI\s*\)\s*\d+`)
	pressValueOf      = regexp.MustCompile(`(?i)index\s+value\s+of\s+` + pressNum + `\s+in\s*2021`)
	pressValueIn      = regexp.MustCompile(`(?i)` + pressNum + `\s+(?:index\s*points?\s+)?in\s*2021`)
	pressYearFirst    = regexp.MustCompile(`(?i)(?:in|for)\s*2021.{0,80}?(?:slpi|prosperity\s+index).{0,40}?` + pressNum)
)

// slpiFromPress pulls the 2021 reading out of the press release text.
// the index sits well inside (0, 10), anything outside is a caught
// year number or footnote and gets dropped.
func slpiFromPress(text string) (float64, bool) {
	t := textutil.CollapseSpace(textutil.NormalizeMinus(text))
	t = slpiFootnoteRegex.ReplaceAllString(t, "(SLPI)")

	m := pressValueOf.FindStringSubmatch(t)
	if m == nil {
		m = pressValueIn.FindStringSubmatch(t)
	}
	if m == nil {
		m = pressYearFirst.FindStringSubmatch(t)
	}
	if m == nil {
		return 0, false
	}

	raw := strings.NewReplacer(" ", "", ",", ".").Replace(m[1])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v >= 10 {
		return 0, false
	}
	return v, true
}
