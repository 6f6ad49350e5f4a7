package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// unicode code points the upstream pages use in place of U+002D for
// negative readings. includes the figure dash and fullwidth variants.
var minusVariants = []string{
	"−", // minus sign
	"–", // en dash
	"—", // em dash
	"‒", // figure dash
	"﹣", // small hyphen-minus
	"－", // fullwidth hyphen-minus
}

// NormalizeMinus rewrites every unicode minus lookalike to the ascii
// hyphen and turns non-breaking spaces into plain spaces.
func NormalizeMinus(s string) string {
	for _, v := range minusVariants {
		s = strings.ReplaceAll(s, v, "-")
	}
	s = strings.ReplaceAll(s, " ", " ")
	return s
}

// CollapseSpace trims the string and folds runs of whitespace
// (including newlines) into single spaces.
func CollapseSpace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

var numberToken = regexp.MustCompile(`-?\d+\.?\d*`)

// ParseNumber extracts the first signed decimal token from arbitrary
// cell text, after minus normalization and thousands-separator removal.
// ok is false when no numeric token exists. a false ok is how callers
// distinguish an absent reading from a genuine zero.
func ParseNumber(s string) (value float64, ok bool) {
	s = NormalizeMinus(s)
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	token := numberToken.FindString(s)
	if token == "" || token == "-" {
		return 0, false
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_\-. ]+`)

// SanitizeFilename makes an upstream document name safe to use as a
// path segment, capped at 200 characters.
func SanitizeFilename(name string) string {
	name = unsafeFilename.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if len(name) > 200 {
		name = name[:200]
	}
	if name == "" {
		return "document"
	}
	return name
}
