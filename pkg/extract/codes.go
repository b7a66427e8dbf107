package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// moduleCodeExpr matches a module code: up to four capitals (umlauts allowed)
// followed by three digits, optionally separated by an underscore or blanks,
// or a capitalized word joined to the digits by an underscore. Both forms
// accept one trailing letter (WIN101a, Seminar_300B).
const moduleCodeExpr = `[A-ZÄÖÜ]{1,4}(?:_|\s*)\d{3}[A-Za-z]?|[A-ZÄÖÜ][A-Za-z]*_\d{3}[A-Za-z]?`

var (
	whitespaceRunPattern = regexp.MustCompile(`\s+`)
	digitRunPattern      = regexp.MustCompile(`\d+`)
)

// NormalizeCode collapses internal whitespace runs to a single space and
// trims the code.
func NormalizeCode(code string) string {
	return whitespaceRunPattern.ReplaceAllString(strings.TrimSpace(code), " ")
}

// SameCode reports whether two printed codes name the same module, ignoring
// whitespace and underscore separators ("CS101", "CS 101", "CS_101").
func SameCode(a, b string) bool {
	return compactCode(a) == compactCode(b)
}

func compactCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
}

// ParseECTS extracts the credit points from free text using the first run of
// digits. It returns nil when the text carries no number.
func ParseECTS(text string) *int {
	m := digitRunPattern.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}
