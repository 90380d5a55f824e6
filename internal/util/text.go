package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces = regexp.MustCompile(`\s+`)

	stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// StripDiacritics removes combining marks after compatibility decomposition.
func StripDiacritics(input string) string {
	out, _, err := transform.String(stripMarks, input)
	if err != nil {
		return input
	}
	return out
}

// NormalizeColumn turns a raw header spelling into its lookup key:
// "Data de Nascimento" becomes "data_de_nascimento".
func NormalizeColumn(input string) string {
	s := StripDiacritics(input)
	s = strings.ToLower(strings.TrimSpace(s))
	return reSpaces.ReplaceAllString(s, "_")
}

// FoldKey is the comparison form used for name search.
func FoldKey(input string) string {
	s := strings.ToLower(StripDiacritics(input))
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func ContainsFold(haystack, needle string) bool {
	n := FoldKey(needle)
	if n == "" {
		return false
	}
	return strings.Contains(FoldKey(haystack), n)
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}
