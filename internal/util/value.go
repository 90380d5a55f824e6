package util

import (
	"math"
	"strconv"
	"strings"
)

// DisplayPlaceholder stands in for empty cells on screen. Submissions use "".
const DisplayPlaceholder = "Sem informação — favor atualizar"

// nullTokens are the cell spellings read as missing values.
var nullTokens = map[string]struct{}{
	"":         {},
	"nan":      {},
	"-nan":     {},
	"null":     {},
	"none":     {},
	"n/a":      {},
	"na":       {},
	"<na>":     {},
	"#n/a":     {},
	"#n/a n/a": {},
	"#na":      {},
	"nat":      {},
}

func IsNull(raw string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// CleanValue trims raw and renders integral numbers without a fraction.
// Missing values become placeholder.
func CleanValue(raw, placeholder string) string {
	value := strings.TrimSpace(raw)
	if IsNull(value) {
		return placeholder
	}
	if looksNumeric(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
			if f == 0 { // -0 formats as "-0"
				f = 0
			}
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return value
}

// looksNumeric accepts plain decimal notation only, so values such as
// "0x1F" or "Infinity" stay text.
func looksNumeric(value string) bool {
	if !strings.ContainsAny(value, ".eE") {
		return false
	}
	for i, r := range value {
		switch {
		case r >= '0' && r <= '9', r == '.', r == 'e', r == 'E':
		case (r == '-' || r == '+') && (i == 0 || value[i-1] == 'e' || value[i-1] == 'E'):
		default:
			return false
		}
	}
	return true
}
