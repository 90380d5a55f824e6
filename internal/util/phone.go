package util

import (
	"fmt"
	"strings"
)

// PhoneDigits drops the ".0" left by numeric spreadsheet cells and keeps only
// the digits of what remains.
func PhoneDigits(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".0")
	out := strings.Builder{}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// FormatPhone renders a Brazilian number as "(AA) NNNN-NNNN" or
// "(AA) NNNNN-NNNN". Inputs with fewer than three digits come back as bare
// digits; remainders of other lengths keep the area code but no hyphen.
func FormatPhone(raw string) string {
	digits := PhoneDigits(raw)
	if len(digits) < 3 {
		return digits
	}

	area, rest := digits[:2], digits[2:]
	switch len(rest) {
	case 8:
		return fmt.Sprintf("(%s) %s-%s", area, rest[:4], rest[4:])
	case 9:
		return fmt.Sprintf("(%s) %s-%s", area, rest[:5], rest[5:])
	default:
		return fmt.Sprintf("(%s) %s", area, rest)
	}
}
