package util

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const DateLayout = "02/01/2006"

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
}

// ParseDate returns the calendar date held in raw, or nil when raw holds no
// recognizable date. Explicit layouts are tried first; the generic parser
// runs last and reads numeric dates day first, swapping to month first when
// the day-first reading is impossible.
func ParseDate(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" || IsNull(value) {
		return nil
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return dateOnly(parsed)
		}
	}

	if parsed, ok := parseGeneric(value); ok {
		return dateOnly(parsed)
	}
	return nil
}

func parseGeneric(value string) (parsed time.Time, ok bool) {
	// a panic inside the generic parser counts as no date
	defer func() {
		if recover() != nil {
			parsed, ok = time.Time{}, false
		}
	}()
	t, err := dateparse.ParseIn(value, time.UTC, dateparse.PreferMonthFirst(false), dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
