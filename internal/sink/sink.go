// Package sink appends submission rows to a spreadsheet-like destination.
package sink

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Sink is implemented by every destination backend. EnsureHeader writes
// header only when the target holds no rows yet.
type Sink interface {
	EnsureHeader(ctx context.Context, target Target, header []string) error
	Append(ctx context.Context, target Target, row []string) error
}

// Target addresses one worksheet. SheetID, when set, wins over Worksheet.
type Target struct {
	SpreadsheetID string
	SheetID       *int64
	Worksheet     string
}

func (t Target) String() string {
	parts := []string{t.SpreadsheetID}
	if t.SheetID != nil {
		parts = append(parts, "gid="+strconv.FormatInt(*t.SheetID, 10))
	}
	if t.Worksheet != "" {
		parts = append(parts, "worksheet="+t.Worksheet)
	}
	return strings.Join(parts, " ")
}

var (
	ErrInvalidTarget = errors.New("invalid spreadsheet reference")

	reSpreadsheetID = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	reGID           = regexp.MustCompile(`[?&#]gid=(\d+)`)
	reBareID        = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
)

// ParseTarget extracts the spreadsheet id and optional tab id from a sheet
// URL. A bare spreadsheet id is accepted as well.
func ParseTarget(ref string) (Target, error) {
	ref = strings.TrimSpace(ref)
	if reBareID.MatchString(ref) {
		return Target{SpreadsheetID: ref}, nil
	}

	m := reSpreadsheetID.FindStringSubmatch(ref)
	if m == nil {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, ref)
	}
	target := Target{SpreadsheetID: m[1]}
	if g := reGID.FindStringSubmatch(ref); g != nil {
		if gid, err := strconv.ParseInt(g[1], 10, 64); err == nil {
			target.SheetID = &gid
		}
	}
	return target, nil
}

// ResolveTarget prefers a configured id plus worksheet name and falls back
// to parsing the reference URL.
func ResolveTarget(sheetID, worksheet, ref string) (Target, error) {
	if strings.TrimSpace(sheetID) != "" {
		return Target{SpreadsheetID: strings.TrimSpace(sheetID), Worksheet: strings.TrimSpace(worksheet)}, nil
	}
	target, err := ParseTarget(ref)
	if err != nil {
		return Target{}, err
	}
	target.Worksheet = strings.TrimSpace(worksheet)
	return target, nil
}
