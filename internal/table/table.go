// Package table loads registrant tables and keeps them cached per source.
package table

import (
	"strconv"
	"time"

	"filiados/internal/util"
)

type Row struct {
	Index     int
	Cells     map[string]string
	BirthDate *time.Time
}

// Table is immutable after load apart from Row.BirthDate, which
// DeriveBirthDates fills in once the birth date column is known.
type Table struct {
	Source  string
	Columns []string
	Rows    []Row
}

func (t *Table) Value(row int, column string) string {
	if t == nil || row < 0 || row >= len(t.Rows) || column == "" {
		return ""
	}
	return t.Rows[row].Cells[column]
}

func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

func (t *Table) DeriveBirthDates(column string) {
	for i := range t.Rows {
		t.Rows[i].BirthDate = util.ParseDate(t.Rows[i].Cells[column])
	}
}

func newTable(source string, header []string, records [][]string) *Table {
	columns := normalizeHeader(header)
	tbl := &Table{Source: source, Columns: columns, Rows: make([]Row, 0, len(records))}
	for _, record := range records {
		if isBlank(record) {
			continue
		}
		cells := make(map[string]string, len(columns))
		for i, col := range columns {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			if util.IsNull(value) {
				value = ""
			}
			cells[col] = value
		}
		tbl.Rows = append(tbl.Rows, Row{Index: len(tbl.Rows), Cells: cells})
	}
	return tbl
}

func normalizeHeader(header []string) []string {
	seen := map[string]int{}
	out := make([]string, 0, len(header))
	for i, h := range header {
		name := util.NormalizeColumn(h)
		if name == "" {
			name = util.NormalizeColumn("unnamed " + strconv.Itoa(i))
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out = append(out, name)
	}
	return out
}

func isBlank(record []string) bool {
	for _, v := range record {
		if util.NormalizeSpaces(v) != "" {
			return false
		}
	}
	return true
}
