package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"filiados/internal/util"
)

var ErrNoHeader = errors.New("table has no header row")

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// LoadFile reads a registrant table from disk, picking the reader by file
// extension. Anything that is not .xlsx or .html is read as delimited text.
func LoadFile(path string) (*Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, blob)
}

func Parse(source string, content []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(source, content)
	case ".html", ".htm":
		return ParseHTML(source, content)
	default:
		return ParseDelimited(source, content)
	}
}

// ParseDelimited reads CSV-like text. The separator is sniffed from the
// header line; Windows-1252 input is transcoded to UTF-8.
func ParseDelimited(source string, content []byte) (*Table, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", source, err)
		}
		content = decoded
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrNoHeader
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return fromRecords(source, records)
}

func ParseXLSX(source string, content []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRecords(source, rows)
}

// ParseHTML reads the first table with a header and at least one data row,
// the shape produced by "save as web page" exports.
func ParseHTML(source string, content []byte) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var records [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			records = append(records, cells)
		})
		return false
	})
	return fromRecords(source, records)
}

func fromRecords(source string, records [][]string) (*Table, error) {
	for i, record := range records {
		if isBlank(record) {
			continue
		}
		return newTable(source, record, records[i+1:]), nil
	}
	return nil, ErrNoHeader
}

func sniffDelimiter(content []byte) rune {
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
	}

	best, bestCount := ',', 0
	for _, d := range delimiterCandidates {
		if n := countOutsideQuotes(string(line), d); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func countOutsideQuotes(line string, d rune) int {
	count := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			count++
		}
	}
	return count
}
