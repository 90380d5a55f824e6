package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"filiados/internal"
	"filiados/internal/table"
	"filiados/internal/util"
)

const MunicipalityPlaceholder = "Selecione o município"

var ErrUnknownRow = errors.New("unknown registrant row")

const (
	msgChooseMunicipality = "Selecione o município para continuar."
	msgNoCriteria         = "Informe a data de nascimento ou o nome para buscar."
	msgRefineName         = "Digite pelo menos %d caracteres do nome para buscar."
	msgNotFound           = "Nenhum registro encontrado. Verifique os dados informados ou a planilha."
	msgTooMany            = "Mais de %d registros encontrados; mostrando os %d primeiros. Refine a busca."
	msgChoose             = "Mais de um registro encontrado; selecione o filiado."
	noName                = "(sem nome)"
)

type LocatorOptions struct {
	Multi        bool
	NameLimit    int
	NameMinChars int
}

type Query struct {
	Municipality string
	Date         *time.Time
	Name         string
}

// Locator answers lookups against one loaded table. It holds no per-user
// state; every Lookup starts from the full table.
type Locator struct {
	tbl   *table.Table
	cols  Columns
	index *Index
	opts  LocatorOptions
}

func NewLocator(tbl *table.Table, cols Columns, opts LocatorOptions) *Locator {
	if opts.NameLimit <= 0 {
		opts.NameLimit = 100
	}
	if opts.NameMinChars <= 0 {
		opts.NameMinChars = 2
	}
	tbl.DeriveBirthDates(cols[internal.FieldBirthDate])
	return &Locator{tbl: tbl, cols: cols, index: BuildIndex(tbl, cols), opts: opts}
}

func (l *Locator) Multi() bool { return l.opts.Multi }

func (l *Locator) Size() int { return len(l.tbl.Rows) }

func (l *Locator) Municipalities() []string {
	out := make([]string, len(l.index.Municipalities))
	copy(out, l.index.Municipalities)
	return out
}

func (l *Locator) Lookup(q Query) internal.Lookup {
	candidates, blocked := l.scope(q.Municipality)
	if blocked {
		return internal.Lookup{Status: internal.LookupBlocked, Message: msgChooseMunicipality}
	}

	name := strings.TrimSpace(q.Name)
	if q.Date == nil && name == "" {
		return internal.Lookup{Status: internal.LookupRefine, Message: msgNoCriteria}
	}
	if name != "" && len([]rune(name)) < l.opts.NameMinChars {
		return internal.Lookup{Status: internal.LookupRefine, Message: fmt.Sprintf(msgRefineName, l.opts.NameMinChars)}
	}

	if q.Date != nil {
		candidates = intersect(candidates, l.index.ByDate[q.Date.Format("2006-01-02")])
	}

	matches := make([]int, 0)
	for _, row := range candidates {
		if name != "" && !strings.Contains(l.index.FoldedNameByID[row], util.FoldKey(name)) {
			continue
		}
		matches = append(matches, row)
	}

	if len(matches) == 0 {
		return internal.Lookup{Status: internal.LookupNotFound, Message: msgNotFound}
	}

	result := internal.Lookup{}
	if name != "" && len(matches) > l.opts.NameLimit {
		matches = matches[:l.opts.NameLimit]
		result.Truncated = true
		result.Message = fmt.Sprintf(msgTooMany, l.opts.NameLimit, l.opts.NameLimit)
	}

	if len(matches) == 1 {
		rec := l.Record(matches[0])
		result.Status = internal.LookupFound
		result.Record = &rec
		result.Options = []internal.Option{l.option(matches[0])}
		return result
	}

	result.Status = internal.LookupAmbiguous
	if result.Message == "" {
		result.Message = msgChoose
	}
	result.Options = make([]internal.Option, 0, len(matches))
	for _, row := range matches {
		result.Options = append(result.Options, l.option(row))
	}
	return result
}

// Select resolves a disambiguation choice. Choices are row positions, so two
// registrants with the same name and birth date stay distinct.
func (l *Locator) Select(row int) (internal.Record, error) {
	if row < 0 || row >= len(l.tbl.Rows) {
		return internal.Record{}, fmt.Errorf("%w: %d", ErrUnknownRow, row)
	}
	return l.Record(row), nil
}

// Record returns the row's fields cleansed for submission: missing values
// are "" and the phone is formatted.
func (l *Locator) Record(row int) internal.Record {
	r := l.tbl.Rows[row]
	get := func(f internal.Field) string {
		return util.CleanValue(r.Cells[l.cols[f]], "")
	}
	return internal.Record{
		Row:          r.Index,
		BirthDate:    r.BirthDate,
		BirthDateRaw: get(internal.FieldBirthDate),
		Name:         get(internal.FieldName),
		Email:        get(internal.FieldEmail),
		Phone:        formatPhoneCell(get(internal.FieldPhone)),
		Municipality: get(internal.FieldMunicipality),
	}
}

// scope returns the rows eligible for matching. In multi-municipality mode
// nothing is eligible until a real municipality is chosen.
func (l *Locator) scope(municipality string) ([]int, bool) {
	if !l.opts.Multi {
		all := make([]int, len(l.tbl.Rows))
		for i := range all {
			all[i] = i
		}
		return all, false
	}
	m := strings.TrimSpace(municipality)
	if m == "" || m == MunicipalityPlaceholder {
		return nil, true
	}
	return l.index.ByMunicipality[m], false
}

func (l *Locator) option(row int) internal.Option {
	r := l.tbl.Rows[row]
	label := util.CleanValue(r.Cells[l.cols[internal.FieldName]], noName)
	if r.BirthDate != nil {
		label += " — " + util.FormatDate(r.BirthDate)
	}
	return internal.Option{Row: r.Index, Label: label}
}

func formatPhoneCell(value string) string {
	if util.PhoneDigits(value) == "" {
		return value
	}
	return util.FormatPhone(value)
}

// intersect keeps the rows of a that also appear in b, in a's order.
func intersect(a, b []int) []int {
	in := make(map[int]struct{}, len(b))
	for _, v := range b {
		in[v] = struct{}{}
	}
	out := make([]int, 0, len(b))
	for _, v := range a {
		if _, ok := in[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
