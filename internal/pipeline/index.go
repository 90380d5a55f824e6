package pipeline

import (
	"sort"
	"strings"

	"filiados/internal"
	"filiados/internal/table"
	"filiados/internal/util"
)

type Index struct {
	ByDate         map[string][]int
	ByMunicipality map[string][]int
	FoldedNameByID map[int]string
	Municipalities []string
}

func dateKey(tblRow table.Row) string {
	if tblRow.BirthDate == nil {
		return ""
	}
	return tblRow.BirthDate.Format("2006-01-02")
}

func BuildIndex(tbl *table.Table, cols Columns) *Index {
	idx := &Index{
		ByDate:         map[string][]int{},
		ByMunicipality: map[string][]int{},
		FoldedNameByID: map[int]string{},
	}

	municipalityCol := cols[internal.FieldMunicipality]
	nameCol := cols[internal.FieldName]
	for _, row := range tbl.Rows {
		if key := dateKey(row); key != "" {
			idx.ByDate[key] = append(idx.ByDate[key], row.Index)
		}
		idx.FoldedNameByID[row.Index] = util.FoldKey(row.Cells[nameCol])

		if municipalityCol == "" {
			continue
		}
		m := strings.TrimSpace(row.Cells[municipalityCol])
		if m == "" {
			continue
		}
		if _, ok := idx.ByMunicipality[m]; !ok {
			idx.Municipalities = append(idx.Municipalities, m)
		}
		idx.ByMunicipality[m] = append(idx.ByMunicipality[m], row.Index)
	}

	sort.Strings(idx.Municipalities)
	return idx
}
