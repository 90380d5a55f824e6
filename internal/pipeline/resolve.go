package pipeline

import (
	"fmt"
	"strings"

	"filiados/internal"
	"filiados/internal/util"
)

// AliasSet lists, per logical field, the accepted header spellings in
// priority order.
type AliasSet map[internal.Field][]string

func DefaultAliases() AliasSet {
	return AliasSet{
		internal.FieldBirthDate:    {"data_de_nascimento", "data_nascimento", "data_nasc", "nascimento", "dt_nasc", "dt_nascimento"},
		internal.FieldName:         {"nome_do_filiado", "nome", "nome_completo"},
		internal.FieldEmail:        {"e-mail", "email", "e_mail"},
		internal.FieldPhone:        {"celular_whatsapp", "celular", "telefone", "telefone_whatsapp", "whatsapp"},
		internal.FieldMunicipality: {"municipio", "cidade", "municipio_de_residencia", "municipio_do_filiado"},
	}
}

type requiredField struct {
	field internal.Field
	label string
}

var requiredFields = []requiredField{
	{internal.FieldBirthDate, "Data de Nascimento"},
	{internal.FieldName, "Nome"},
	{internal.FieldEmail, "E-mail"},
	{internal.FieldPhone, "Celular/WhatsApp"},
}

var municipalityField = requiredField{internal.FieldMunicipality, "Município"}

// Columns maps each logical field to the table column that holds it. An empty
// value means the field was not found.
type Columns map[internal.Field]string

type MissingColumnsError struct {
	Labels []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("required columns not found: %s", strings.Join(e.Labels, ", "))
}

// ResolveColumn returns the first alias present in columns after both sides
// are normalized, or "" when none is.
func ResolveColumn(columns []string, aliases []string) string {
	present := make(map[string]string, len(columns))
	for _, c := range columns {
		key := util.NormalizeColumn(c)
		if _, ok := present[key]; !ok {
			present[key] = c
		}
	}
	for _, alias := range aliases {
		if col, ok := present[util.NormalizeColumn(alias)]; ok {
			return col
		}
	}
	return ""
}

// ResolveColumns resolves every logical field. Missing mandatory fields are
// reported together, labeled for the operator; municipality is mandatory only
// when withMunicipality is set.
func ResolveColumns(columns []string, aliases AliasSet, withMunicipality bool) (Columns, error) {
	out := Columns{}
	for field, list := range aliases {
		out[field] = ResolveColumn(columns, list)
	}

	required := requiredFields
	if withMunicipality {
		required = append(append([]requiredField{}, requiredFields...), municipalityField)
	}

	var missing []string
	for _, r := range required {
		if out[r.field] == "" {
			missing = append(missing, r.label)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Labels: missing}
	}
	return out, nil
}
