package internal

import "time"

type Field string

const (
	FieldBirthDate    Field = "birth_date"
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
	FieldMunicipality Field = "municipality"
)

type LookupStatus string

const (
	LookupFound     LookupStatus = "found"
	LookupAmbiguous LookupStatus = "ambiguous"
	LookupNotFound  LookupStatus = "not_found"
	LookupRefine    LookupStatus = "refine"
	LookupBlocked   LookupStatus = "blocked"
)

// Record is one registrant row with its fields already cleansed for display.
type Record struct {
	Row          int
	BirthDate    *time.Time
	BirthDateRaw string
	Name         string
	Email        string
	Phone        string
	Municipality string
}

type Option struct {
	Row   int    `json:"row"`
	Label string `json:"label"`
}

type Lookup struct {
	Status    LookupStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Options   []Option     `json:"options,omitempty"`
	Truncated bool         `json:"truncated,omitempty"`
	Record    *Record      `json:"-"`
}

type SubmissionInput struct {
	Record       Record
	Municipality string
	FixPhone     bool
	NewPhone     string
	FixEmail     bool
	NewEmail     string
	Sector       string
}

// Payload is an ordered submission row. Keys always equal the sink header.
type Payload struct {
	ID     string
	Keys   []string
	Values []string
}

func (p Payload) Get(key string) (string, bool) {
	for i, k := range p.Keys {
		if k == key {
			return p.Values[i], true
		}
	}
	return "", false
}

func (p Payload) Map() map[string]string {
	out := make(map[string]string, len(p.Keys))
	for i, k := range p.Keys {
		out[k] = p.Values[i]
	}
	return out
}
