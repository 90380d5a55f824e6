package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"filiados/internal"
	"filiados/internal/util"
)

const (
	KeyTimestamp    = "timestamp"
	KeyMunicipality = "municipio"
	KeyBirthDate    = "data_nascimento"
	KeyName         = "nome_do_filiado"
	KeyEmail        = "email_atual"
	KeyPhone        = "celular_whatsapp_atual"
	KeyFixPhone     = "corrigir_telefone_whatsapp"
	KeyNewPhone     = "novo_celular_whatsapp"
	KeyFixEmail     = "corrigir_email"
	KeyNewEmail     = "novo_email"
	KeySector       = "setorial"

	TokenYes = "Sim"
	TokenNo  = "Não"

	TimestampLayout = "2006-01-02 15:04:05"
)

var ErrInvalidSector = errors.New("invalid sector")

// Header returns the sink header row. The municipality column exists only in
// multi-municipality mode.
func Header(withMunicipality bool) []string {
	header := []string{KeyTimestamp}
	if withMunicipality {
		header = append(header, KeyMunicipality)
	}
	return append(header,
		KeyBirthDate,
		KeyName,
		KeyEmail,
		KeyPhone,
		KeyFixPhone,
		KeyNewPhone,
		KeyFixEmail,
		KeyNewEmail,
		KeySector,
	)
}

// Assembler builds submission payloads whose keys follow Header exactly.
type Assembler struct {
	header  []string
	sectors []string
	now     func() time.Time
}

func NewAssembler(withMunicipality bool, sectors []string) *Assembler {
	return &Assembler{header: Header(withMunicipality), sectors: sectors, now: time.Now}
}

func (a *Assembler) Header() []string {
	out := make([]string, len(a.header))
	copy(out, a.header)
	return out
}

func (a *Assembler) Sectors() []string {
	out := make([]string, len(a.sectors))
	copy(out, a.sectors)
	return out
}

func (a *Assembler) Assemble(in internal.SubmissionInput) (internal.Payload, error) {
	sector := strings.TrimSpace(in.Sector)
	if !a.validSector(sector) {
		return internal.Payload{}, fmt.Errorf("%w: %q", ErrInvalidSector, in.Sector)
	}

	rec := in.Record
	birthDate := util.FormatDate(rec.BirthDate)
	if birthDate == "" {
		birthDate = util.CleanValue(rec.BirthDateRaw, "")
	}
	municipality := strings.TrimSpace(in.Municipality)
	if municipality == "" {
		municipality = rec.Municipality
	}

	newPhone := ""
	if in.FixPhone {
		newPhone = util.PhoneDigits(in.NewPhone)
	}
	newEmail := ""
	if in.FixEmail {
		newEmail = strings.TrimSpace(in.NewEmail)
	}

	values := map[string]string{
		KeyTimestamp:    a.now().Format(TimestampLayout),
		KeyMunicipality: municipality,
		KeyBirthDate:    birthDate,
		KeyName:         util.CleanValue(rec.Name, ""),
		KeyEmail:        util.CleanValue(rec.Email, ""),
		KeyPhone:        formatPhoneCell(util.CleanValue(rec.Phone, "")),
		KeyFixPhone:     yesNo(in.FixPhone),
		KeyNewPhone:     newPhone,
		KeyFixEmail:     yesNo(in.FixEmail),
		KeyNewEmail:     newEmail,
		KeySector:       sector,
	}

	payload := internal.Payload{
		ID:     uuid.NewString(),
		Keys:   a.Header(),
		Values: make([]string, 0, len(a.header)),
	}
	for _, k := range a.header {
		payload.Values = append(payload.Values, values[k])
	}
	return payload, nil
}

func (a *Assembler) validSector(sector string) bool {
	if sector == "" {
		return false
	}
	if len(a.sectors) == 0 {
		return true
	}
	for _, s := range a.sectors {
		if s == sector {
			return true
		}
	}
	return false
}

func yesNo(v bool) string {
	if v {
		return TokenYes
	}
	return TokenNo
}
