// Package tui runs the contact-update flow as an interactive terminal form.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"

	"filiados/internal"
	"filiados/internal/pipeline"
	"filiados/internal/util"
)

// ErrAborted is returned when the user leaves the form.
var ErrAborted = errors.New("form aborted by user")

type Service interface {
	Multi() bool
	Sectors() []string
	Locator() (*pipeline.Locator, error)
	Lookup(q pipeline.Query) (internal.Lookup, error)
	Select(row int) (internal.Record, error)
	Submit(ctx context.Context, in internal.SubmissionInput) (internal.Payload, error)
}

type answers struct {
	municipality string
	date         string
	name         string

	fixPhone bool
	newPhone string
	fixEmail bool
	newEmail string
	sector   string
}

// Run walks the user through lookup, review, corrections and submission.
// It returns after one successful submission.
func Run(ctx context.Context, svc Service) error {
	accessible := os.Getenv("ACCESSIBLE") != ""

	loc, err := svc.Locator()
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("Atualização cadastral de filiados"))
	fmt.Println(infoText.Render(fmt.Sprintf("%d registros carregados", loc.Size())))

	var a answers
	rec, err := locate(ctx, svc, loc, accessible, &a)
	if err != nil {
		return err
	}

	fmt.Println(recordCard(rec, svc.Multi()))

	confirm := true
	if err := runForm(ctx, accessible,
		huh.NewGroup(
			huh.NewConfirm().Title("Corrigir telefone/WhatsApp?").Value(&a.fixPhone),
		),
		huh.NewGroup(
			huh.NewInput().Title("Novo celular/WhatsApp").Placeholder("(85) 99999-8888").Value(&a.newPhone),
		).WithHideFunc(func() bool { return !a.fixPhone }),
		huh.NewGroup(
			huh.NewConfirm().Title("Corrigir e-mail?").Value(&a.fixEmail),
		),
		huh.NewGroup(
			huh.NewInput().Title("Novo e-mail").Value(&a.newEmail),
		).WithHideFunc(func() bool { return !a.fixEmail }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Setorial").
				Options(sectorOptions(svc.Sectors())...).
				Value(&a.sector).
				Validate(huh.ValidateNotEmpty()),
			huh.NewConfirm().Title("Enviar atualização?").Value(&confirm),
		),
	); err != nil {
		return err
	}
	if !confirm {
		return ErrAborted
	}

	in := internal.SubmissionInput{
		Record:       rec,
		Municipality: a.municipality,
		FixPhone:     a.fixPhone,
		NewPhone:     a.newPhone,
		FixEmail:     a.fixEmail,
		NewEmail:     a.newEmail,
		Sector:       a.sector,
	}

	var payload internal.Payload
	submitErr := spinner.New().
		Title("Enviando...").
		Accessible(accessible).
		Output(os.Stderr).
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			var err error
			payload, err = svc.Submit(ctx, in)
			return err
		}).
		Run()
	if submitErr != nil {
		if errors.Is(abortError(submitErr), ErrAborted) {
			return ErrAborted
		}
		fmt.Println(errorText.Render("Falha ao enviar: " + submitErr.Error()))
		return submitErr
	}

	fmt.Println(successText.Render("Atualização registrada com sucesso."))
	fmt.Println(infoText.Render("protocolo " + payload.ID))
	return nil
}

// locate repeats the search until it yields one record or the user gives up.
func locate(ctx context.Context, svc Service, loc *pipeline.Locator, accessible bool, a *answers) (internal.Record, error) {
	for {
		var fields []huh.Field
		if svc.Multi() {
			if a.municipality == "" {
				a.municipality = pipeline.MunicipalityPlaceholder
			}
			fields = append(fields, huh.NewSelect[string]().
				Title("Município").
				Options(municipalityOptions(loc.Municipalities())...).
				Value(&a.municipality).
				Height(selectHeight(len(loc.Municipalities())+1, 12)))
		}
		fields = append(fields,
			huh.NewInput().
				Title("Data de nascimento").
				Placeholder("dd/mm/aaaa").
				Value(&a.date).
				Validate(validateDate),
			huh.NewInput().
				Title("Nome (ou parte do nome)").
				Value(&a.name),
		)
		if err := runForm(ctx, accessible, huh.NewGroup(fields...)); err != nil {
			return internal.Record{}, err
		}

		res, err := svc.Lookup(pipeline.Query{
			Municipality: a.municipality,
			Date:         util.ParseDate(a.date),
			Name:         a.name,
		})
		if err != nil {
			return internal.Record{}, err
		}

		switch res.Status {
		case internal.LookupFound:
			return *res.Record, nil
		case internal.LookupAmbiguous:
			if res.Truncated {
				fmt.Println(infoText.Render(res.Message))
			}
			row := res.Options[0].Row
			if err := runForm(ctx, accessible, huh.NewGroup(
				huh.NewSelect[int]().
					Title("Selecione o filiado").
					Options(matchOptions(res.Options)...).
					Value(&row).
					Height(selectHeight(len(res.Options), 12)),
			)); err != nil {
				return internal.Record{}, err
			}
			return svc.Select(row)
		default:
			fmt.Println(infoText.Render(res.Message))
			again := true
			if err := runForm(ctx, accessible, huh.NewGroup(
				huh.NewConfirm().Title("Buscar novamente?").Value(&again),
			)); err != nil {
				return internal.Record{}, err
			}
			if !again {
				return internal.Record{}, ErrAborted
			}
		}
	}
}

// runForm creates and runs a huh.Form bound to ctx.
func runForm(ctx context.Context, accessible bool, groups ...*huh.Group) error {
	return abortError(huh.NewForm(groups...).WithAccessible(accessible).RunWithContext(ctx))
}

// abortError maps a user abort or a cancelled context to ErrAborted.
func abortError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
		return ErrAborted
	}
	return err
}

func validateDate(value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if util.ParseDate(value) == nil {
		return errors.New("data inválida, use dd/mm/aaaa")
	}
	return nil
}

func municipalityOptions(municipalities []string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(municipalities)+1)
	options = append(options, huh.NewOption(pipeline.MunicipalityPlaceholder, pipeline.MunicipalityPlaceholder))
	for _, m := range municipalities {
		options = append(options, huh.NewOption(m, m))
	}
	return options
}

func matchOptions(matches []internal.Option) []huh.Option[int] {
	options := make([]huh.Option[int], 0, len(matches))
	for i, m := range matches {
		options = append(options, huh.NewOption(fmt.Sprintf("%d. %s", i+1, m.Label), m.Row))
	}
	return options
}

func sectorOptions(sectors []string) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(sectors))
	for _, s := range sectors {
		options = append(options, huh.NewOption(s, s))
	}
	return options
}

func selectHeight(n, max int) int {
	if n+2 < max {
		return n + 2
	}
	return max
}

// recordCard renders the on-file contact details of rec.
func recordCard(rec internal.Record, multi bool) string {
	birthDate := util.FormatDate(rec.BirthDate)
	if birthDate == "" {
		birthDate = rec.BirthDateRaw
	}
	rows := [][2]string{
		{"Nome", rec.Name},
		{"Data de nascimento", birthDate},
		{"E-mail", rec.Email},
		{"Celular/WhatsApp", rec.Phone},
	}
	if multi {
		rows = append(rows, [2]string{"Município", rec.Municipality})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(r[0]),
			valueStyle.Render(pipeline.DisplayValue(r[1])),
		))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
