// Package web exposes the lookup and submission flow as a JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"filiados/internal"
	"filiados/internal/pipeline"
	"filiados/internal/util"
)

type Service interface {
	Multi() bool
	Sectors() []string
	Locator() (*pipeline.Locator, error)
	Lookup(q pipeline.Query) (internal.Lookup, error)
	Select(row int) (internal.Record, error)
	Submit(ctx context.Context, in internal.SubmissionInput) (internal.Payload, error)
	Invalidate() bool
}

type Handlers struct {
	svc Service
}

func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// NewRouter registers every route on a gin engine with the default
// middleware.
func NewRouter(svc Service) *gin.Engine {
	router := gin.Default()
	router.Use(CORS())

	h := NewHandlers(svc)
	router.GET("/health", h.HealthCheck)
	api := router.Group("/api")
	api.GET("/form", h.Form)
	api.GET("/municipalities", h.Municipalities)
	api.GET("/registrants", h.Lookup)
	api.POST("/submissions", h.Submit)
	api.POST("/table/invalidate", h.InvalidateTable)
	return router
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Form describes what a client needs to render the form.
func (h *Handlers) Form(c *gin.Context) {
	loc, err := h.svc.Locator()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"multi_municipality": h.svc.Multi(),
		"placeholder":        pipeline.MunicipalityPlaceholder,
		"municipalities":     municipalities(loc, h.svc.Multi()),
		"sectors":            h.svc.Sectors(),
		"rows":               loc.Size(),
	})
}

func (h *Handlers) Municipalities(c *gin.Context) {
	loc, err := h.svc.Locator()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"municipalities": municipalities(loc, h.svc.Multi())})
}

type recordView struct {
	Row          int    `json:"row"`
	BirthDate    string `json:"data_nascimento"`
	Name         string `json:"nome"`
	Email        string `json:"email"`
	Phone        string `json:"celular_whatsapp"`
	Municipality string `json:"municipio,omitempty"`
}

type lookupView struct {
	internal.Lookup
	Record *recordView `json:"record,omitempty"`
}

func (h *Handlers) Lookup(c *gin.Context) {
	q := pipeline.Query{
		Municipality: c.Query("municipio"),
		Name:         c.Query("name"),
	}
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		q.Date = util.ParseDate(raw)
		if q.Date == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "data de nascimento inválida: " + raw})
			return
		}
	}

	res, err := h.svc.Lookup(q)
	if err != nil {
		writeError(c, err)
		return
	}
	out := lookupView{Lookup: res}
	if res.Record != nil {
		view := viewRecord(*res.Record, h.svc.Multi())
		out.Record = &view
	}
	c.JSON(http.StatusOK, out)
}

type submissionRequest struct {
	Row          *int   `json:"row"`
	Municipality string `json:"municipio"`
	FixPhone     bool   `json:"corrigir_telefone"`
	NewPhone     string `json:"novo_telefone"`
	FixEmail     bool   `json:"corrigir_email"`
	NewEmail     string `json:"novo_email"`
	Sector       string `json:"setorial"`
}

func (h *Handlers) Submit(c *gin.Context) {
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	if req.Row == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row is required"})
		return
	}

	municipality := strings.TrimSpace(req.Municipality)
	if h.svc.Multi() && (municipality == "" || municipality == pipeline.MunicipalityPlaceholder) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Selecione o município para continuar."})
		return
	}

	rec, err := h.svc.Select(*req.Row)
	if err != nil {
		writeError(c, err)
		return
	}
	if h.svc.Multi() && rec.Municipality != municipality {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("registro %d não pertence a %s", *req.Row, municipality)})
		return
	}

	payload, err := h.svc.Submit(c.Request.Context(), internal.SubmissionInput{
		Record:       rec,
		Municipality: municipality,
		FixPhone:     req.FixPhone,
		NewPhone:     req.NewPhone,
		FixEmail:     req.FixEmail,
		NewEmail:     req.NewEmail,
		Sector:       req.Sector,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":     payload.ID,
		"header": payload.Keys,
		"values": payload.Values,
	})
}

func (h *Handlers) InvalidateTable(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"invalidated": h.svc.Invalidate()})
}

// writeError maps service errors to status codes. Sink failures keep their
// original text.
func writeError(c *gin.Context, err error) {
	switch {
	case pipeline.IsConfigError(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrUnknownRow):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrInvalidSector):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func municipalities(loc *pipeline.Locator, multi bool) []string {
	if !multi {
		return []string{}
	}
	return loc.Municipalities()
}

func viewRecord(rec internal.Record, multi bool) recordView {
	birthDate := util.FormatDate(rec.BirthDate)
	if birthDate == "" {
		birthDate = rec.BirthDateRaw
	}
	view := recordView{
		Row:       rec.Row,
		BirthDate: pipeline.DisplayValue(birthDate),
		Name:      pipeline.DisplayValue(rec.Name),
		Email:     pipeline.DisplayValue(rec.Email),
		Phone:     pipeline.DisplayValue(rec.Phone),
	}
	if multi {
		view.Municipality = pipeline.DisplayValue(rec.Municipality)
	}
	return view
}
