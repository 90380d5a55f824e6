package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"filiados/internal/config"
	"filiados/internal/pipeline"
	"filiados/internal/sink"
	"filiados/internal/table"
)

const fixture = "Nome do Filiado;Data de Nascimento;E-mail;Celular WhatsApp;Município\n" +
	"Maria Silva;15/03/1980;maria@example.com;85999998888.0;Fortaleza\n" +
	"João Paulo;01/01/1990;jp@example.com;85988887777;Fortaleza\n" +
	"João Pedro;01/01/1990;;nan;Caucaia\n"

type memorySink struct {
	rows [][]string
	err  error
}

func (m *memorySink) EnsureHeader(ctx context.Context, target sink.Target, header []string) error {
	if len(m.rows) == 0 {
		m.rows = append(m.rows, header)
	}
	return nil
}

func (m *memorySink) Append(ctx context.Context, target sink.Target, row []string) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

func newTestRouter(t *testing.T, body string, multi bool, s sink.Sink) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "filiados.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{MultiMunicipality: multi, Sectors: []string{"Cultura", "Agrário"}}
	svc := pipeline.NewService(cfg, path, table.NewCache(), sink.NewWriter(s, nil), sink.Target{SpreadsheetID: "sheet"})
	return NewRouter(svc)
}

func do(t *testing.T, router http.Handler, method, target string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(blob)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, fixture, false, &memorySink{})
	code, body := do(t, router, http.MethodGet, "/health", nil)
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("code=%d body=%v", code, body)
	}
}

func TestLookupFound(t *testing.T) {
	router := newTestRouter(t, fixture, false, &memorySink{})
	code, body := do(t, router, http.MethodGet, "/api/registrants?date=15/03/1980", nil)
	if code != http.StatusOK || body["status"] != "found" {
		t.Fatalf("code=%d body=%v", code, body)
	}
	record := body["record"].(map[string]any)
	if record["celular_whatsapp"] != "(85) 99999-8888" || record["data_nascimento"] != "15/03/1980" {
		t.Fatalf("record=%v", record)
	}
}

func TestLookupShowsPlaceholder(t *testing.T) {
	router := newTestRouter(t, fixture, false, &memorySink{})
	code, body := do(t, router, http.MethodGet, "/api/registrants?name=pedro", nil)
	if code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	record := body["record"].(map[string]any)
	if record["email"] != "Sem informação — favor atualizar" {
		t.Fatalf("email=%v", record["email"])
	}
}

func TestLookupMissIsOK(t *testing.T) {
	router := newTestRouter(t, fixture, false, &memorySink{})
	code, body := do(t, router, http.MethodGet, "/api/registrants?name=inexistente", nil)
	if code != http.StatusOK || body["status"] != "not_found" {
		t.Fatalf("code=%d body=%v", code, body)
	}

	code, _ = do(t, router, http.MethodGet, "/api/registrants?date=ontem", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad date code=%d", code)
	}
}

func TestMissingColumnsIsUnavailable(t *testing.T) {
	router := newTestRouter(t, "nome;nascimento;celular\nMaria;15/03/1980;859\n", false, &memorySink{})
	code, body := do(t, router, http.MethodGet, "/api/registrants?name=maria", nil)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d", code)
	}
	if !strings.Contains(body["error"].(string), "E-mail") {
		t.Fatalf("error=%v", body["error"])
	}
}

func TestMultiMunicipalityFlow(t *testing.T) {
	mem := &memorySink{}
	router := newTestRouter(t, fixture, true, mem)

	_, body := do(t, router, http.MethodGet, "/api/municipalities", nil)
	if diff := cmp.Diff([]any{"Caucaia", "Fortaleza"}, body["municipalities"]); diff != "" {
		t.Fatalf("municipalities mismatch (-want +got):\n%s", diff)
	}

	_, body = do(t, router, http.MethodGet, "/api/registrants?name=joao", nil)
	if body["status"] != "blocked" {
		t.Fatalf("status=%v", body["status"])
	}

	_, body = do(t, router, http.MethodGet, "/api/registrants?municipio=Fortaleza&date=01/01/1990", nil)
	if body["status"] != "found" {
		t.Fatalf("status=%v", body["status"])
	}

	code, _ := do(t, router, http.MethodPost, "/api/submissions", map[string]any{
		"row": 1, "municipio": "Caucaia", "setorial": "Cultura",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("row outside municipality code=%d", code)
	}

	code, body = do(t, router, http.MethodPost, "/api/submissions", map[string]any{
		"row": 1, "municipio": "Fortaleza", "setorial": "Cultura",
		"corrigir_telefone": true, "novo_telefone": "(85) 9 7777-6666",
	})
	if code != http.StatusCreated {
		t.Fatalf("code=%d body=%v", code, body)
	}
	if len(mem.rows) != 2 || mem.rows[1][1] != "Fortaleza" {
		t.Fatalf("rows=%v", mem.rows)
	}
}

func TestSubmitErrors(t *testing.T) {
	mem := &memorySink{err: errors.New("googleapi: Error 429: Quota exceeded")}
	router := newTestRouter(t, fixture, false, mem)

	code, _ := do(t, router, http.MethodPost, "/api/submissions", map[string]any{"setorial": "Cultura"})
	if code != http.StatusBadRequest {
		t.Fatalf("missing row code=%d", code)
	}

	code, _ = do(t, router, http.MethodPost, "/api/submissions", map[string]any{"row": 0, "setorial": "Saúde"})
	if code != http.StatusBadRequest {
		t.Fatalf("bad sector code=%d", code)
	}

	code, _ = do(t, router, http.MethodPost, "/api/submissions", map[string]any{"row": 42, "setorial": "Cultura"})
	if code != http.StatusNotFound {
		t.Fatalf("unknown row code=%d", code)
	}

	code, body := do(t, router, http.MethodPost, "/api/submissions", map[string]any{"row": 0, "setorial": "Cultura"})
	if code != http.StatusBadGateway {
		t.Fatalf("sink failure code=%d", code)
	}
	if !strings.Contains(body["error"].(string), "Quota exceeded") {
		t.Fatalf("error=%v", body["error"])
	}
}

func TestInvalidateTable(t *testing.T) {
	router := newTestRouter(t, fixture, false, &memorySink{})
	do(t, router, http.MethodGet, "/api/registrants?name=maria", nil)
	code, body := do(t, router, http.MethodPost, "/api/table/invalidate", nil)
	if code != http.StatusOK || body["invalidated"] != true {
		t.Fatalf("code=%d body=%v", code, body)
	}
}
