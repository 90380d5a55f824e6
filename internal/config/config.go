package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var defaultTableCandidates = []string{
	"FILIADOSDADOS.CSV",
	"FILIADOSDADOS.csv",
	"FILADOSDADOS.CSV",
	"FILADOSDADOS.csv",
	"filiaDOSdados.csv",
	"filiaDOSdados.CSV",
}

const defaultSheetURL = "https://docs.google.com/spreadsheets/d/1tWyQQow2jhP50hSLSc00CvzfWVubpcd48MUeVvWTa_s/edit?gid=0"

type Config struct {
	TablePath       string
	TableCandidates []string

	MultiMunicipality bool
	Sectors           []string
	NameMatchLimit    int
	NameMinChars      int

	Sink             string
	SheetURL         string
	SheetID          string
	SheetWorksheet   string
	SheetsTimeoutMs  int
	SheetsWritesRate int

	XLSXOutput string
	DBPath     string

	CredentialsFile string
	KeyringService  string

	HTTPAddr              string
	TableWatchIntervalSec int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		TablePath:       getEnv("TABLE_PATH", ""),
		TableCandidates: defaultTableCandidates,

		MultiMunicipality: getEnvBool("MULTI_MUNICIPALITY", false),
		Sectors:           getEnvList("SECTORS", []string{"Cultura", "Agrário"}),
		NameMatchLimit:    getEnvInt("NAME_MATCH_LIMIT", 100),
		NameMinChars:      getEnvInt("NAME_MIN_CHARS", 2),

		Sink:             strings.ToLower(strings.TrimSpace(getEnv("SINK", "sheets"))),
		SheetURL:         getEnv("SHEET_URL", defaultSheetURL),
		SheetID:          getEnv("SHEET_ID", ""),
		SheetWorksheet:   getEnv("SHEET_WORKSHEET", ""),
		SheetsTimeoutMs:  getEnvInt("SHEETS_TIMEOUT_MS", 30000),
		SheetsWritesRate: getEnvInt("SHEETS_WRITES_PER_SEC", 1),

		XLSXOutput: getEnv("XLSX_OUTPUT", filepath.Join(cwd, "out", "respostas.xlsx")),
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "respostas.db")),

		CredentialsFile: getEnv("CREDENTIALS_FILE", "service_account.json"),
		KeyringService:  getEnv("KEYRING_SERVICE", "filiados"),

		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		TableWatchIntervalSec: getEnvInt("TABLE_WATCH_INTERVAL_SEC", 30),
	}

	return cfg, nil
}

// ResolveTablePath returns TABLE_PATH when set, otherwise the first existing
// candidate file name in dir.
func (c Config) ResolveTablePath(dir string) (string, error) {
	if strings.TrimSpace(c.TablePath) != "" {
		return c.TablePath, nil
	}
	for _, candidate := range c.TableCandidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no registrant table found: set TABLE_PATH or place one of %s in %s", strings.Join(c.TableCandidates, ", "), dir)
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
