package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"filiados/internal/sink"
)

// DB is a sqlite-backed sink. Each target keeps its header in headers and
// its rows, in append order, in submissions.
type DB struct {
	conn *sql.DB
}

type Submission struct {
	ID        int
	Worksheet string
	Values    []string
	CreatedAt string
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS headers (
  worksheet TEXT PRIMARY KEY,
  header_json TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS submissions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  worksheet TEXT NOT NULL,
  row_json TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_submissions_worksheet ON submissions(worksheet);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) EnsureHeader(ctx context.Context, target sink.Target, header []string) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = d.conn.ExecContext(ctx, `
INSERT INTO headers (worksheet, header_json) VALUES (?, ?)
ON CONFLICT(worksheet) DO NOTHING
`, worksheetKey(target), string(headerJSON))
	return err
}

func (d *DB) Append(ctx context.Context, target sink.Target, row []string) error {
	rowJSON, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = d.conn.ExecContext(ctx, `INSERT INTO submissions (worksheet, row_json) VALUES (?, ?)`, worksheetKey(target), string(rowJSON))
	return err
}

// Header returns the stored header of target, or nil when none was written.
func (d *DB) Header(target sink.Target) ([]string, error) {
	var headerJSON string
	err := d.conn.QueryRow(`SELECT header_json FROM headers WHERE worksheet = ?`, worksheetKey(target)).Scan(&headerJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var header []string
	if err := json.Unmarshal([]byte(headerJSON), &header); err != nil {
		return nil, err
	}
	return header, nil
}

func (d *DB) ListSubmissions(target sink.Target, limit int) ([]Submission, error) {
	rows, err := d.conn.Query(`
SELECT id, worksheet, row_json, created_at
FROM submissions WHERE worksheet = ? ORDER BY id ASC LIMIT ?
`, worksheetKey(target), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		var rowJSON string
		if err := rows.Scan(&s.ID, &s.Worksheet, &rowJSON, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rowJSON), &s.Values); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func worksheetKey(target sink.Target) string {
	if key := target.String(); key != "" {
		return key
	}
	return "default"
}
