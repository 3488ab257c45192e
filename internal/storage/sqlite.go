package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/codewithboateng/policylint/internal/ir"
)

// ErrNotFound is returned when a run or waiver id does not exist.
var ErrNotFound = errors.New("not found")

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id         TEXT PRIMARY KEY,
  started_at TEXT,          -- RFC3339Nano
  source     TEXT,
  ir_version TEXT,
  failed     INTEGER NOT NULL DEFAULT 0,
  run_json   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
  run_id        TEXT NOT NULL,
  seq           INTEGER NOT NULL,  -- position in the sorted report
  rule_id       TEXT NOT NULL,
  severity      TEXT NOT NULL,
  unit          TEXT NOT NULL,
  start_line    INTEGER,
  start_col     INTEGER,
  end_line      INTEGER,
  end_col       INTEGER,
  message       TEXT,
  subject       TEXT,
  suppressed    INTEGER NOT NULL DEFAULT 0,
  suppressed_by TEXT,
  PRIMARY KEY (run_id, seq),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id);
CREATE INDEX IF NOT EXISTS idx_findings_unit ON findings(unit);

CREATE TABLE IF NOT EXISTS waivers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rule_id     TEXT NOT NULL,
  unit        TEXT,              -- optional exact match; NULL = any
  pattern_sub TEXT,              -- optional substring of the message
  reason      TEXT NOT NULL,
  expires_at  TEXT NOT NULL,     -- RFC3339Nano
  created_by  TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  revoked_at  TEXT               -- NULL = active
);
`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveRun upserts a run JSON and (re)writes its findings.
func (db *DB) SaveRun(run *ir.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ts := run.StartedAt.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at, source, ir_version, failed, run_json)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, source=excluded.source,
           ir_version=excluded.ir_version, failed=excluded.failed, run_json=excluded.run_json`,
		run.ID, ts, run.Source, run.IRVersion, run.Report.Failed(), string(b),
	); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM findings WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	if len(run.Report.Findings) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO findings
			(run_id, seq, rule_id, severity, unit, start_line, start_col, end_line, end_col, message, subject, suppressed, suppressed_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, f := range run.Report.Findings {
			if _, err := stmt.Exec(
				run.ID,
				i,
				f.RuleID,
				string(f.Severity),
				f.Unit,
				f.Span.Start.Line,
				f.Span.Start.Column,
				f.Span.End.Line,
				f.Span.End.Column,
				f.Message,
				nz(f.Subject),
				f.Suppressed,
				nz(f.SuppressedBy),
			); err != nil {
				return fmt.Errorf("save finding %d of run %s: %w", i, run.ID, err)
			}
		}
	}

	return tx.Commit()
}

// LoadRun returns the full run (from stored JSON).
func (db *DB) LoadRun(id string) (ir.Run, error) {
	var s string
	row := db.conn.QueryRow(`SELECT run_json FROM runs WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return ir.Run{}, err
	}
	var run ir.Run
	if err := json.Unmarshal([]byte(s), &run); err != nil {
		return ir.Run{}, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (ir.Run, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return ir.Run{}, err
	}
	return db.LoadRun(id)
}

func nz(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
