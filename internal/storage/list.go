package storage

import (
	"database/sql"
	"errors"

	"github.com/codewithboateng/policylint/internal/ir"
)

// ListRuns returns a lightweight list of runs with counts.
func (db *DB) ListRuns(limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT r.id, r.started_at, r.source, r.ir_version, r.failed,
		       (SELECT COUNT(1) FROM findings f WHERE f.run_id = r.id AND f.suppressed = 0) AS findings,
		       (SELECT COUNT(1) FROM findings f WHERE f.run_id = r.id AND f.suppressed = 1) AS suppressed
		  FROM runs r
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunRow{}
	for rows.Next() {
		var rr RunRow
		var startedAtStr string
		if err := rows.Scan(&rr.ID, &startedAtStr, &rr.Source, &rr.IRVersion, &rr.Failed, &rr.Findings, &rr.Suppressed); err != nil {
			return nil, err
		}
		rr.StartedAt = parseTime(startedAtStr)
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListFindings returns findings for a run at or above a minimum severity,
// in report order. An empty minSeverity means info.
func (db *DB) ListFindings(runID string, minSeverity ir.Severity, includeSuppressed bool) ([]ir.Finding, error) {
	if minSeverity == "" {
		minSeverity = ir.SeverityInfo
	}
	const q = `
		SELECT rule_id, severity, unit, start_line, start_col, end_line, end_col,
		       message, COALESCE(subject, ''), suppressed, COALESCE(suppressed_by, '')
		  FROM findings
		 WHERE run_id = ?
		   AND (CASE severity WHEN 'error' THEN 3 WHEN 'warning' THEN 2 ELSE 1 END) >= ?
		   AND (? OR suppressed = 0)
		 ORDER BY seq`
	rows, err := db.conn.Query(q, runID, minSeverity.Rank(), includeSuppressed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ir.Finding{}
	for rows.Next() {
		var f ir.Finding
		if err := rows.Scan(&f.RuleID, &f.Severity, &f.Unit,
			&f.Span.Start.Line, &f.Span.Start.Column, &f.Span.End.Line, &f.Span.End.Column,
			&f.Message, &f.Subject, &f.Suppressed, &f.SuppressedBy); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (db *DB) HasRun(id string) (bool, error) {
	const q = `SELECT 1 FROM runs WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
