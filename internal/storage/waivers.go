package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/codewithboateng/policylint/internal/ir"
)

// CreateWaiver stores w and returns its id. ID, CreatedAt and RevokedAt
// are assigned here.
func (db *DB) CreateWaiver(w ir.Waiver) (int64, error) {
	if strings.TrimSpace(w.RuleID) == "" || strings.TrimSpace(w.Reason) == "" || w.ExpiresAt.IsZero() {
		return 0, fmt.Errorf("waiver needs rule_id, reason and expires_at")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := db.conn.Exec(`
INSERT INTO waivers(rule_id, unit, pattern_sub, reason, expires_at, created_by, created_at)
VALUES(?,?,?,?,?,?,?)`,
		w.RuleID, nz(w.Unit), nz(w.PatternSub), w.Reason, w.ExpiresAt.UTC().Format(time.RFC3339Nano), w.CreatedBy, now)
	if err != nil {
		return 0, fmt.Errorf("create waiver: %w", err)
	}
	return res.LastInsertId()
}

// RevokeWaiver marks a waiver revoked. Revoking twice is a no-op; an
// unknown id is ErrNotFound.
func (db *DB) RevokeWaiver(id int64) error {
	res, err := db.conn.Exec(`UPDATE waivers SET revoked_at=? WHERE id=? AND revoked_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := db.conn.QueryRow(`SELECT 1 FROM waivers WHERE id=?`, id).Scan(&one); err == sql.ErrNoRows {
			return fmt.Errorf("waiver %d: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (db *DB) ListWaivers(activeOnly bool) ([]ir.Waiver, error) {
	q := `
SELECT id, rule_id, COALESCE(unit,''), COALESCE(pattern_sub,''),
       reason, expires_at, created_by, created_at, revoked_at
FROM waivers`
	args := []any{}
	if activeOnly {
		q += ` WHERE (revoked_at IS NULL) AND (expires_at > ?)`
		args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	}
	q += ` ORDER BY id DESC`
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ir.Waiver{}
	for rows.Next() {
		var (
			w           ir.Waiver
			exp, ca, ra sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.RuleID, &w.Unit, &w.PatternSub, &w.Reason, &exp, &w.CreatedBy, &ca, &ra); err != nil {
			return nil, err
		}
		if exp.Valid {
			w.ExpiresAt = parseTime(exp.String)
		}
		if ca.Valid {
			w.CreatedAt = parseTime(ca.String)
		}
		if ra.Valid {
			t := parseTime(ra.String)
			w.RevokedAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
