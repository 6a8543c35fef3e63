package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"vblocks.ai/internal/build/placement"
)

type AuditQuery struct {
	Avatar string
	// Cell restricts results to one lattice cell when set.
	Cell  *[3]int64
	Limit int
}

type ActionCount struct {
	Avatar string
	Action string
	Count  int64
}

type CatalogRow struct {
	Name      string
	Digest    string
	JSON      string
	UpdatedAt string
}

// Reader runs queries against an index written by SQLiteIndex.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

// Audit returns matching entries, newest first.
func (r *Reader) Audit(ctx context.Context, q AuditQuery) ([]placement.AuditEntry, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	query := `SELECT raw_json FROM audit WHERE 1=1`
	var args []any
	if q.Avatar != "" {
		query += ` AND avatar = ?`
		args = append(args, q.Avatar)
	}
	if q.Cell != nil {
		query += ` AND cx = ? AND cy = ? AND cz = ?`
		args = append(args, q.Cell[0], q.Cell[1], q.Cell[2])
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []placement.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e placement.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode audit row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts totals audit rows per avatar and action.
func (r *Reader) Counts(ctx context.Context) ([]ActionCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT avatar, action, COUNT(*) FROM audit GROUP BY avatar, action ORDER BY avatar, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActionCount
	for rows.Next() {
		var c ActionCount
		if err := rows.Scan(&c.Avatar, &c.Action, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Reader) Catalogs(ctx context.Context) ([]CatalogRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, digest, json, updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CatalogRow
	for rows.Next() {
		var c CatalogRow
		if err := rows.Scan(&c.Name, &c.Digest, &c.JSON, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
