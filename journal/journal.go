// Package journal records manifest validation runs in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/stevecastle/stereoprep/manifest"
)

// Journal is a validation history backed by a database.
type Journal struct {
	Db *sql.DB
}

// Run summarizes one validation run.
type Run struct {
	ID        string
	Manifest  string
	StartedAt time.Time
	Total     int
	Kept      int
	Errors    int
}

// Drop is one record rejected by a run.
type Drop struct {
	RunID       string
	RecordIndex int
	Reason      string
	Paths       []string
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One connection keeps in-memory databases and transactions coherent.
	db.SetMaxOpenConns(1)
	j, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// NewWithDB wraps an open database, creating the tables if needed.
func NewWithDB(db *sql.DB) (*Journal, error) {
	j := &Journal{Db: db}
	if err := j.createTables(); err != nil {
		return nil, fmt.Errorf("create journal tables: %w", err)
	}
	return j, nil
}

func (j *Journal) createTables() error {
	_, err := j.Db.Exec(`
	CREATE TABLE IF NOT EXISTS validation_runs (
		id TEXT PRIMARY KEY,
		manifest TEXT NOT NULL,
		started_at INTEGER NOT NULL, -- unix nanoseconds
		total INTEGER NOT NULL,
		kept INTEGER NOT NULL,
		errors INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = j.Db.Exec(`
	CREATE TABLE IF NOT EXISTS validation_drops (
		run_id TEXT NOT NULL REFERENCES validation_runs(id),
		record_index INTEGER NOT NULL,
		reason TEXT NOT NULL,
		paths TEXT -- JSON array
	)`)
	return err
}

// RecordRun stores a validation report and returns the new run id.
func (j *Journal) RecordRun(ctx context.Context, manifestPath string, startedAt time.Time, rep manifest.Report) (string, error) {
	id := uuid.NewString()
	tx, err := j.Db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO validation_runs (id, manifest, started_at, total, kept, errors) VALUES (?, ?, ?, ?, ?, ?)`,
		id, manifestPath, startedAt.UnixNano(), rep.Total, len(rep.Kept), rep.Errors)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for _, d := range rep.Dropped {
		pathsJSON, _ := json.Marshal(d.Entry.Paths())
		_, err := tx.ExecContext(ctx,
			`INSERT INTO validation_drops (run_id, record_index, reason, paths) VALUES (?, ?, ?, ?)`,
			id, d.Index, d.Reason, string(pathsJSON))
		if err != nil {
			return "", fmt.Errorf("insert drop %d: %w", d.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Runs lists runs, newest first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.Db.QueryContext(ctx, `
	SELECT id, manifest, started_at, total, kept, errors
	FROM validation_runs
	ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		if err := rows.Scan(&r.ID, &r.Manifest, &started, &r.Total, &r.Kept, &r.Errors); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Drops lists the records a run rejected, in manifest order.
func (j *Journal) Drops(ctx context.Context, runID string) ([]Drop, error) {
	rows, err := j.Db.QueryContext(ctx, `
	SELECT run_id, record_index, reason, COALESCE(paths, '[]')
	FROM validation_drops
	WHERE run_id = ?
	ORDER BY record_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drops []Drop
	for rows.Next() {
		var d Drop
		var pathsJSON string
		if err := rows.Scan(&d.RunID, &d.RecordIndex, &d.Reason, &pathsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pathsJSON), &d.Paths); err != nil {
			d.Paths = []string{}
		}
		drops = append(drops, d)
	}
	return drops, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.Db.Close()
}
