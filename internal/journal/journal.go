// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package journal persists one row per reconciliation cycle in a local
// SQLite database. The journal is pure observability: the engine never
// reads it to make decisions, it only lets an operator see what past runs
// did without re-running them.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
)

// Entry is one recorded cycle for one entity.
type Entry struct {
	RunID      string
	Entity     string
	StartedAt  time.Time
	FinishedAt time.Time
	Created    int
	Updated    int
	Deleted    int
	Failed     int
	Skipped    int
	Failures   []boardsync.Failure
}

// Journal wraps the run history database.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT NOT NULL,
			entity      TEXT NOT NULL,
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			created     INTEGER NOT NULL DEFAULT 0,
			updated     INTEGER NOT NULL DEFAULT 0,
			deleted     INTEGER NOT NULL DEFAULT 0,
			failed      INTEGER NOT NULL DEFAULT 0,
			skipped     INTEGER NOT NULL DEFAULT 0,
			failures    TEXT, -- JSON array, NULL when the cycle was clean
			PRIMARY KEY (run_id, entity)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one cycle entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	var failures sql.NullString
	if len(e.Failures) > 0 {
		encoded, err := json.Marshal(e.Failures)
		if err != nil {
			return fmt.Errorf("encode failures: %w", err)
		}
		failures = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, entity, started_at, finished_at,
			created, updated, deleted, failed, skipped, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Entity,
		e.StartedAt.UTC().Format(time.RFC3339),
		e.FinishedAt.UTC().Format(time.RFC3339),
		e.Created, e.Updated, e.Deleted, e.Failed, e.Skipped, failures)
	if err != nil {
		return fmt.Errorf("insert run entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, entity, started_at, finished_at,
			created, updated, deleted, failed, skipped, failures
		FROM runs ORDER BY started_at DESC, entity LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished string
		var failures sql.NullString
		if err := rows.Scan(&e.RunID, &e.Entity, &started, &finished,
			&e.Created, &e.Updated, &e.Deleted, &e.Failed, &e.Skipped, &failures); err != nil {
			return nil, fmt.Errorf("scan run entry: %w", err)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339, started)
		e.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		if failures.Valid {
			if err := json.Unmarshal([]byte(failures.String), &e.Failures); err != nil {
				return nil, fmt.Errorf("decode failures for run %s: %w", e.RunID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
