// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package boardsync reconciles a freshly observed set of source records
// against a remote, independently owned board. One cycle runs
// fetch-snapshot -> prune -> diff -> apply; the source is always
// authoritative and the board is only ever a write target. Cycles are
// idempotent: rerunning against an unchanged source never duplicates
// records, because matching goes through derived business keys instead of
// store ids.
package boardsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// EntityConfig holds everything the engine needs to reconcile one entity
// type (shifts, employees) against its board.
type EntityConfig struct {
	// Name identifies the entity in logs and the run journal.
	Name string

	// KeyFields is the ordered field list the business key derives from.
	KeyFields []string

	// Columns maps source fields to board columns.
	Columns []ColumnDef

	// AlwaysSend lists source fields that are emitted as explicit empties
	// when absent, instead of being omitted.
	AlwaysSend []string

	// DateField and RetentionDays configure the retention pruner. A zero
	// RetentionDays disables pruning.
	DateField     string
	RetentionDays int

	// Strategy decides whether matched records are rewritten. Defaults to
	// AlwaysWrite.
	Strategy DiffStrategy

	// Resolver resolves relation column names, when the entity has any.
	Resolver RelationResolver
}

// Engine runs reconciliation cycles for one entity type. All state is
// cycle-local; the engine itself holds only configuration and
// collaborators and is safe to reuse across cycles.
type Engine struct {
	board    Board
	cfg      EntityConfig
	mapper   *FieldMapper
	planner  *Planner
	executor *Executor
	pruner   *Pruner
	logger   *slog.Logger

	// DryRun plans the cycle and logs the operation set without touching
	// the board.
	DryRun bool
}

// NewEngine validates the entity configuration and wires the cycle
// components.
func NewEngine(board Board, cfg EntityConfig, logger *slog.Logger) (*Engine, error) {
	if board == nil {
		return nil, fmt.Errorf("board cannot be nil")
	}
	if len(cfg.KeyFields) == 0 {
		return nil, fmt.Errorf("entity %q: key fields must be configured", cfg.Name)
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("entity %q: columns must be configured", cfg.Name)
	}
	if cfg.RetentionDays > 0 && cfg.DateField == "" {
		return nil, fmt.Errorf("entity %q: retention requires a date field", cfg.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("entity", cfg.Name)

	mapper := NewFieldMapper(cfg.Columns, cfg.AlwaysSend, cfg.Resolver, logger)
	engine := &Engine{
		board:    board,
		cfg:      cfg,
		mapper:   mapper,
		planner:  NewPlanner(cfg.KeyFields, mapper, cfg.Strategy, logger),
		executor: NewExecutor(board, logger),
		logger:   logger,
	}
	if cfg.RetentionDays > 0 {
		engine.pruner = NewPruner(board, cfg.DateField, cfg.RetentionDays, logger)
	}
	return engine, nil
}

// WithBatch adjusts the executor's batch shape (mostly for tests).
func (e *Engine) WithBatch(size int, delay time.Duration) *Engine {
	e.executor.WithBatch(size, delay)
	return e
}

// RunCycle executes one full reconciliation cycle against the board. The
// returned error is fatal (remote snapshot could not be built); per-record
// failures are reported through the outcome instead and never abort the
// cycle.
func (e *Engine) RunCycle(ctx context.Context, source []SourceRecord) (*Outcome, error) {
	started := time.Now()
	e.logger.Info("reconciliation cycle starting", "source_records", len(source))

	snap, err := FetchSnapshot(ctx, e.board, e.cfg.KeyFields, e.logger)
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", e.cfg.Name, err)
	}

	outcome := &Outcome{}

	// Retention runs before the diff so the diff sees the pruned state. A
	// dry run simulates the prune on the snapshot only, so the planned set
	// below still matches what a real cycle would do.
	if e.pruner != nil {
		if e.DryRun {
			for _, item := range e.pruner.stale(snap, time.Now()) {
				e.logger.Info("dry-run: would prune",
					"id", item.ID, "date", item.Fields[e.cfg.DateField])
				snap.Remove(item.ID)
			}
		} else {
			deleted, failures := e.pruner.Prune(ctx, snap, time.Now())
			outcome.Deleted += deleted
			outcome.Failed += len(failures)
			outcome.Failures = append(outcome.Failures, failures...)
		}
	}

	writes, deletes, skipped := e.planner.Plan(source, snap)
	outcome.Skipped = skipped

	if e.DryRun {
		for _, op := range writes {
			e.logger.Info("dry-run: would write", "op", op.Kind, "key", op.Key)
		}
		for _, op := range deletes {
			e.logger.Info("dry-run: would delete", "key", op.Key, "id", op.RemoteID)
		}
		e.logger.Info("dry-run complete", "writes", len(writes), "deletes", len(deletes))
		return outcome, nil
	}

	e.ensureLabels(ctx, writes)

	// Writes strictly before deletes: a record that moved from "about to
	// be pruned" to "freshly re-observed" within one cycle must never be
	// lost.
	outcome.Merge(e.executor.Apply(ctx, writes))
	outcome.Merge(e.executor.Apply(ctx, deletes))

	e.logger.Info("reconciliation cycle complete",
		"created", outcome.Created, "updated", outcome.Updated,
		"deleted", outcome.Deleted, "failed", outcome.Failed,
		"skipped", outcome.Skipped, "elapsed", time.Since(started))
	for _, f := range outcome.Failures {
		e.logger.Warn("cycle failure", "key", f.Key, "op", f.Op, "error", f.Err)
	}
	return outcome, nil
}

// ensureLabels registers every label the planned writes reference on their
// multi-label columns. A failure here is not fatal: the write path may
// still create labels on the fly, and a missing label only degrades one
// column value.
func (e *Engine) ensureLabels(ctx context.Context, writes []Op) {
	for _, colID := range e.mapper.MultiLabelColumns() {
		seen := make(map[string]bool)
		var labels []string
		for _, op := range writes {
			joined, ok := op.Fields[colID].(string)
			if !ok || joined == "" {
				continue
			}
			for _, label := range strings.Split(joined, ",") {
				if !seen[label] {
					seen[label] = true
					labels = append(labels, label)
				}
			}
		}
		if len(labels) == 0 {
			continue
		}
		if err := e.board.EnsureLabels(ctx, colID, labels); err != nil {
			e.logger.Warn("ensure labels failed", "column", colID, "error", err)
		}
	}
}
