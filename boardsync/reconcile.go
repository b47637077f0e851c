// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"log/slog"
)

// Op is one planned board operation. Fields is already mapped to the
// store's column representation; RemoteID is set for updates and deletes.
type Op struct {
	Kind     string
	Key      string
	RemoteID string
	Fields   map[string]any
}

// DiffStrategy decides whether a matched record is worth writing. The
// reference behavior differs per entity type: shifts rewrite every matched
// record each cycle, employees skip writes when nothing changed.
type DiffStrategy interface {
	Name() string
	ShouldWrite(mapped map[string]any, existing RemoteItem, mapper *FieldMapper) bool
}

// AlwaysWrite issues a full-field update for every matched record.
type AlwaysWrite struct{}

func (AlwaysWrite) Name() string { return "always-write" }

func (AlwaysWrite) ShouldWrite(map[string]any, RemoteItem, *FieldMapper) bool { return true }

// WriteIfChanged compares each mapped column against the remote text value
// and skips the write entirely when no column differs. The comparison goes
// through the mapper's per-kind rules, since checkbox and relation columns
// render to store text differently than the mapper emits them. Columns
// omitted from the mapped output are treated as unchanged.
type WriteIfChanged struct{}

func (WriteIfChanged) Name() string { return "write-if-changed" }

func (WriteIfChanged) ShouldWrite(mapped map[string]any, existing RemoteItem, mapper *FieldMapper) bool {
	for _, col := range mapper.columns {
		v, ok := mapped[col.ID]
		if !ok {
			continue
		}
		if !mapper.fieldUnchanged(col, v, existing.Fields[col.Name]) {
			return true
		}
	}
	return false
}

// Planner computes the operation set for one cycle. It is a pure planning
// step: no I/O happens until the executor applies the returned ops.
type Planner struct {
	keyFields []string
	mapper    *FieldMapper
	strategy  DiffStrategy
	logger    *slog.Logger
}

// NewPlanner creates a planner for one entity type. The key field order
// must stay fixed for the lifetime of the entity.
func NewPlanner(keyFields []string, mapper *FieldMapper, strategy DiffStrategy, logger *slog.Logger) *Planner {
	if strategy == nil {
		strategy = AlwaysWrite{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{keyFields: keyFields, mapper: mapper, strategy: strategy, logger: logger}
}

// Plan diffs the source snapshot against the remote snapshot. Writes
// (creates and updates) must be applied before deletes so a record that
// was both pruned and re-observed in the same cycle is never lost.
// skipped counts matched records the diff strategy chose not to write.
func (p *Planner) Plan(source []SourceRecord, snap *RemoteSnapshot) (writes, deletes []Op, skipped int) {
	processed := make(map[string]bool, len(source))

	for _, rec := range source {
		key, ok := BuildKey(rec, p.keyFields)
		fields := p.mapper.MapFields(rec)

		if !ok {
			// No usable key: the record cannot be matched, so it is always
			// created. Duplicate creation is the accepted failure mode here,
			// preferred over silently dropping the record.
			p.logger.Warn("source record has no usable key, creating without matching")
			writes = append(writes, Op{Kind: OpCreate, Key: key, Fields: fields})
			continue
		}
		processed[key] = true

		existing, found := snap.ByKey[key]
		if !found {
			writes = append(writes, Op{Kind: OpCreate, Key: key, Fields: fields})
			continue
		}
		if !p.strategy.ShouldWrite(fields, existing, p.mapper) {
			skipped++
			p.logger.Debug("matched record unchanged, skipping write",
				"key", key, "strategy", p.strategy.Name())
			continue
		}
		writes = append(writes, Op{Kind: OpUpdate, Key: key, RemoteID: existing.ID, Fields: fields})
	}

	// Orphan cleanup: any keyed remote item the source no longer mentions.
	// Iterating Items keeps the delete order stable; the ByKey identity
	// check skips shadowed collision duplicates, which only retention may
	// remove.
	for _, item := range snap.Items {
		key, ok := RemoteKey(item, p.keyFields)
		if !ok {
			continue
		}
		if indexed, found := snap.ByKey[key]; !found || indexed.ID != item.ID {
			continue
		}
		if processed[key] {
			continue
		}
		deletes = append(deletes, Op{Kind: OpDelete, Key: key, RemoteID: item.ID})
	}

	p.logger.Info("reconciliation planned",
		"source", len(source), "writes", len(writes), "deletes", len(deletes),
		"skipped", skipped, "strategy", p.strategy.Name())
	return writes, deletes, skipped
}
