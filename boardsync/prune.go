// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"context"
	"log/slog"
	"time"
)

// dateLayouts are the formats a remote date field may render in.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Pruner enforces the retention window: every remote item whose date field
// is strictly older than the window is deleted, regardless of what the
// source snapshot says. Items with unparseable dates are skipped — a false
// negative leaves a stale row behind, a false positive destroys data.
type Pruner struct {
	board         Board
	dateField     string
	retentionDays int
	logger        *slog.Logger
}

// NewPruner creates a pruner for one entity's retention configuration.
func NewPruner(board Board, dateField string, retentionDays int, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{board: board, dateField: dateField, retentionDays: retentionDays, logger: logger}
}

// Prune runs once per cycle, before the diff. Successfully deleted items
// are removed from the snapshot (including its key index) so the diff can
// never target an item the pruner just removed; items whose delete failed
// stay in the snapshot because they still exist remotely.
func (p *Pruner) Prune(ctx context.Context, snap *RemoteSnapshot, now time.Time) (deleted int, failures []Failure) {
	cutoff := now.AddDate(0, 0, -p.retentionDays)
	stale := p.stale(snap, now)

	for _, item := range stale {
		if err := p.board.DeleteItem(ctx, item.ID); err != nil {
			p.logger.Warn("retention delete failed", "id", item.ID, "error", err)
			failures = append(failures, Failure{Key: item.ID, Op: OpDelete, Err: err.Error()})
			continue
		}
		snap.Remove(item.ID)
		deleted++
	}

	if len(stale) > 0 {
		p.logger.Info("retention prune complete",
			"cutoff", cutoff.Format("2006-01-02"), "stale", len(stale),
			"deleted", deleted, "failed", len(failures))
	}
	return deleted, failures
}

// stale returns the items whose date field falls strictly before the
// retention cutoff. Also used by the engine's dry run to preview the
// prune without deleting.
func (p *Pruner) stale(snap *RemoteSnapshot, now time.Time) []RemoteItem {
	cutoff := now.AddDate(0, 0, -p.retentionDays)

	var stale []RemoteItem
	for _, item := range snap.Items {
		raw, ok := item.Fields[p.dateField]
		if !ok || raw == "" {
			continue
		}
		t, ok := parseDate(raw)
		if !ok {
			p.logger.Debug("unparseable date, skipping retention check",
				"id", item.ID, "value", raw)
			continue
		}
		if t.Before(cutoff) {
			stale = append(stale, item)
		}
	}
	return stale
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
