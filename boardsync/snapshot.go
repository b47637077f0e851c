// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"context"
	"fmt"
	"log/slog"
)

// RemoteItem is the engine's read-only view of one board item. The id is
// opaque and store-assigned; Fields maps field names to the store's text
// rendering of each value.
type RemoteItem struct {
	ID     string
	Fields map[string]string
}

// RemoteSnapshot is the full remote set materialized at the start of a
// cycle and discarded at its end. ByKey contains only items whose derived
// business key is valid; items with missing key fields cannot be matched
// and are only ever touched by the retention pruner.
type RemoteSnapshot struct {
	Items []RemoteItem
	ByKey map[string]RemoteItem
}

// FetchSnapshot walks the board's paginated listing until the cursor runs
// out and indexes every item by its business key. A failed page fetch is
// fatal for the whole cycle: diffing against a partial snapshot would
// produce duplicate creates and false orphan deletes.
func FetchSnapshot(ctx context.Context, lister Lister, keyFields []string, logger *slog.Logger) (*RemoteSnapshot, error) {
	snap := &RemoteSnapshot{ByKey: make(map[string]RemoteItem)}

	cursor := ""
	pages := 0
	for {
		items, next, err := lister.ListPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch remote page %d: %w", pages+1, err)
		}
		pages++

		for _, item := range items {
			snap.Items = append(snap.Items, item)
			key, ok := RemoteKey(item, keyFields)
			if !ok {
				logger.Debug("remote item has no usable key, excluded from matching", "id", item.ID)
				continue
			}
			// Last write wins on collision. The store is expected to keep
			// keys unique but the engine does not assume it.
			snap.ByKey[key] = item
		}

		if next == "" {
			break
		}
		cursor = next
	}

	logger.Info("remote snapshot built",
		"items", len(snap.Items), "keyed", len(snap.ByKey), "pages", pages)
	return snap, nil
}

// Remove drops an item from both the item list and the key index. Called
// by the pruner so the diff never targets an item that no longer exists.
func (s *RemoteSnapshot) Remove(id string) {
	for i, item := range s.Items {
		if item.ID == id {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			break
		}
	}
	for key, item := range s.ByKey {
		if item.ID == id {
			delete(s.ByKey, key)
		}
	}
}
