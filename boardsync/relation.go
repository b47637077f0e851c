// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"context"
	"fmt"
	"strings"
)

// RelationResolver turns a display name from a source record into the
// opaque id of an item on another board. strategy names which matching
// rule produced the hit, for observability.
type RelationResolver interface {
	Resolve(name string) (id string, strategy string, ok bool)
}

// NameIndex resolves display names against a fixed name -> id mapping
// using an ordered strategy cascade: exact match, case-insensitive match,
// then last-name-only match. The first hit wins.
type NameIndex struct {
	exact    map[string]string
	folded   map[string]string
	lastName map[string]string
}

// NewNameIndex builds an index from display name to item id. On duplicate
// folded or last names, the later entry wins; the cascade never guarantees
// uniqueness for partial matches.
func NewNameIndex(names map[string]string) *NameIndex {
	idx := &NameIndex{
		exact:    make(map[string]string, len(names)),
		folded:   make(map[string]string, len(names)),
		lastName: make(map[string]string, len(names)),
	}
	for name, id := range names {
		idx.exact[name] = id
		idx.folded[strings.ToLower(name)] = id
		if last := lastNameOf(name); last != "" {
			idx.lastName[last] = id
		}
	}
	return idx
}

// Resolve runs the strategy cascade for one name.
func (idx *NameIndex) Resolve(name string) (string, string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	if id, ok := idx.exact[name]; ok {
		return id, "exact", true
	}
	if id, ok := idx.folded[strings.ToLower(name)]; ok {
		return id, "case-insensitive", true
	}
	if last := lastNameOf(name); last != "" {
		if id, ok := idx.lastName[last]; ok {
			return id, "last-name", true
		}
	}
	return "", "", false
}

// lastNameOf extracts a lowercase last name from either "Last, First" or
// "First Last" shaped display names.
func lastNameOf(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		return strings.ToLower(strings.TrimSpace(name[:i]))
	}
	fields := strings.Fields(name)
	return strings.ToLower(fields[len(fields)-1])
}

// BuildNameIndex pages through a board and indexes each item's display
// name field to its id. Used to wire a relation column to the board that
// owns the target entity (e.g. shifts -> employees).
func BuildNameIndex(ctx context.Context, lister Lister, nameField string) (*NameIndex, error) {
	names := make(map[string]string)
	cursor := ""
	for {
		items, next, err := lister.ListPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("list relation board: %w", err)
		}
		for _, item := range items {
			if name := strings.TrimSpace(item.Fields[nameField]); name != "" {
				names[name] = item.ID
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}
	return NewNameIndex(names), nil
}
