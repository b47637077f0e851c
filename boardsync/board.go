// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import "context"

// Lister is the read side of a remote board: one page of items per call.
// An empty cursor requests the first page; an empty next cursor ends the
// walk. Page size is whatever the store allows, chosen by the transport.
type Lister interface {
	ListPage(ctx context.Context, cursor string) (items []RemoteItem, next string, err error)
}

// Board is the full transport contract the engine writes through. The
// store owns the items; the engine never reads a write back within the
// same cycle.
type Board interface {
	Lister

	// CreateItem creates a new item and returns the store-assigned id.
	CreateItem(ctx context.Context, fields map[string]any) (string, error)

	// UpdateItem overwrites the given fields on an existing item.
	UpdateItem(ctx context.Context, id string, fields map[string]any) error

	// DeleteItem removes an item.
	DeleteItem(ctx context.Context, id string) error

	// EnsureLabels makes sure the given labels exist on a multi-label
	// column before any item write references them. Transports whose
	// write path creates labels on the fly implement this as a no-op.
	EnsureLabels(ctx context.Context, columnID string, labels []string) error
}
