// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBoard is an in-memory Board for engine and snapshot tests. Column ids
// and field names are kept identical so listed items round-trip without a
// translation table.
type fakeBoard struct {
	mu       sync.Mutex
	pageSize int
	nextID   int
	order    []string
	items    map[string]map[string]any

	listErr   error
	createErr func(fields map[string]any) error
	updateErr func(id string) error
	deleteErr func(id string) error

	ensured map[string][]string
}

func newFakeBoard(pageSize int) *fakeBoard {
	return &fakeBoard{
		pageSize: pageSize,
		items:    make(map[string]map[string]any),
		ensured:  make(map[string][]string),
	}
}

func (b *fakeBoard) add(fields map[string]any) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(fields)
}

func (b *fakeBoard) addLocked(fields map[string]any) string {
	b.nextID++
	id := strconv.Itoa(b.nextID)
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	b.items[id] = copied
	b.order = append(b.order, id)
	return id
}

func (b *fakeBoard) ListPage(_ context.Context, cursor string) ([]RemoteItem, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, "", b.listErr
	}

	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	size := b.pageSize
	if size <= 0 {
		size = len(b.order)
	}
	end := offset + size
	if end > len(b.order) {
		end = len(b.order)
	}

	var out []RemoteItem
	for _, id := range b.order[offset:end] {
		fields := make(map[string]string, len(b.items[id]))
		for k, v := range b.items[id] {
			fields[k] = Stringify(v)
		}
		out = append(out, RemoteItem{ID: id, Fields: fields})
	}

	next := ""
	if end < len(b.order) {
		next = strconv.Itoa(end)
	}
	return out, next, nil
}

func (b *fakeBoard) CreateItem(_ context.Context, fields map[string]any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		if err := b.createErr(fields); err != nil {
			return "", err
		}
	}
	return b.addLocked(fields), nil
}

func (b *fakeBoard) UpdateItem(_ context.Context, id string, fields map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateErr != nil {
		if err := b.updateErr(id); err != nil {
			return err
		}
	}
	item, ok := b.items[id]
	if !ok {
		return errNotFound
	}
	for k, v := range fields {
		item[k] = v
	}
	return nil
}

func (b *fakeBoard) DeleteItem(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		if err := b.deleteErr(id); err != nil {
			return err
		}
	}
	if _, ok := b.items[id]; !ok {
		return errNotFound
	}
	delete(b.items, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

func (b *fakeBoard) EnsureLabels(_ context.Context, columnID string, labels []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensured[columnID] = append(b.ensured[columnID], labels...)
	return nil
}

type boardError string

func (e boardError) Error() string { return string(e) }

const errNotFound = boardError("item not found")
