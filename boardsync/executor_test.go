// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingBoard tracks in-flight concurrency and fails operations on demand.
type countingBoard struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	nextID      int

	failCreateMark string
	failDeleteIDs  map[string]bool
}

func (b *countingBoard) enter() {
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	b.mu.Unlock()
}

func (b *countingBoard) leave() {
	b.mu.Lock()
	b.inFlight--
	b.mu.Unlock()
}

func (b *countingBoard) ListPage(context.Context, string) ([]RemoteItem, string, error) {
	return nil, "", nil
}

func (b *countingBoard) CreateItem(_ context.Context, fields map[string]any) (string, error) {
	b.enter()
	defer b.leave()
	if mark, _ := fields["mark"].(string); mark != "" && mark == b.failCreateMark {
		return "", boardError("create rejected")
	}
	b.mu.Lock()
	b.nextID++
	id := strconv.Itoa(b.nextID)
	b.mu.Unlock()
	return id, nil
}

func (b *countingBoard) UpdateItem(_ context.Context, id string, _ map[string]any) error {
	b.enter()
	defer b.leave()
	return nil
}

func (b *countingBoard) DeleteItem(_ context.Context, id string) error {
	b.enter()
	defer b.leave()
	if b.failDeleteIDs[id] {
		return boardError("delete rejected")
	}
	return nil
}

func (b *countingBoard) EnsureLabels(context.Context, string, []string) error { return nil }

func TestApply_TalliesByKind(t *testing.T) {
	board := &countingBoard{}
	ex := NewExecutor(board, testLogger()).WithBatch(10, 0)

	ops := []Op{
		{Kind: OpCreate, Key: "a", Fields: map[string]any{}},
		{Kind: OpCreate, Key: "b", Fields: map[string]any{}},
		{Kind: OpUpdate, Key: "c", RemoteID: "5"},
		{Kind: OpDelete, Key: "d", RemoteID: "6"},
	}
	outcome := ex.Apply(context.Background(), ops)

	require.Equal(t, 2, outcome.Created)
	require.Equal(t, 1, outcome.Updated)
	require.Equal(t, 1, outcome.Deleted)
	require.Zero(t, outcome.Failed)
}

func TestApply_FailureDoesNotAbortSiblings(t *testing.T) {
	board := &countingBoard{failCreateMark: "bad", failDeleteIDs: map[string]bool{"9": true}}
	ex := NewExecutor(board, testLogger()).WithBatch(2, 0)

	ops := []Op{
		{Kind: OpCreate, Key: "a", Fields: map[string]any{"mark": "ok"}},
		{Kind: OpCreate, Key: "b", Fields: map[string]any{"mark": "bad"}},
		{Kind: OpDelete, Key: "c", RemoteID: "9"},
		{Kind: OpDelete, Key: "d", RemoteID: "10"},
	}
	outcome := ex.Apply(context.Background(), ops)

	require.Equal(t, 1, outcome.Created)
	require.Equal(t, 1, outcome.Deleted)
	require.Equal(t, 2, outcome.Failed)
	require.Len(t, outcome.Failures, 2)
	require.Equal(t, "b", outcome.Failures[0].Key)
	require.Equal(t, OpCreate, outcome.Failures[0].Op)
	require.Equal(t, "c", outcome.Failures[1].Key)
}

func TestApply_ConcurrencyBoundedByBatchSize(t *testing.T) {
	board := &countingBoard{}
	ex := NewExecutor(board, testLogger()).WithBatch(3, 0)

	var ops []Op
	for i := 0; i < 10; i++ {
		ops = append(ops, Op{Kind: OpUpdate, Key: strconv.Itoa(i), RemoteID: strconv.Itoa(i)})
	}
	outcome := ex.Apply(context.Background(), ops)

	require.Equal(t, 10, outcome.Updated)
	require.LessOrEqual(t, board.maxInFlight, 3)
}

func TestApply_CancelFailsRemainingOps(t *testing.T) {
	board := &countingBoard{}
	ex := NewExecutor(board, testLogger()).WithBatch(1, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ops := []Op{
		{Kind: OpUpdate, Key: "a", RemoteID: "1"},
		{Kind: OpUpdate, Key: "b", RemoteID: "2"},
		{Kind: OpUpdate, Key: "c", RemoteID: "3"},
	}
	outcome := ex.Apply(ctx, ops)

	// The first batch runs before the inter-batch delay checks the context;
	// everything after it is accounted as failed.
	require.Equal(t, 1, outcome.Updated)
	require.Equal(t, 2, outcome.Failed)
}

func TestApply_UnknownKindFails(t *testing.T) {
	board := &countingBoard{}
	ex := NewExecutor(board, testLogger()).WithBatch(1, 0)

	outcome := ex.Apply(context.Background(), []Op{{Kind: "noop", Key: "a"}})
	require.Equal(t, 1, outcome.Failed)
}
