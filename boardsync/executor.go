// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultBatchSize bounds in-flight calls per batch. Twenty concurrent
	// writes is what the store's rate limiter tolerates in practice.
	DefaultBatchSize = 20

	// DefaultBatchDelay separates consecutive batches.
	DefaultBatchDelay = 500 * time.Millisecond
)

// Executor applies planned operations against a board with bounded
// concurrency. Operations inside one batch run in parallel; batches run
// sequentially with a fixed delay between them. A failed operation is
// recorded and never aborts its siblings or later batches.
type Executor struct {
	board      Board
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

// NewExecutor creates an executor with the default batch shape.
func NewExecutor(board Board, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		board:      board,
		batchSize:  DefaultBatchSize,
		batchDelay: DefaultBatchDelay,
		logger:     logger,
	}
}

// WithBatch overrides the batch size and inter-batch delay. Mostly for
// tests; production runs keep the defaults.
func (e *Executor) WithBatch(size int, delay time.Duration) *Executor {
	if size > 0 {
		e.batchSize = size
	}
	e.batchDelay = delay
	return e
}

// Apply runs every operation and tallies the outcome. Leaf calls inside a
// batch are the only concurrency in a cycle; each goroutine writes to its
// own slot of the results slice, and the coordinating sequence merges them
// after the batch completes, so no locking is needed.
func (e *Executor) Apply(ctx context.Context, ops []Op) *Outcome {
	outcome := &Outcome{}

	for start := 0; start < len(ops); start += e.batchSize {
		end := start + e.batchSize
		if end > len(ops) {
			end = len(ops)
		}
		batch := ops[start:end]

		if start > 0 {
			if err := sleepWithContext(ctx, e.batchDelay); err != nil {
				// Cycle is being torn down; fail the remaining ops so the
				// outcome still accounts for every planned operation.
				for _, op := range ops[start:] {
					outcome.recordFailure(op.Key, op.Kind, err)
				}
				return outcome
			}
		}

		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = e.applyOne(ctx, batch[i])
			}(i)
		}
		wg.Wait()

		for i, op := range batch {
			if errs[i] != nil {
				e.logger.Warn("operation failed",
					"op", op.Kind, "key", op.Key, "error", errs[i])
				outcome.recordFailure(op.Key, op.Kind, errs[i])
				continue
			}
			switch op.Kind {
			case OpCreate:
				outcome.Created++
			case OpUpdate:
				outcome.Updated++
			case OpDelete:
				outcome.Deleted++
			}
		}
	}
	return outcome
}

func (e *Executor) applyOne(ctx context.Context, op Op) error {
	switch op.Kind {
	case OpCreate:
		_, err := e.board.CreateItem(ctx, op.Fields)
		return err
	case OpUpdate:
		return e.board.UpdateItem(ctx, op.RemoteID, op.Fields)
	case OpDelete:
		return e.board.DeleteItem(ctx, op.RemoteID)
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
