// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 9, 15, 6, 0, 0, 0, time.UTC)
	first := Entry{
		RunID:      "run-1",
		Entity:     "shifts",
		StartedAt:  base,
		FinishedAt: base.Add(30 * time.Second),
		Created:    3,
		Updated:    1,
		Failed:     1,
		Failures: []boardsync.Failure{
			{Key: "2025-09-14|||A|||E", Op: "create", Err: "invalid column value"},
		},
	}
	second := Entry{
		RunID:      "run-2",
		Entity:     "shifts",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + 20*time.Second),
		Updated:    4,
		Skipped:    2,
	}
	require.NoError(t, j.Record(ctx, first))
	require.NoError(t, j.Record(ctx, second))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	require.Equal(t, "run-2", entries[0].RunID)
	require.Equal(t, 4, entries[0].Updated)
	require.Equal(t, 2, entries[0].Skipped)
	require.Empty(t, entries[0].Failures)

	require.Equal(t, "run-1", entries[1].RunID)
	require.Equal(t, base, entries[1].StartedAt)
	require.Len(t, entries[1].Failures, 1)
	require.Equal(t, "invalid column value", entries[1].Failures[0].Err)
}

func TestJournal_RecentLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 9, 15, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, Entry{
			RunID:     "run-" + string(rune('a'+i)),
			Entity:    "shifts",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "run-e", entries[0].RunID)
}

func TestJournal_DuplicateRunEntityRejected(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	e := Entry{RunID: "run-1", Entity: "shifts", StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, j.Record(ctx, e))
	require.Error(t, j.Record(ctx, e), "run_id+entity is the primary key")

	e.Entity = "employees"
	require.NoError(t, j.Record(ctx, e))
}
