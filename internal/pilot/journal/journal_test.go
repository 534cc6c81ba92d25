// Copyright 2026 The Gemo Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

func TestJournalAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(ctx, path, "run-1")
	require.NoError(t, err)
	defer j.Close()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.Append(ctx, core.Cycle{
		Seq: 1, StartedAt: start, Transport: "batch",
		Command: core.Command{Drive: core.DriveForward, Steer: core.SteerLeft, Reason: "clear path"},
		Latency: 350 * time.Millisecond, Duration: 480 * time.Millisecond,
		Frame: &core.Frame{Data: make([]byte, 1024)},
	}))
	require.NoError(t, j.Append(ctx, core.Cycle{
		Seq: 2, StartedAt: start.Add(200 * time.Millisecond), Transport: "batch",
		Command: core.FailSafeBecause(core.ReasonEStop), EStop: true,
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, uint64(2), entries[0].Seq, "newest first")
	assert.True(t, entries[0].EStop)
	assert.Equal(t, core.ReasonEStop, entries[0].Command.Reason)
	assert.Equal(t, 0, entries[0].FrameBytes)

	first := entries[1]
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, start, first.StartedAt)
	assert.Equal(t, core.Command{Drive: core.DriveForward, Steer: core.SteerLeft, Reason: "clear path"}, first.Command)
	assert.InDelta(t, 350, first.LatencyMS, 0.001)
	assert.Equal(t, 1024, first.FrameBytes)

	limited, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestJournalRunsAreSeparate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	a, err := Open(ctx, path, "a")
	require.NoError(t, err)
	require.NoError(t, a.Append(ctx, core.Cycle{Seq: 1, Command: core.FailSafe()}))
	require.NoError(t, a.Close())

	b, err := Open(ctx, path, "b")
	require.NoError(t, err)
	defer b.Close()
	entries, err := b.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJournalObserver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j, err := Open(ctx, filepath.Join(t.TempDir(), "journal.db"), "run")
	require.NoError(t, err)
	defer j.Close()

	w := j.Observer(8)
	go func() { _ = w.Run(ctx) }()
	w.Observe(core.Cycle{Seq: 9, Command: core.FailSafe()})

	assert.Eventually(t, func() bool {
		entries, err := j.Recent(context.Background(), 1)
		return err == nil && len(entries) == 1 && entries[0].Seq == 9
	}, 2*time.Second, 5*time.Millisecond)
}
