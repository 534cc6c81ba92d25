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

package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerDropsWhenFull(t *testing.T) {
	w := NewWorker("test", 2, func(context.Context, Cycle) {})

	for i := 0; i < 5; i++ {
		w.Observe(Cycle{Seq: uint64(i)})
	}
	assert.Equal(t, uint64(3), w.Dropped())
}

func TestWorkerRun(t *testing.T) {
	got := make(chan uint64, 4)
	w := NewWorker("test", 4, func(_ context.Context, c Cycle) {
		if c.Seq == 1 {
			panic("boom")
		}
		got <- c.Seq
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()

	w.Observe(Cycle{Seq: 1})
	w.Observe(Cycle{Seq: 2})

	select {
	case seq := <-got:
		assert.Equal(t, uint64(2), seq, "a panicking handler does not stop the worker")
	case <-time.After(time.Second):
		t.Fatal("cycle not handled")
	}

	cancel()
	require.NoError(t, <-done)
}
