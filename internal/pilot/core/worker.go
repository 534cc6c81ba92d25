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
	"sync/atomic"

	"github.com/gemo-rc/gemo/internal/pkg/metrics"
	"github.com/gemo-rc/gemo/pkg/log"
)

var _ Observer = (*Worker)(nil)

// Worker is an Observer backed by one goroutine and a bounded buffer.
// Cycles arriving while the buffer is full are dropped.
type Worker struct {
	name    string
	ch      chan Cycle
	handle  func(ctx context.Context, c Cycle)
	dropped atomic.Uint64
}

func NewWorker(name string, size int, handle func(ctx context.Context, c Cycle)) *Worker {
	if size < 1 {
		size = 1
	}
	return &Worker{
		name:   name,
		ch:     make(chan Cycle, size),
		handle: handle,
	}
}

func (w *Worker) Name() string { return w.name }

func (w *Worker) Observe(c Cycle) {
	select {
	case w.ch <- c:
	default:
		w.dropped.Add(1)
		metrics.ObserverDrops.WithLabelValues(w.name).Inc()
	}
}

// Dropped returns how many cycles were discarded so far.
func (w *Worker) Dropped() uint64 { return w.dropped.Load() }

// Run handles buffered cycles until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	logger := log.WithName(w.name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-w.ch:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error(nil, "Observer panicked", "seq", c.Seq, "panic", r)
					}
				}()
				w.handle(ctx, c)
			}()
		}
	}
}
