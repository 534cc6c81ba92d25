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

package decision

import (
	"sync"
	"sync/atomic"
)

// Media is one realtime input item sent on a live session.
type Media struct {
	Data     []byte
	MIMEType string
}

// Queue is a bounded FIFO whose producer never blocks: pushing onto a full
// queue evicts the oldest item.
type Queue struct {
	mu      sync.Mutex
	ch      chan Media
	dropped atomic.Uint64
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Media, capacity)}
}

// Push enqueues m and reports whether an older item was evicted for it.
func (q *Queue) Push(m Media) (evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.ch <- m:
			return evicted
		default:
		}
		select {
		case <-q.ch:
			evicted = true
			q.dropped.Add(1)
		default:
		}
	}
}

// C is the consumer side of the queue.
func (q *Queue) C() <-chan Media { return q.ch }

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped returns how many items were evicted so far.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
