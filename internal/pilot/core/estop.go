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
	"sync"
	"time"

	"github.com/gemo-rc/gemo/internal/pkg/metrics"
)

// EStopState is a snapshot of the emergency stop latch.
type EStopState struct {
	Engaged bool      `json:"engaged"`
	Reason  string    `json:"reason,omitempty"`
	Since   time.Time `json:"since,omitempty"`
	Source  string    `json:"source,omitempty"`
}

// EStop is the emergency stop latch shared by the control loop, the hub and the HTTP API.
// While engaged every cycle applies a fail-safe command.
type EStop struct {
	mu    sync.RWMutex
	state EStopState
	now   func() time.Time
}

func NewEStop() *EStop {
	return &EStop{now: time.Now}
}

// Engage latches the stop. It reports whether the latch changed.
func (e *EStop) Engage(source, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Engaged {
		return false
	}
	e.state = EStopState{Engaged: true, Reason: reason, Since: e.now(), Source: source}
	metrics.EStopEngaged.Set(1)
	return true
}

// Release clears the latch. It reports whether the latch changed.
func (e *EStop) Release(source string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Engaged {
		return false
	}
	e.state = EStopState{Since: e.now(), Source: source}
	metrics.EStopEngaged.Set(0)
	return true
}

// Set engages or releases depending on engaged.
func (e *EStop) Set(source string, engaged bool, reason string) bool {
	if engaged {
		return e.Engage(source, reason)
	}
	return e.Release(source)
}

func (e *EStop) Engaged() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Engaged
}

func (e *EStop) State() EStopState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}
