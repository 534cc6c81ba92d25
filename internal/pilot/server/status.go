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

package server

import (
	"context"
	"time"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pilot/journal"
)

// Status is the pilot snapshot served by GET /api/v1/status.
type Status struct {
	VehicleID string          `json:"vehicleID"`
	RunID     string          `json:"runID"`
	Transport string          `json:"transport"`
	Session   string          `json:"session,omitempty"`
	Ready     bool            `json:"ready"`
	StartedAt time.Time       `json:"startedAt"`
	Cycles    uint64          `json:"cycles"`
	Overruns  uint64          `json:"overruns"`
	EStop     core.EStopState `json:"estop"`
	LastCycle *core.Cycle     `json:"lastCycle,omitempty"`
}

// Backend is the part of the pilot the servers report on.
type Backend interface {
	Ready() bool
	Status() Status
}

// JournalReader serves recent decisions. A nil reader disables the journal endpoint.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}
