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
	"time"
)

// Frame is one compressed camera image.
type Frame struct {
	Data       []byte
	MIMEType   string
	Seq        uint64
	CapturedAt time.Time
}

// FrameSource yields frames on demand.
type FrameSource interface {
	Name() string
	Capture(ctx context.Context) (*Frame, error)
	Close() error
}

// MotorChannel drives one H-bridge channel. Speed is within [0, 1].
type MotorChannel interface {
	Stop() error
	Forward(speed float64) error
	Reverse(speed float64) error
}

// Decider turns frames into commands. Decide never fails: problems are
// reported as fail-safe commands.
type Decider interface {
	// Transport names the decision transport ("batch" or "live").
	Transport() string
	Decide(ctx context.Context, frame *Frame) Command
	// Start runs background work until ctx ends.
	Start(ctx context.Context) error
	Ready() bool
	Close() error
}

// Cycle is the record of one control loop iteration handed to observers.
type Cycle struct {
	Seq       uint64        `json:"seq"`
	VehicleID string        `json:"vehicle_id"`
	StartedAt time.Time     `json:"started_at"`
	Transport string        `json:"transport"`
	Command   Command       `json:"command"`
	Latency   time.Duration `json:"latency"`
	Duration  time.Duration `json:"duration"`
	EStop     bool          `json:"estop"`
	Overrun   bool          `json:"overrun"`
	// Frame is nil when the capture failed.
	Frame *Frame `json:"-"`
}

// Observer receives every cycle after actuation. Observe must not block.
type Observer interface {
	Name() string
	Observe(c Cycle)
}
