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

package actuator

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

// DriveAxis applies drive decisions to the drive channel.
type DriveAxis interface {
	Forward() error
	Reverse() error
	Stop() error
	SetSpeed(speed float64)
}

var (
	_ DriveAxis = (*ContinuousDrive)(nil)
	_ DriveAxis = (*PulsedDrive)(nil)
)

// ContinuousDrive holds the requested direction until the next command.
type ContinuousDrive struct {
	ch core.MotorChannel

	mu    sync.Mutex
	speed float64
}

func NewContinuousDrive(ch core.MotorChannel, speed float64) *ContinuousDrive {
	return &ContinuousDrive{ch: ch, speed: clampUnit(speed)}
}

func (d *ContinuousDrive) Forward() error { return d.ch.Forward(d.currentSpeed()) }
func (d *ContinuousDrive) Reverse() error { return d.ch.Reverse(d.currentSpeed()) }
func (d *ContinuousDrive) Stop() error    { return d.ch.Stop() }

func (d *ContinuousDrive) SetSpeed(speed float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = clampUnit(speed)
}

func (d *ContinuousDrive) currentSpeed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed
}

// PulsedDrive energizes for one pulse per command. A new command re-arms the
// pulse; once it expires the channel is stopped.
type PulsedDrive struct {
	ch    core.MotorChannel
	clock clock.WithDelayedExecution
	pulse time.Duration

	mu    sync.Mutex
	speed float64
	timer clock.Timer
	// gen invalidates expiries of superseded pulses.
	gen uint64
}

func NewPulsedDrive(ch core.MotorChannel, speed float64, pulse time.Duration, clk clock.WithDelayedExecution) *PulsedDrive {
	return &PulsedDrive{ch: ch, clock: clk, pulse: pulse, speed: clampUnit(speed)}
}

func (d *PulsedDrive) Forward() error { return d.energize(d.ch.Forward) }
func (d *PulsedDrive) Reverse() error { return d.energize(d.ch.Reverse) }

func (d *PulsedDrive) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disarmLocked()
	return d.ch.Stop()
}

func (d *PulsedDrive) SetSpeed(speed float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = clampUnit(speed)
}

func (d *PulsedDrive) energize(fn func(float64) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.disarmLocked()
	if err := fn(d.speed); err != nil {
		_ = d.ch.Stop()
		return err
	}
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.pulse, func() { d.expire(gen) })
	return nil
}

func (d *PulsedDrive) expire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return
	}
	d.timer = nil
	_ = d.ch.Stop()
}

func (d *PulsedDrive) disarmLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
