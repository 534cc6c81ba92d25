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

package hal

import (
	"errors"
	"sync"

	"github.com/gemo-rc/gemo/internal/pilot/core"
)

var _ core.MotorChannel = (*HBridge)(nil)

// HBridge drives one L298N/TB6612 channel: a PWM enable line and two direction lines.
// The opposite direction line is always released before the requested one is asserted.
type HBridge struct {
	name    string
	en      PWMLine
	in1     Line
	in2     Line
	standby *StandbyLine

	mu    sync.Mutex
	state ChannelState
}

// NewHBridge builds a channel. standby may be nil.
func NewHBridge(name string, en PWMLine, in1, in2 Line, standby *StandbyLine) *HBridge {
	return &HBridge{name: name, en: en, in1: in1, in2: in2, standby: standby}
}

func (h *HBridge) Name() string { return h.name }

func (h *HBridge) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = ChannelState{Direction: DirectionIdle}
	return errors.Join(h.en.SetDuty(0), h.in1.Set(false), h.in2.Set(false))
}

func (h *HBridge) Forward(speed float64) error {
	return h.drive(DirectionForward, h.in1, h.in2, speed)
}

func (h *HBridge) Reverse(speed float64) error {
	return h.drive(DirectionReverse, h.in2, h.in1, speed)
}

func (h *HBridge) drive(dir Direction, on, off Line, speed float64) error {
	speed = clamp(speed)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.standby.Assert(); err != nil {
		return err
	}
	if err := off.Set(false); err != nil {
		return err
	}
	if err := on.Set(true); err != nil {
		return err
	}
	if err := h.en.SetDuty(speed); err != nil {
		return err
	}
	h.state = ChannelState{Direction: dir, Speed: speed}
	return nil
}

// State returns what the channel currently drives.
func (h *HBridge) State() ChannelState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
