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
	"fmt"
	"sync"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/options"
)

// Line is one digital output.
type Line interface {
	Set(high bool) error
}

// PWMLine is an output whose duty cycle can be set within [0, 1].
type PWMLine interface {
	Line
	SetDuty(duty float64) error
}

// Direction of an energized channel.
type Direction string

const (
	DirectionIdle    Direction = "idle"
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// ChannelState is what a channel currently drives.
type ChannelState struct {
	Direction Direction `json:"direction"`
	Speed     float64   `json:"speed"`
}

// Energized reports whether the channel is driving its motor.
func (s ChannelState) Energized() bool {
	return s.Direction != DirectionIdle && s.Speed > 0
}

// StandbyLine is an enable line shared by several channels (TB6612 STBY).
// Assert is idempotent so every channel can call it before driving.
type StandbyLine struct {
	mu       sync.Mutex
	line     Line
	asserted bool
}

func NewStandbyLine(line Line) *StandbyLine {
	return &StandbyLine{line: line}
}

func (s *StandbyLine) Assert() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asserted {
		return nil
	}
	if err := s.line.Set(true); err != nil {
		return fmt.Errorf("assert standby line: %w", err)
	}
	s.asserted = true
	return nil
}

func (s *StandbyLine) Release() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asserted = false
	return s.line.Set(false)
}

// Motors is the motor binding of the vehicle.
type Motors struct {
	Drive core.MotorChannel
	Steer core.MotorChannel

	closers []func() error
}

// Close stops both channels and releases the hardware.
func (m *Motors) Close() error {
	var errs []error
	for _, ch := range []core.MotorChannel{m.Drive, m.Steer} {
		if ch != nil {
			errs = append(errs, ch.Stop())
		}
	}
	for _, c := range m.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// New binds the motors selected by opts.
func New(opts *options.HALOptions) (*Motors, error) {
	switch opts.Driver {
	case options.HALDriverSim:
		return &Motors{Drive: NewSimChannel("drive"), Steer: NewSimChannel("steer")}, nil
	case options.HALDriverGPIO:
		return newGPIOMotors(opts)
	default:
		return nil, fmt.Errorf("unknown hal driver %q", opts.Driver)
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
