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
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/options"
)

// Tuning holds the actuation parameters that can change while running.
type Tuning struct {
	DriveSpeed       float64
	SteerPulse       time.Duration
	SteerPower       float64
	SteerMinInterval time.Duration
}

// TuningFromOptions extracts the hot-reloadable parameters.
func TuningFromOptions(drive *options.DriveOptions, steer *options.SteerOptions) Tuning {
	return Tuning{
		DriveSpeed:       drive.Speed,
		SteerPulse:       steer.Pulse,
		SteerPower:       steer.Power,
		SteerMinInterval: steer.MinInterval,
	}
}

// Actuator applies commands to the drive and steer axes.
type Actuator struct {
	drive DriveAxis
	steer *Steering
}

func New(drive DriveAxis, steer *Steering) *Actuator {
	return &Actuator{drive: drive, steer: steer}
}

// NewFromOptions builds the drive variant selected by drive.mode and the pulsed steering.
func NewFromOptions(driveCh, steerCh core.MotorChannel, drive *options.DriveOptions, steer *options.SteerOptions, clk clock.WithTickerAndDelayedExecution) (*Actuator, error) {
	var axis DriveAxis
	switch drive.Mode {
	case options.DriveContinuous:
		axis = NewContinuousDrive(driveCh, drive.Speed)
	case options.DrivePulse:
		axis = NewPulsedDrive(driveCh, drive.Speed, drive.Pulse, clk)
	default:
		return nil, fmt.Errorf("unknown drive mode %q", drive.Mode)
	}
	return New(axis, NewSteering(steerCh, steer.Pulse, steer.Power, steer.MinInterval, clk)), nil
}

// Apply drives first, then steers. Steering pulses block for the pulse duration.
func (a *Actuator) Apply(cmd core.Command) error {
	var derr error
	switch cmd.Drive {
	case core.DriveForward:
		derr = a.drive.Forward()
	case core.DriveReverse:
		derr = a.drive.Reverse()
	default:
		derr = a.drive.Stop()
	}

	var serr error
	switch cmd.Steer {
	case core.SteerLeft:
		serr = a.steer.Left()
	case core.SteerRight:
		serr = a.steer.Right()
	default:
		serr = a.steer.Center()
	}
	return errors.Join(derr, serr)
}

// SafeStop stops the drive and centers the steering.
func (a *Actuator) SafeStop() error {
	return errors.Join(a.drive.Stop(), a.steer.Center())
}

func (a *Actuator) Tune(t Tuning) {
	a.drive.SetSpeed(t.DriveSpeed)
	a.steer.Tune(t.SteerPulse, t.SteerPower, t.SteerMinInterval)
}
