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

package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	DriveContinuous = "continuous"
	DrivePulse      = "pulse"

	HALDriverSim  = "sim"
	HALDriverGPIO = "gpio"
)

var (
	_ IOptions = (*DriveOptions)(nil)
	_ IOptions = (*SteerOptions)(nil)
	_ IOptions = (*HALOptions)(nil)
)

// DriveOptions tune the drive axis.
type DriveOptions struct {
	Speed float64 `json:"speed" mapstructure:"speed"`

	// Mode is "continuous" (hold) or "pulse" (re-triggerable energize pulse).
	Mode string `json:"mode" mapstructure:"mode"`

	// Pulse is the energize window in pulse mode.
	Pulse time.Duration `json:"pulse" mapstructure:"pulse"`
}

func NewDriveOptions() *DriveOptions {
	return &DriveOptions{
		Speed: 0.45,
		Mode:  DriveContinuous,
		Pulse: 300 * time.Millisecond,
	}
}

func (o *DriveOptions) Validate() []error {
	var errs []error
	if err := ValidateUnit("drive.speed", o.Speed); err != nil {
		errs = append(errs, err)
	}
	switch o.Mode {
	case DriveContinuous:
	case DrivePulse:
		if o.Pulse <= 0 {
			errs = append(errs, fmt.Errorf("--drive.pulse must be positive in pulse mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("--drive.mode must be %q or %q, got %q", DriveContinuous, DrivePulse, o.Mode))
	}
	return errs
}

func (o *DriveOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.Float64Var(&o.Speed, "drive.speed", o.Speed, "Drive duty cycle for FORWARD/REVERSE, within [0, 1].")
	fs.StringVar(&o.Mode, "drive.mode", o.Mode, "Drive actuation: 'continuous' or 'pulse'.")
	fs.DurationVar(&o.Pulse, "drive.pulse", o.Pulse, "Energize window of a drive pulse in pulse mode.")
}

// SteerOptions tune the pulsed steering axis.
type SteerOptions struct {
	Pulse       time.Duration `json:"pulse" mapstructure:"pulse"`
	Power       float64       `json:"power" mapstructure:"power"`
	MinInterval time.Duration `json:"min-interval" mapstructure:"min-interval"`
}

func NewSteerOptions() *SteerOptions {
	return &SteerOptions{
		Pulse:       100 * time.Millisecond,
		Power:       0.8,
		MinInterval: 50 * time.Millisecond,
	}
}

func (o *SteerOptions) Validate() []error {
	var errs []error
	if o.Pulse <= 0 {
		errs = append(errs, fmt.Errorf("--steer.pulse must be positive"))
	}
	if err := ValidateUnit("steer.power", o.Power); err != nil {
		errs = append(errs, err)
	}
	if o.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("--steer.min-interval must not be negative"))
	}
	return errs
}

func (o *SteerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Pulse, "steer.pulse", o.Pulse, "Duration of a LEFT/RIGHT steering pulse.")
	fs.Float64Var(&o.Power, "steer.power", o.Power, "Duty cycle of a steering pulse, within [0, 1].")
	fs.DurationVar(&o.MinInterval, "steer.min-interval", o.MinInterval, "Minimum time between two steering pulses.")
}

// HALOptions select the motor binding and its pins (BCM numbering).
type HALOptions struct {
	Driver string `json:"driver" mapstructure:"driver"`

	DrivePins []int `json:"drive-pins" mapstructure:"drive-pins"`
	SteerPins []int `json:"steer-pins" mapstructure:"steer-pins"`

	// StandbyPin is a shared enable line; negative means none.
	StandbyPin int `json:"standby-pin" mapstructure:"standby-pin"`

	PWMFrequency int `json:"pwm-frequency" mapstructure:"pwm-frequency"`
}

func NewHALOptions() *HALOptions {
	return &HALOptions{
		Driver:       HALDriverSim,
		DrivePins:    []int{18, 23, 24},
		SteerPins:    []int{19, 27, 22},
		StandbyPin:   -1,
		PWMFrequency: 200,
	}
}

func (o *HALOptions) Validate() []error {
	var errs []error
	switch o.Driver {
	case HALDriverSim, HALDriverGPIO:
	default:
		errs = append(errs, fmt.Errorf("--hal.driver must be %q or %q, got %q", HALDriverSim, HALDriverGPIO, o.Driver))
	}
	if len(o.DrivePins) != 3 {
		errs = append(errs, fmt.Errorf("--hal.drive-pins needs exactly 3 pins (enable,in1,in2)"))
	}
	if len(o.SteerPins) != 3 {
		errs = append(errs, fmt.Errorf("--hal.steer-pins needs exactly 3 pins (enable,in1,in2)"))
	}
	if o.PWMFrequency <= 0 {
		errs = append(errs, fmt.Errorf("--hal.pwm-frequency must be positive"))
	}
	return errs
}

func (o *HALOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, "hal.driver", o.Driver, "Motor binding: 'sim' (in-memory) or 'gpio' (L298N/TB6612 on GPIO).")
	fs.IntSliceVar(&o.DrivePins, "hal.drive-pins", o.DrivePins, "Drive channel pins: enable(PWM),in1,in2.")
	fs.IntSliceVar(&o.SteerPins, "hal.steer-pins", o.SteerPins, "Steer channel pins: enable(PWM),in1,in2.")
	fs.IntVar(&o.StandbyPin, "hal.standby-pin", o.StandbyPin, "Shared standby/enable pin (-1 for none).")
	fs.IntVar(&o.PWMFrequency, "hal.pwm-frequency", o.PWMFrequency, "PWM frequency in Hz.")
}
