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
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

var _ PWMLine = (*pinLine)(nil)

// pinLine adapts a periph GPIO pin.
type pinLine struct {
	pin  gpio.PinIO
	freq physic.Frequency
}

func (p *pinLine) Set(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

func (p *pinLine) SetDuty(duty float64) error {
	duty = clamp(duty)
	if duty == 0 {
		return p.pin.Out(gpio.Low)
	}
	return p.pin.PWM(gpio.Duty(float64(gpio.DutyMax)*duty), p.freq)
}

func (p *pinLine) halt() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return err
	}
	return p.pin.Halt()
}

func openPin(bcm int, freq physic.Frequency) (*pinLine, error) {
	name := fmt.Sprintf("GPIO%d", bcm)
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %s not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("init %s: %w", name, err)
	}
	return &pinLine{pin: pin, freq: freq}, nil
}

func newGPIOMotors(opts *options.HALOptions) (*Motors, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host drivers: %w", err)
	}
	freq := physic.Frequency(opts.PWMFrequency) * physic.Hertz

	var pins []*pinLine
	open := func(bcm int) (*pinLine, error) {
		p, err := openPin(bcm, freq)
		if err == nil {
			pins = append(pins, p)
		}
		return p, err
	}

	var standby *StandbyLine
	if opts.StandbyPin >= 0 {
		p, err := open(opts.StandbyPin)
		if err != nil {
			return nil, err
		}
		standby = NewStandbyLine(p)
	}

	channel := func(name string, bcm []int) (*HBridge, error) {
		en, err := open(bcm[0])
		if err != nil {
			return nil, err
		}
		in1, err := open(bcm[1])
		if err != nil {
			return nil, err
		}
		in2, err := open(bcm[2])
		if err != nil {
			return nil, err
		}
		return NewHBridge(name, en, in1, in2, standby), nil
	}

	drive, err := channel("drive", opts.DrivePins)
	if err != nil {
		return nil, err
	}
	steer, err := channel("steer", opts.SteerPins)
	if err != nil {
		return nil, err
	}

	log.Info("GPIO motors bound", "drive", opts.DrivePins, "steer", opts.SteerPins,
		"standby", opts.StandbyPin, "pwmHz", opts.PWMFrequency)

	return &Motors{
		Drive: drive,
		Steer: steer,
		closers: []func() error{func() error {
			for _, p := range pins {
				if err := p.halt(); err != nil {
					log.Warn("Failed to halt pin", "pin", p.pin.Name(), "error", err)
				}
			}
			return nil
		}},
	}, nil
}
