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

	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pkg/metrics"
)

// Steering turns LEFT/RIGHT into short energize pulses on a motor channel.
// Pulses closer than the minimum interval are suppressed.
type Steering struct {
	ch    core.MotorChannel
	clock clock.Clock

	// pulseMu serializes pulses. Center does not take it.
	pulseMu sync.Mutex

	mu      sync.Mutex
	pulse   time.Duration
	power   float64
	limiter *rate.Limiter
}

func NewSteering(ch core.MotorChannel, pulse time.Duration, power float64, minInterval time.Duration, clk clock.Clock) *Steering {
	return &Steering{
		ch:      ch,
		clock:   clk,
		pulse:   pulse,
		power:   clampUnit(power),
		limiter: rate.NewLimiter(every(minInterval), 1),
	}
}

// Center de-energizes the channel immediately.
func (s *Steering) Center() error {
	return s.ch.Stop()
}

func (s *Steering) Left() error {
	return s.pulseOnce(s.ch.Forward)
}

func (s *Steering) Right() error {
	return s.pulseOnce(s.ch.Reverse)
}

// Tune replaces the pulse parameters. It takes effect on the next pulse.
func (s *Steering) Tune(pulse time.Duration, power float64, minInterval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulse = pulse
	s.power = clampUnit(power)
	s.limiter.SetLimitAt(s.clock.Now(), every(minInterval))
}

func (s *Steering) pulseOnce(energize func(float64) error) error {
	s.pulseMu.Lock()
	defer s.pulseMu.Unlock()

	s.mu.Lock()
	pulse, power := s.pulse, s.power
	allowed := s.limiter.AllowN(s.clock.Now(), 1)
	s.mu.Unlock()

	if !allowed {
		metrics.SteerPulses.WithLabelValues("suppressed").Inc()
		return nil
	}
	metrics.SteerPulses.WithLabelValues("fired").Inc()

	if err := energize(power); err != nil {
		_ = s.ch.Stop()
		return err
	}
	s.clock.Sleep(pulse)
	return s.ch.Stop()
}

func every(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}
