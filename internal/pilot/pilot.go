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

package pilot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/actuator"
	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pilot/hal"
	"github.com/gemo-rc/gemo/internal/pilot/hub"
	"github.com/gemo-rc/gemo/internal/pilot/journal"
	"github.com/gemo-rc/gemo/internal/pilot/server"
	"github.com/gemo-rc/gemo/internal/pkg/metrics"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

var _ server.Backend = (*Pilot)(nil)

// Pilot drives the vehicle: it captures a frame, asks the decider, applies the
// command and reports the cycle, at a fixed rate until stopped.
type Pilot struct {
	vehicleID string
	runID     string
	clock     clock.WithTickerAndDelayedExecution
	loopOpts  *options.LoopOptions

	source   core.FrameSource
	decider  core.Decider
	actuator *actuator.Actuator
	motors   *hal.Motors
	estop    *core.EStop
	tuning   atomic.Pointer[actuator.Tuning]

	hub       *hub.Hub
	journal   *journal.Journal
	servers   *server.Manager
	observers []core.Observer
	workers   []*core.Worker

	startedAt time.Time
	session   atomic.Value
	cycles    atomic.Uint64
	overruns  atomic.Uint64
	mu        sync.RWMutex
	last      *core.Cycle

	releaseOnce sync.Once
	logger      log.Logger
}

// Period is the cycle budget for fps, never slower than one cycle per second.
func Period(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / max(1, fps))
}

func (p *Pilot) captureTimeout(period time.Duration) time.Duration {
	if p.loopOpts.CaptureTimeout > 0 {
		return p.loopOpts.CaptureTimeout
	}
	return 2 * period
}

func (p *Pilot) VehicleID() string { return p.vehicleID }
func (p *Pilot) RunID() string     { return p.runID }
func (p *Pilot) EStop() *core.EStop {
	return p.estop
}

// AddObserver registers o before Run. Observe is called synchronously on the loop and must not block.
func (p *Pilot) AddObserver(o core.Observer) {
	p.observers = append(p.observers, o)
}

func (p *Pilot) addObserver(w *core.Worker) {
	p.workers = append(p.workers, w)
	p.AddObserver(w)
}

// Tune applies new actuation parameters to the running pilot.
func (p *Pilot) Tune(t actuator.Tuning) {
	p.tuning.Store(&t)
	p.actuator.Tune(t)
	p.logger.Info("Actuation tuned",
		"driveSpeed", t.DriveSpeed,
		"steerPulse", t.SteerPulse,
		"steerPower", t.SteerPower,
		"steerMinInterval", t.SteerMinInterval,
	)
}

func (p *Pilot) Tuning() actuator.Tuning {
	return *p.tuning.Load()
}

func (p *Pilot) Ready() bool {
	return p.decider.Ready()
}

func (p *Pilot) Status() server.Status {
	st := server.Status{
		VehicleID: p.vehicleID,
		RunID:     p.runID,
		Transport: p.decider.Transport(),
		Ready:     p.decider.Ready(),
		StartedAt: p.startedAt,
		Cycles:    p.cycles.Load(),
		Overruns:  p.overruns.Load(),
		EStop:     p.estop.State(),
	}
	if s, ok := p.session.Load().(string); ok {
		st.Session = s
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last != nil {
		last := *p.last
		st.LastCycle = &last
	}
	return st
}

func (p *Pilot) sessionChanged(from, to string) {
	p.session.Store(to)
	if p.hub != nil {
		p.hub.SessionChanged(from, to)
	}
}

// Run drives until ctx ends or a component fails. The vehicle is always left
// stopped and centered before anything is released.
func (p *Pilot) Run(ctx context.Context) error {
	p.startedAt = p.clock.Now()
	defer p.release()

	p.logger.Info("Starting pilot",
		"runID", p.runID,
		"transport", p.decider.Transport(),
		"period", Period(p.loopOpts.FPS),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := p.decider.Start(gctx); err != nil {
			return fmt.Errorf("decider stopped: %w", err)
		}
		return nil
	})

	for _, w := range p.workers {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if p.hub != nil {
		g.Go(func() error {
			if err := p.hub.Run(gctx); err != nil {
				p.logger.Error(err, "MQTT hub stopped")
			}
			return nil
		})
	}

	g.Go(func() error {
		return p.servers.Start(gctx)
	})

	g.Go(func() error {
		return p.loop(gctx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error(err, "Pilot stopped on failure")
		return err
	}
	p.logger.Info("Pilot stopped", "cycles", p.cycles.Load())
	return nil
}

func (p *Pilot) loop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("control loop panicked: %v", r)
		}
		if stopErr := p.actuator.SafeStop(); stopErr != nil {
			p.logger.Error(stopErr, "Failed to stop the vehicle")
		} else {
			p.logger.Info("Vehicle stopped and centered")
		}
	}()

	period := Period(p.loopOpts.FPS)
	failures := 0

	for seq := uint64(1); ; seq++ {
		if ctx.Err() != nil {
			return nil
		}

		c, captureErr := p.cycle(ctx, seq, period)
		if captureErr != nil && ctx.Err() == nil {
			failures++
			metrics.CaptureFailures.Inc()
			p.logger.Warn("Frame capture failed", "seq", seq, "consecutive", failures, "error", captureErr)
			if failures >= p.loopOpts.MaxCaptureFailures {
				return fmt.Errorf("%w: %d consecutive failures: %w", errCaptureFaulted, failures, captureErr)
			}
		} else if captureErr == nil {
			failures = 0
		}

		remaining := period - c.Duration
		if remaining <= 0 {
			continue
		}
		t := p.clock.NewTimer(remaining)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C():
		}
	}
}

// cycle runs one capture, decide, override, apply and observe pass.
// The returned error is the capture failure, if any.
func (p *Pilot) cycle(ctx context.Context, seq uint64, period time.Duration) (core.Cycle, error) {
	start := p.clock.Now()
	c := core.Cycle{
		Seq:       seq,
		VehicleID: p.vehicleID,
		StartedAt: start,
		Transport: p.decider.Transport(),
	}

	cctx, cancel := context.WithTimeout(ctx, p.captureTimeout(period))
	frame, captureErr := p.source.Capture(cctx)
	cancel()
	if captureErr != nil {
		c.Command = core.FailSafeBecause(core.ReasonCaptureFailed)
	} else {
		frame.Seq = seq
		if frame.CapturedAt.IsZero() {
			frame.CapturedAt = start
		}
		c.Frame = frame

		decideStart := p.clock.Now()
		c.Command = p.decider.Decide(ctx, frame)
		c.Latency = p.clock.Since(decideStart)
		metrics.DecisionLatency.WithLabelValues(c.Transport).Observe(c.Latency.Seconds())
	}

	if p.estop.Engaged() {
		c.Command = core.FailSafeBecause(core.ReasonEStop)
		c.EStop = true
	}

	if err := p.actuator.Apply(c.Command); err != nil {
		p.logger.Error(err, "Failed to apply command", "seq", seq, "command", c.Command.String())
		if stopErr := p.actuator.SafeStop(); stopErr != nil {
			p.logger.Error(stopErr, "Failed to stop the vehicle", "seq", seq)
		}
	}

	c.Duration = p.clock.Since(start)
	if c.Duration > period {
		c.Overrun = true
		p.overruns.Add(1)
		metrics.CycleOverruns.Inc()
	}
	p.record(c)
	return c, captureErr
}

func (p *Pilot) record(c core.Cycle) {
	p.cycles.Add(1)
	metrics.CycleDuration.Observe(c.Duration.Seconds())
	metrics.DecisionsTotal.WithLabelValues(c.Transport, string(c.Command.Drive), string(c.Command.Steer)).Inc()
	if c.Command.Local() {
		metrics.FailSafeTotal.WithLabelValues(c.Command.Reason).Inc()
	}

	p.logger.Info("Cycle applied",
		"seq", c.Seq,
		"command", c.Command,
		"decide", c.Latency,
		"cycle", c.Duration,
		"estop", c.EStop,
		"overrun", c.Overrun,
	)

	last := c
	last.Frame = nil
	p.mu.Lock()
	p.last = &last
	p.mu.Unlock()

	for _, o := range p.observers {
		o.Observe(c)
	}
}

// release closes the decider, the frame source, the motors and the journal.
func (p *Pilot) release() {
	p.releaseOnce.Do(func() {
		if p.decider != nil {
			if err := p.decider.Close(); err != nil {
				p.logger.Error(err, "Failed to close decider")
			}
		}
		if p.source != nil {
			if err := p.source.Close(); err != nil {
				p.logger.Error(err, "Failed to close frame source")
			}
		}
		if p.motors != nil {
			if err := p.motors.Close(); err != nil {
				p.logger.Error(err, "Failed to release motors")
			}
		}
		if p.journal != nil {
			if err := p.journal.Close(); err != nil {
				p.logger.Error(err, "Failed to close journal")
			}
		}
	})
}
