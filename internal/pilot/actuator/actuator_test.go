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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pilot/hal"
	"github.com/gemo-rc/gemo/pkg/options"
)

func newFakeClock() *testingclock.FakeClock {
	return testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestSteeringPulseThenStop(t *testing.T) {
	clk := newFakeClock()
	ch := hal.NewSimChannel("steer")
	s := NewSteering(ch, 100*time.Millisecond, 0.8, 50*time.Millisecond, clk)

	start := clk.Now()
	require.NoError(t, s.Left())

	assert.Equal(t, 100*time.Millisecond, clk.Since(start), "the caller is blocked for the pulse")
	assert.Equal(t, []hal.ChannelState{
		{Direction: hal.DirectionForward, Speed: 0.8},
		{Direction: hal.DirectionIdle},
	}, ch.History())
}

func TestSteeringRateLimit(t *testing.T) {
	clk := newFakeClock()
	ch := hal.NewSimChannel("steer")
	s := NewSteering(ch, 10*time.Millisecond, 0.8, 50*time.Millisecond, clk)

	require.NoError(t, s.Left())
	require.NoError(t, s.Left())
	assert.Equal(t, 1, ch.Energizations(hal.DirectionForward), "second pulse inside the interval is a no-op")

	clk.Step(50 * time.Millisecond)
	require.NoError(t, s.Right())
	assert.Equal(t, 1, ch.Energizations(hal.DirectionReverse))
	assert.False(t, ch.State().Energized())
}

func TestSteeringCenterIsImmediate(t *testing.T) {
	clk := newFakeClock()
	ch := hal.NewSimChannel("steer")
	s := NewSteering(ch, 100*time.Millisecond, 0.8, 50*time.Millisecond, clk)

	start := clk.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Center())
	}
	assert.Equal(t, time.Duration(0), clk.Since(start))
	assert.Equal(t, 0, ch.Energizations(hal.DirectionForward))
	assert.False(t, ch.State().Energized())
}

func TestSteeringTune(t *testing.T) {
	clk := newFakeClock()
	ch := hal.NewSimChannel("steer")
	s := NewSteering(ch, 10*time.Millisecond, 0.8, time.Hour, clk)

	require.NoError(t, s.Left())
	s.Tune(20*time.Millisecond, 1.5, 0)
	require.NoError(t, s.Left())

	assert.Equal(t, 2, ch.Energizations(hal.DirectionForward))
	assert.Equal(t, hal.ChannelState{Direction: hal.DirectionForward, Speed: 1}, ch.History()[2])
}

func TestContinuousDrive(t *testing.T) {
	ch := hal.NewSimChannel("drive")
	d := NewContinuousDrive(ch, 0.45)

	require.NoError(t, d.Forward())
	assert.Equal(t, hal.ChannelState{Direction: hal.DirectionForward, Speed: 0.45}, ch.State())

	d.SetSpeed(3)
	require.NoError(t, d.Reverse())
	assert.Equal(t, hal.ChannelState{Direction: hal.DirectionReverse, Speed: 1}, ch.State())

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
	assert.False(t, ch.State().Energized())
}

func TestPulsedDriveExpires(t *testing.T) {
	clk := newFakeClock()
	ch := hal.NewSimChannel("drive")
	d := NewPulsedDrive(ch, 0.5, 300*time.Millisecond, clk)

	require.NoError(t, d.Forward())
	assert.True(t, ch.State().Energized())

	clk.Step(200 * time.Millisecond)
	require.NoError(t, d.Forward())
	clk.Step(200 * time.Millisecond)
	assert.True(t, ch.State().Energized(), "a new command re-arms the pulse")

	clk.Step(100 * time.Millisecond)
	assert.Eventually(t, func() bool { return !ch.State().Energized() }, time.Second, time.Millisecond,
		"an expired pulse stops the channel")
}

func TestPulsedDriveStopDisarms(t *testing.T) {
	clk := newFakeClock()
	ch := hal.NewSimChannel("drive")
	d := NewPulsedDrive(ch, 0.5, 300*time.Millisecond, clk)

	require.NoError(t, d.Reverse())
	require.NoError(t, d.Stop())
	assert.False(t, clk.HasWaiters())

	n := len(ch.History())
	clk.Step(time.Second)
	assert.Len(t, ch.History(), n, "no expiry after an explicit stop")
}

func TestActuatorApply(t *testing.T) {
	clk := newFakeClock()
	driveCh := hal.NewSimChannel("drive")
	steerCh := hal.NewSimChannel("steer")
	a, err := NewFromOptions(driveCh, steerCh, options.NewDriveOptions(), options.NewSteerOptions(), clk)
	require.NoError(t, err)

	require.NoError(t, a.Apply(core.Command{Drive: core.DriveForward, Steer: core.SteerLeft, Reason: "clear path"}))
	assert.Equal(t, hal.ChannelState{Direction: hal.DirectionForward, Speed: 0.45}, driveCh.State())
	assert.Equal(t, 1, steerCh.Energizations(hal.DirectionForward))
	assert.False(t, steerCh.State().Energized())

	require.NoError(t, a.Apply(core.FailSafe()))
	assert.False(t, driveCh.State().Energized())
	assert.Equal(t, 1, steerCh.Energizations(hal.DirectionForward))

	a.Tune(Tuning{DriveSpeed: 0.9, SteerPulse: time.Millisecond, SteerPower: 0.5})
	require.NoError(t, a.Apply(core.Command{Drive: core.DriveReverse, Steer: core.SteerCenter}))
	assert.Equal(t, hal.ChannelState{Direction: hal.DirectionReverse, Speed: 0.9}, driveCh.State())

	require.NoError(t, a.SafeStop())
	assert.False(t, driveCh.State().Energized())
	assert.False(t, steerCh.State().Energized())
}

func TestNewFromOptionsRejectsUnknownMode(t *testing.T) {
	drive := options.NewDriveOptions()
	drive.Mode = "turbo"
	_, err := NewFromOptions(hal.NewSimChannel("d"), hal.NewSimChannel("s"), drive, options.NewSteerOptions(), newFakeClock())
	assert.Error(t, err)
}
