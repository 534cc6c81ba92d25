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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	assert.NoError(t, NewPilotOptions().Validate())
}

func TestValidateAggregates(t *testing.T) {
	o := NewPilotOptions()
	o.LoopOptions.FPS = 0
	o.SteerOptions.Power = 2
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--loop.fps")
	assert.Contains(t, err.Error(), "--steer.power")
}

func TestFlagsCoverEveryGroup(t *testing.T) {
	fss := NewPilotOptions().Flags()
	for _, name := range []string{"pilot", "decision", "drive", "steer", "hal", "loop", "frames", "journal", "s3", "mqtt", "http", "grpc", "log"} {
		assert.Contains(t, fss.FlagSets, name)
	}
}

func TestConfigAndTuning(t *testing.T) {
	o := NewPilotOptions()
	o.VehicleID = "car-1"
	o.SteerOptions.Pulse = 60 * time.Millisecond

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, "car-1", cfg.VehicleID)
	assert.Same(t, o.LoopOptions, cfg.LoopOptions)

	tuning := o.Tuning()
	assert.Equal(t, 60*time.Millisecond, tuning.SteerPulse)
	assert.Equal(t, o.DriveOptions.Speed, tuning.DriveSpeed)
}
