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

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name                 string
		drive, steer, reason string
		want                 Command
	}{
		{"valid", "FORWARD", "LEFT", "clear path", Command{DriveForward, SteerLeft, "clear path"}},
		{"reverse right", "REVERSE", "RIGHT", "", Command{DriveReverse, SteerRight, ""}},
		{"unknown drive", "FLY", "RIGHT", "x", Command{DriveStop, SteerRight, "x"}},
		{"unknown steer", "FORWARD", "UP", "", Command{DriveForward, SteerCenter, ""}},
		{"case sensitive", "forward", "left", "", Command{DriveStop, SteerCenter, ""}},
		{"empty", "", "", "", FailSafe()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.drive, tt.steer, tt.reason))
		})
	}
}

func TestSanitizeArgs(t *testing.T) {
	assert.Equal(t, FailSafe(), SanitizeArgs(nil))
	assert.Equal(t, FailSafe(), SanitizeArgs(map[string]any{}))

	got := SanitizeArgs(map[string]any{"drive": "FORWARD", "steer": "LEFT", "reason": "clear path"})
	assert.Equal(t, Command{DriveForward, SteerLeft, "clear path"}, got)

	got = SanitizeArgs(map[string]any{"drive": 1, "steer": true, "reason": 3.5})
	assert.Equal(t, FailSafe(), got, "non-string values are treated as missing")
}

func TestFailSafe(t *testing.T) {
	assert.True(t, FailSafe().Halted())
	assert.Equal(t, "", FailSafe().Reason)

	c := FailSafeBecause(ReasonTimeout)
	assert.True(t, c.Halted())
	assert.Equal(t, ReasonTimeout, c.Reason)
	assert.Equal(t, "STOP/CENTER(timeout)", c.String())
}

func TestLocal(t *testing.T) {
	assert.True(t, FailSafeBecause(ReasonEStop).Local())
	assert.False(t, FailSafe().Local())
	assert.False(t, Command{Drive: DriveStop, Steer: SteerCenter, Reason: "wall ahead"}.Local())
	assert.False(t, Command{Drive: DriveForward, Steer: SteerCenter, Reason: ReasonTimeout}.Local())
}
