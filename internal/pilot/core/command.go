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
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Drive is the categorical drive decision.
type Drive string

const (
	DriveForward Drive = "FORWARD"
	DriveStop    Drive = "STOP"
	DriveReverse Drive = "REVERSE"
)

// Steer is the categorical steering decision.
type Steer string

const (
	SteerLeft   Steer = "LEFT"
	SteerCenter Steer = "CENTER"
	SteerRight  Steer = "RIGHT"
)

// Reasons attached to fail-safe commands produced locally.
const (
	ReasonTimeout       = "timeout"
	ReasonNoToolCall    = "no_tool_call"
	ReasonDisconnected  = "disconnected"
	ReasonEStop         = "estop"
	ReasonCaptureFailed = "capture_failed"
)

// DriveValues and SteerValues list the accepted enum values in declaration order.
var (
	DriveValues = []string{string(DriveForward), string(DriveStop), string(DriveReverse)}
	SteerValues = []string{string(SteerLeft), string(SteerCenter), string(SteerRight)}
)

// Command is one decision. Its fields are always within their enums.
type Command struct {
	Drive  Drive  `json:"drive"`
	Steer  Steer  `json:"steer"`
	Reason string `json:"reason"`
}

// FailSafe is the command applied whenever no valid decision is available.
func FailSafe() Command {
	return Command{Drive: DriveStop, Steer: SteerCenter}
}

// FailSafeBecause is FailSafe tagged with one of the Reason constants.
func FailSafeBecause(reason string) Command {
	c := FailSafe()
	c.Reason = reason
	return c
}

// Halted reports whether c leaves both axes de-energized.
func (c Command) Halted() bool {
	return c.Drive == DriveStop && c.Steer == SteerCenter
}

// Local reports whether c is a fail-safe produced by the pilot itself rather than decided.
func (c Command) Local() bool {
	switch c.Reason {
	case ReasonTimeout, ReasonNoToolCall, ReasonDisconnected, ReasonEStop, ReasonCaptureFailed:
		return c.Halted()
	}
	return false
}

func (c Command) String() string {
	return fmt.Sprintf("%s/%s(%s)", c.Drive, c.Steer, c.Reason)
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (c Command) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("drive", string(c.Drive))
	enc.AddString("steer", string(c.Steer))
	if c.Reason != "" {
		enc.AddString("reason", c.Reason)
	}
	return nil
}

// Sanitize maps raw decision output onto a Command. Unknown or missing values
// fall back to STOP and CENTER; matching is case-sensitive.
func Sanitize(drive, steer, reason string) Command {
	c := Command{Drive: DriveStop, Steer: SteerCenter, Reason: reason}

	switch d := Drive(drive); d {
	case DriveForward, DriveStop, DriveReverse:
		c.Drive = d
	}
	switch s := Steer(steer); s {
	case SteerLeft, SteerCenter, SteerRight:
		c.Steer = s
	}
	return c
}

// SanitizeArgs is Sanitize over a function call's argument map. Non-string
// values count as missing.
func SanitizeArgs(args map[string]any) Command {
	str := func(key string) string {
		if args == nil {
			return ""
		}
		s, _ := args[key].(string)
		return s
	}
	return Sanitize(str("drive"), str("steer"), str("reason"))
}
