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

package paths

// Topic segments of the gemo vehicle protocol.
// Every topic is {root}/{segment}/{vehicleID}.

// Downstream: operator -> vehicle
const (
	// EStop engages or releases the emergency stop latch.
	// Payload: { "engaged": true, "reason": "operator" }
	EStop = "estop"
)

// Upstream: vehicle -> operator
const (
	// Online is the retained online/offline status, also used as the MQTT will.
	// Payload: { "online": true, "vehicleID": "...", "reason": "..." }
	Online = "online"

	// Telemetry carries one message per control cycle.
	// Payload: { "seq": 12, "drive": "FORWARD", "steer": "LEFT", "reason": "...", "decideMs": 840 }
	Telemetry = "telemetry"

	// Session reports live session state transitions.
	// Payload: { "state": "active", "sessionID": "..." }
	Session = "session"

	// Heartbeat carries periodic host statistics.
	// Payload: { "cpuPercent": 12.5, "memPercent": 40.1, "uptimeSeconds": 3600 }
	Heartbeat = "heartbeat"
)
