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
	"os"
	"strings"

	"github.com/gemo-rc/gemo/pkg/log"
)

const (
	vehicleIDEnv  = "GEMO_VEHICLE_ID"
	vehicleIDFile = "/etc/gemo/vehicle-id"
)

// DiscoverVehicleID returns the vehicle identity from the environment, the
// identity file or the hostname, in that order.
func DiscoverVehicleID() string {
	return discoverVehicleID(os.Getenv, vehicleIDFile, os.Hostname)
}

func discoverVehicleID(getenv func(string) string, file string, hostname func() (string, error)) string {
	if envID := strings.TrimSpace(getenv(vehicleIDEnv)); envID != "" {
		log.Info("VehicleID detected from env", "id", envID)
		return envID
	}

	if content, err := os.ReadFile(file); err == nil {
		if id := strings.TrimSpace(string(content)); id != "" {
			log.Info("VehicleID detected from file", "id", id, "file", file)
			return id
		}
	}

	if name, err := hostname(); err == nil && name != "" {
		log.Info("VehicleID defaulted to hostname", "id", name)
		return name
	}
	return "gemo"
}
