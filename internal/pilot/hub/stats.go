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

package hub

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats are the host figures carried by heartbeats.
type Stats struct {
	CPUPercent float64
	MemPercent float64
	HostUptime uint64
}

type StatsFunc func(ctx context.Context) (Stats, error)

// HostStats samples the local machine.
func HostStats(ctx context.Context) (Stats, error) {
	var st Stats

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return st, err
	}
	if len(percents) > 0 {
		st.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return st, err
	}
	st.MemPercent = vm.UsedPercent

	st.HostUptime, err = host.UptimeWithContext(ctx)
	return st, err
}
