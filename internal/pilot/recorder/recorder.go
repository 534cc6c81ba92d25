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

package recorder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/log"
)

// Recorder archives every Nth frame together with the decision applied to it.
type Recorder struct {
	store       Store
	vehicleID   string
	runID       string
	sampleEvery uint64
	logger      log.Logger
}

func New(store Store, vehicleID, runID string, sampleEvery int) *Recorder {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	return &Recorder{
		store:       store,
		vehicleID:   vehicleID,
		runID:       runID,
		sampleEvery: uint64(sampleEvery),
		logger:      log.WithName("recorder"),
	}
}

// Sampled reports whether the cycle is archived.
func (r *Recorder) Sampled(c core.Cycle) bool {
	return c.Frame != nil && c.Seq%r.sampleEvery == 0
}

// ObjectKey is where the frame of cycle seq is stored.
func (r *Recorder) ObjectKey(seq uint64) string {
	return fmt.Sprintf("%s/%s/%010d.jpg", r.vehicleID, r.runID, seq)
}

// Record uploads the frame of c if it is sampled.
func (r *Recorder) Record(ctx context.Context, c core.Cycle) error {
	if !r.Sampled(c) {
		return nil
	}
	meta := map[string]string{
		"drive":     string(c.Command.Drive),
		"steer":     string(c.Command.Steer),
		"reason":    c.Command.Reason,
		"transport": c.Transport,
		"seq":       strconv.FormatUint(c.Seq, 10),
		"estop":     strconv.FormatBool(c.EStop),
	}
	return r.store.Put(ctx, r.ObjectKey(c.Seq), c.Frame.Data, c.Frame.MIMEType, meta)
}

// Observer uploads sampled frames from a background worker.
func (r *Recorder) Observer(buffer int) *core.Worker {
	return core.NewWorker("recorder", buffer, func(ctx context.Context, c core.Cycle) {
		if err := r.Record(ctx, c); err != nil {
			r.logger.Error(err, "Failed to archive frame", "seq", c.Seq)
		}
	})
}
