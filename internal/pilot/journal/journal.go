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

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/log"
)

const schema = `CREATE TABLE IF NOT EXISTS cycles (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	started_at  TEXT    NOT NULL,
	transport   TEXT    NOT NULL,
	drive       TEXT    NOT NULL,
	steer       TEXT    NOT NULL,
	reason      TEXT    NOT NULL,
	latency_ms  REAL    NOT NULL,
	duration_ms REAL    NOT NULL,
	estop       INTEGER NOT NULL,
	overrun     INTEGER NOT NULL,
	frame_bytes INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cycles_run ON cycles (run_id, seq);`

// Entry is one journaled cycle.
type Entry struct {
	RunID      string       `json:"run_id"`
	Seq        uint64       `json:"seq"`
	StartedAt  time.Time    `json:"started_at"`
	Transport  string       `json:"transport"`
	Command    core.Command `json:"command"`
	LatencyMS  float64      `json:"latency_ms"`
	DurationMS float64      `json:"duration_ms"`
	EStop      bool         `json:"estop"`
	Overrun    bool         `json:"overrun"`
	FrameBytes int          `json:"frame_bytes"`
}

// Journal appends every control cycle to a SQLite database.
type Journal struct {
	db    *sql.DB
	runID string
}

// Open creates or opens the journal at path. Entries written through it carry runID.
func Open(ctx context.Context, path, runID string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	log.Info("Journal opened", "path", path, "run", runID)
	return &Journal{db: db, runID: runID}, nil
}

func (j *Journal) RunID() string { return j.runID }

// Append records one cycle.
func (j *Journal) Append(ctx context.Context, c core.Cycle) error {
	frameBytes := 0
	if c.Frame != nil {
		frameBytes = len(c.Frame.Data)
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO cycles (run_id, seq, started_at, transport, drive, steer, reason,
			latency_ms, duration_ms, estop, overrun, frame_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, int64(c.Seq), c.StartedAt.UTC().Format(time.RFC3339Nano), c.Transport,
		string(c.Command.Drive), string(c.Command.Steer), c.Command.Reason,
		millis(c.Latency), millis(c.Duration), flag(c.EStop), flag(c.Overrun), frameBytes,
	)
	return err
}

// Recent returns up to limit entries of the current run, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, started_at, transport, drive, steer, reason,
			latency_ms, duration_ms, estop, overrun, frame_bytes
		 FROM cycles WHERE run_id = ? ORDER BY seq DESC LIMIT ?`, j.runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e              Entry
			seq            int64
			started        string
			drive, steer   string
			estop, overrun bool
		)
		if err := rows.Scan(&e.RunID, &seq, &started, &e.Transport, &drive, &steer, &e.Command.Reason,
			&e.LatencyMS, &e.DurationMS, &estop, &overrun, &e.FrameBytes); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		e.Command.Drive, e.Command.Steer = core.Drive(drive), core.Steer(steer)
		e.EStop, e.Overrun = estop, overrun
		out = append(out, e)
	}
	return out, rows.Err()
}

// Observer feeds cycles to the journal from a background worker.
func (j *Journal) Observer(buffer int) *core.Worker {
	logger := log.WithName("journal")
	return core.NewWorker("journal", buffer, func(ctx context.Context, c core.Cycle) {
		if err := j.Append(ctx, c); err != nil {
			logger.Error(err, "Failed to journal cycle", "seq", c.Seq)
		}
	})
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
