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

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/actuator"
	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pilot/decision"
	"github.com/gemo-rc/gemo/internal/pilot/frames"
	"github.com/gemo-rc/gemo/internal/pilot/hal"
	"github.com/gemo-rc/gemo/internal/pilot/hub"
	"github.com/gemo-rc/gemo/internal/pilot/journal"
	"github.com/gemo-rc/gemo/internal/pilot/recorder"
	"github.com/gemo-rc/gemo/internal/pilot/server"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/mqtt"
	mqtttopic "github.com/gemo-rc/gemo/pkg/mqtt/topic"
	"github.com/gemo-rc/gemo/pkg/options"
)

const observerBuffer = 32

// Config is everything needed to assemble a Pilot.
type Config struct {
	DecisionOptions *options.DecisionOptions
	DriveOptions    *options.DriveOptions
	SteerOptions    *options.SteerOptions
	HALOptions      *options.HALOptions
	LoopOptions     *options.LoopOptions
	FrameOptions    *options.FrameOptions
	JournalOptions  *options.JournalOptions
	S3Options       *options.S3Options
	MqttOptions     *options.MqttOptions
	HttpOptions     *options.HttpOptions
	GrpcOptions     *options.GrpcOptions

	// VehicleID overrides discovery when set.
	VehicleID string

	// Clock defaults to the real clock.
	Clock clock.WithTickerAndDelayedExecution

	// Replacements for the real decision service, camera, motors and broker.
	Decider    core.Decider
	Source     core.FrameSource
	Motors     *hal.Motors
	MqttClient mqtt.Client
	Store      recorder.Store
}

// NewPilot binds the hardware, the frame source and the decision transport.
// Any failure here is fatal: whatever was already opened is released.
func (cfg *Config) NewPilot(ctx context.Context) (_ *Pilot, err error) {
	vid := cfg.VehicleID
	if vid == "" {
		vid = DiscoverVehicleID()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	p := &Pilot{
		vehicleID: vid,
		runID:     uuid.NewString(),
		clock:     clk,
		loopOpts:  cfg.LoopOptions,
		estop:     core.NewEStop(),
		logger:    log.WithName("pilot").WithValues("vehicleID", vid),
	}
	defer func() {
		if err != nil {
			p.release()
		}
	}()

	motors := cfg.Motors
	if motors == nil {
		if motors, err = hal.New(cfg.HALOptions); err != nil {
			return nil, fmt.Errorf("failed to bind motors: %w", err)
		}
	}
	p.motors = motors

	if p.actuator, err = actuator.NewFromOptions(motors.Drive, motors.Steer, cfg.DriveOptions, cfg.SteerOptions, clk); err != nil {
		return nil, err
	}
	tuning := actuator.TuningFromOptions(cfg.DriveOptions, cfg.SteerOptions)
	p.tuning.Store(&tuning)

	// Leave the vehicle de-energized before anything else can fail.
	if err = p.actuator.SafeStop(); err != nil {
		return nil, fmt.Errorf("failed to stop motors: %w", err)
	}

	source := cfg.Source
	if source == nil {
		if source, err = frames.New(cfg.FrameOptions); err != nil {
			return nil, fmt.Errorf("failed to open frame source: %w", err)
		}
	}
	p.source = source

	if cfg.MqttOptions != nil && cfg.MqttOptions.Enabled {
		if p.hub, err = cfg.newHub(vid, p.estop, clk); err != nil {
			return nil, fmt.Errorf("failed to init mqtt hub: %w", err)
		}
		p.addObserver(p.hub.Observer(observerBuffer))
	}

	decider := cfg.Decider
	if decider == nil {
		if decider, err = cfg.newDecider(ctx, clk, p.sessionChanged); err != nil {
			return nil, err
		}
	}
	p.decider = decider

	if cfg.JournalOptions != nil && cfg.JournalOptions.Path != "" {
		if p.journal, err = journal.Open(ctx, cfg.JournalOptions.Path, p.runID); err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		p.addObserver(p.journal.Observer(observerBuffer))
	}

	if cfg.S3Options != nil && cfg.S3Options.Enabled {
		rec, recErr := cfg.newRecorder(ctx, vid, p.runID)
		if recErr != nil {
			return nil, fmt.Errorf("failed to init recorder: %w", recErr)
		}
		p.addObserver(rec.Observer(observerBuffer))
	}

	p.servers = cfg.newServers(p)

	p.logger.Info("Pilot assembled",
		"runID", p.runID,
		"transport", p.decider.Transport(),
		"source", p.source.Name(),
		"observers", len(p.workers),
		"servers", p.servers.Len(),
	)
	return p, nil
}

func (cfg *Config) newHub(vid string, estop *core.EStop, clk clock.WithTicker) (*hub.Hub, error) {
	topics := mqtttopic.NewBuilder(cfg.MqttOptions.TopicRoot)

	client := cfg.MqttClient
	if client == nil {
		mqttConfig := cfg.MqttOptions.ToClientConfig()
		if mqttConfig.ClientID == "" {
			mqttConfig.ClientID = fmt.Sprintf("gemo-pilot-%s", vid)
		}
		mqttConfig.WillTopic, mqttConfig.WillPayload = hub.Will(vid, topics)
		mqttConfig.WillQoS = 1
		mqttConfig.WillRetain = true

		var err error
		if client, err = mqtt.NewClient(mqttConfig); err != nil {
			return nil, err
		}
	}

	return hub.New(vid, client, topics, estop,
		hub.WithClock(clk),
		hub.WithHeartbeat(cfg.MqttOptions.HeartbeatInterval, nil),
	), nil
}

func (cfg *Config) newDecider(ctx context.Context, clk clock.Clock, onState decision.StateListener) (core.Decider, error) {
	creds, err := decision.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return decision.New(ctx, &decision.Config{
		Options:       cfg.DecisionOptions,
		Credentials:   creds,
		Clock:         clk,
		OnStateChange: onState,
	})
}

func (cfg *Config) newRecorder(ctx context.Context, vid, runID string) (*recorder.Recorder, error) {
	store := cfg.Store
	if store == nil {
		var err error
		if store, err = recorder.NewMinIOStore(cfg.S3Options); err != nil {
			return nil, err
		}
	}
	if err := store.CheckBucket(ctx); err != nil {
		return nil, err
	}
	return recorder.New(store, vid, runID, cfg.S3Options.SampleEvery), nil
}

func (cfg *Config) newServers(p *Pilot) *server.Manager {
	var servers []server.Server

	if cfg.HttpOptions != nil && cfg.HttpOptions.Enabled {
		feed := server.NewFeed()
		p.addObserver(feed.Observer(observerBuffer))

		var jr server.JournalReader
		if p.journal != nil {
			jr = p.journal
		}
		servers = append(servers, server.NewHTTPServer(cfg.HttpOptions, server.NewAPI(p, p.estop, jr, feed)))
	}

	if cfg.GrpcOptions != nil && cfg.GrpcOptions.Enabled {
		servers = append(servers, server.NewGRPCServer(cfg.GrpcOptions, p))
	}

	return server.NewManager(servers...)
}

var errCaptureFaulted = errors.New("frame capture keeps failing")
