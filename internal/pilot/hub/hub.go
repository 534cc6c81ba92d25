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
	"encoding/json"
	"errors"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"k8s.io/utils/clock"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pkg/metrics"
	"github.com/gemo-rc/gemo/internal/pkg/mqtt/paths"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/mqtt"
	mqtttopic "github.com/gemo-rc/gemo/pkg/mqtt/topic"
)

const (
	qosTelemetry = 0
	qosControl   = 1

	disconnectTimeout = 5 * time.Second
	sessionBuffer     = 16
)

// Hub links the pilot to the operator over MQTT: it publishes telemetry,
// session state, online status and heartbeats, and receives e-stop commands.
type Hub struct {
	vehicleID string

	mc     mqtt.Client
	topics *mqtttopic.Builder
	estop  *core.EStop

	heartbeat time.Duration
	stats     StatsFunc
	clk       clock.WithTicker
	started   time.Time

	sessions chan sessionChange
	logger   log.Logger
}

type sessionChange struct {
	from, to string
}

// Option customizes a Hub.
type Option func(*Hub)

// WithHeartbeat publishes host statistics every interval. Zero disables heartbeats.
func WithHeartbeat(interval time.Duration, stats StatsFunc) Option {
	return func(h *Hub) {
		h.heartbeat = interval
		if stats != nil {
			h.stats = stats
		}
	}
}

func WithClock(clk clock.WithTicker) Option {
	return func(h *Hub) { h.clk = clk }
}

func New(vehicleID string, client mqtt.Client, topics *mqtttopic.Builder, estop *core.EStop, opts ...Option) *Hub {
	h := &Hub{
		vehicleID: vehicleID,
		mc:        client,
		topics:    topics,
		estop:     estop,
		stats:     HostStats,
		clk:       clock.RealClock{},
		sessions:  make(chan sessionChange, sessionBuffer),
		logger:    log.WithName("hub").WithValues("vehicleID", vehicleID),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.started = h.clk.Now()
	return h
}

// Will returns the retained offline message the broker publishes if the pilot vanishes.
func Will(vehicleID string, topics *mqtttopic.Builder) (topic string, payload []byte) {
	payload, _ = json.Marshal(onlineStatus{Online: false, VehicleID: vehicleID, Reason: "connection lost"})
	return topics.Build(paths.Online, vehicleID), payload
}

// Send publishes payload to the vehicle's topic for segment.
func (h *Hub) Send(ctx context.Context, segment string, qos int, retain bool, payload []byte) error {
	return h.mc.Publish(ctx, h.topics.Build(segment, h.vehicleID), qos, retain, payload)
}

func (h *Hub) SendProto(ctx context.Context, segment string, qos int, msg proto.Message) error {
	payload, err := protojson.Marshal(msg)
	if err != nil {
		return err
	}
	return h.Send(ctx, segment, qos, false, payload)
}

func (h *Hub) sendFields(ctx context.Context, segment string, qos int, fields map[string]any) error {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	return h.SendProto(ctx, segment, qos, msg)
}

func (h *Hub) IsConnected() bool {
	return h.mc.IsConnected()
}

// Start connects, subscribes to the e-stop topic and announces the vehicle online.
func (h *Hub) Start(ctx context.Context) error {
	if err := h.mc.Start(ctx); err != nil {
		return err
	}

	if err := h.mc.AwaitConnection(ctx); err != nil {
		return err
	}
	metrics.HubConnectivityStatus.Set(1)
	h.logger.Info("Hub connected", "root", h.topics.Root(), "vehicleID", h.vehicleID)

	estopTopic := h.topics.Build(paths.EStop, h.vehicleID)
	err := h.mc.Subscribe(ctx, estopTopic, qosControl, func(c context.Context, topic string, p []byte) {
		if handleErr := h.handleEStop(p); handleErr != nil {
			h.logger.Error(handleErr, "Handler execution failed", "topic", topic)
		}
	})
	if err != nil {
		return err
	}

	return h.publishOnline(ctx, true, "")
}

// Run starts the hub and serves session updates and heartbeats until ctx ends.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	defer h.Stop()

	var tick <-chan time.Time
	if h.heartbeat > 0 {
		ticker := h.clk.NewTicker(h.heartbeat)
		defer ticker.Stop()
		tick = ticker.C()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sc := <-h.sessions:
			err := h.sendFields(ctx, paths.Session, qosControl, map[string]any{
				"from":  sc.from,
				"state": sc.to,
			})
			if err != nil {
				h.logger.Warn("Failed to publish session state", "state", sc.to, "error", err)
			}
		case <-tick:
			if err := h.publishHeartbeat(ctx); err != nil {
				h.logger.Debug("Heartbeat not published", "error", err)
			}
		}
	}
}

// Stop marks the vehicle offline and disconnects.
func (h *Hub) Stop() {
	h.logger.Info("Disconnecting MQTT client...")
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := h.publishOnline(ctx, false, "shutdown"); err != nil {
		h.logger.Warn("Failed to publish offline status", "error", err)
	}
	h.mc.Disconnect(ctx)
	metrics.HubConnectivityStatus.Set(0)
}

// SessionChanged queues a live session transition for publishing. It never blocks.
func (h *Hub) SessionChanged(from, to string) {
	select {
	case h.sessions <- sessionChange{from: from, to: to}:
	default:
		h.logger.Debug("Session update dropped", "state", to)
	}
}

// Observer returns a worker publishing one telemetry message per cycle.
func (h *Hub) Observer(buffer int) *core.Worker {
	return core.NewWorker("telemetry", buffer, func(ctx context.Context, c core.Cycle) {
		err := h.sendFields(ctx, paths.Telemetry, qosTelemetry, telemetryFields(c))
		if err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
			h.logger.Warn("Failed to publish telemetry", "seq", c.Seq, "error", err)
		}
	})
}

func telemetryFields(c core.Cycle) map[string]any {
	return map[string]any{
		"seq":        int64(c.Seq),
		"startedAt":  c.StartedAt.UTC().Format(time.RFC3339Nano),
		"transport":  c.Transport,
		"drive":      string(c.Command.Drive),
		"steer":      string(c.Command.Steer),
		"reason":     c.Command.Reason,
		"decideMs":   c.Latency.Milliseconds(),
		"durationMs": c.Duration.Milliseconds(),
		"estop":      c.EStop,
		"overrun":    c.Overrun,
	}
}

type onlineStatus struct {
	Online    bool   `json:"online"`
	VehicleID string `json:"vehicleID"`
	Reason    string `json:"reason,omitempty"`
}

func (h *Hub) publishOnline(ctx context.Context, online bool, reason string) error {
	payload, err := json.Marshal(onlineStatus{Online: online, VehicleID: h.vehicleID, Reason: reason})
	if err != nil {
		return err
	}
	return h.Send(ctx, paths.Online, qosControl, true, payload)
}

func (h *Hub) publishHeartbeat(ctx context.Context) error {
	fields := map[string]any{
		"uptimeSeconds": int64(h.clk.Since(h.started).Seconds()),
		"estop":         h.estop.Engaged(),
	}
	st, err := h.stats(ctx)
	if err != nil {
		h.logger.Debug("Host stats unavailable", "error", err)
	} else {
		fields["cpuPercent"] = st.CPUPercent
		fields["memPercent"] = st.MemPercent
		fields["hostUptimeSeconds"] = int64(st.HostUptime)
	}
	return h.sendFields(ctx, paths.Heartbeat, qosTelemetry, fields)
}

type estopMessage struct {
	Engaged *bool  `json:"engaged"`
	Reason  string `json:"reason"`
}

var errMissingEngaged = errors.New("estop: missing engaged field")

func (h *Hub) handleEStop(payload []byte) error {
	var msg estopMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if msg.Engaged == nil {
		return errMissingEngaged
	}
	if msg.Reason == "" {
		msg.Reason = "remote"
	}
	if h.estop.Set("mqtt", *msg.Engaged, msg.Reason) {
		h.logger.Warn("Emergency stop changed", "engaged", *msg.Engaged, "reason", msg.Reason)
	}
	return nil
}
