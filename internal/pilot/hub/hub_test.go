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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/mqtt"
	mqtttopic "github.com/gemo-rc/gemo/pkg/mqtt/topic"
)

type published struct {
	topic   string
	qos     int
	retain  bool
	payload []byte
}

type fakeClient struct {
	mu        sync.Mutex
	connected bool
	msgs      []published
	handlers  map[string]mqtt.MessageHandler
}

var _ mqtt.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]mqtt.MessageHandler{}}
}

func (f *fakeClient) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeClient) Publish(_ context.Context, topic string, qos int, retain bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected && qos == 0 {
		return mqtt.ErrNotConnected
	}
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, retain: retain, payload: payload})
	return nil
}

func (f *fakeClient) Subscribe(_ context.Context, topic string, _ int, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeClient) Unsubscribe(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeClient) AwaitConnection(context.Context) error { return nil }

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) deliver(topic string, payload []byte) {
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	h(context.Background(), topic, payload)
}

func (f *fakeClient) on(topic string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, m := range f.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func decode(t *testing.T, p []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(p, &m))
	return m
}

func newTestHub(opts ...Option) (*Hub, *fakeClient, *core.EStop) {
	fc := newFakeClient()
	estop := core.NewEStop()
	return New("car-1", fc, mqtttopic.NewBuilder("gemo/v1"), estop, opts...), fc, estop
}

func TestStartAnnouncesOnline(t *testing.T) {
	h, fc, _ := newTestHub()
	require.NoError(t, h.Start(context.Background()))

	msgs := fc.on("gemo/v1/online/car-1")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].retain)
	assert.Equal(t, true, decode(t, msgs[0].payload)["online"])

	h.Stop()
	msgs = fc.on("gemo/v1/online/car-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, false, decode(t, msgs[1].payload)["online"])
	assert.False(t, fc.IsConnected())
}

func TestEStopMessages(t *testing.T) {
	h, fc, estop := newTestHub()
	require.NoError(t, h.Start(context.Background()))

	fc.deliver("gemo/v1/estop/car-1", []byte(`{"engaged":true,"reason":"operator"}`))
	st := estop.State()
	assert.True(t, st.Engaged)
	assert.Equal(t, "operator", st.Reason)
	assert.Equal(t, "mqtt", st.Source)

	// malformed payloads leave the latch alone
	fc.deliver("gemo/v1/estop/car-1", []byte(`not json`))
	fc.deliver("gemo/v1/estop/car-1", []byte(`{"reason":"x"}`))
	assert.True(t, estop.Engaged())

	fc.deliver("gemo/v1/estop/car-1", []byte(`{"engaged":false}`))
	assert.False(t, estop.Engaged())
}

func TestHandleEStopRequiresEngaged(t *testing.T) {
	h, _, _ := newTestHub()
	assert.ErrorIs(t, h.handleEStop([]byte(`{}`)), errMissingEngaged)
}

func TestTelemetryObserver(t *testing.T) {
	h, fc, _ := newTestHub()
	require.NoError(t, h.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := h.Observer(4)
	go func() { _ = w.Run(ctx) }()

	w.Observe(core.Cycle{
		Seq:       7,
		Transport: "batch",
		Command:   core.Command{Drive: core.DriveForward, Steer: core.SteerLeft, Reason: "clear path"},
		Latency:   840 * time.Millisecond,
	})

	require.Eventually(t, func() bool {
		return len(fc.on("gemo/v1/telemetry/car-1")) == 1
	}, time.Second, 5*time.Millisecond)

	msg := fc.on("gemo/v1/telemetry/car-1")[0]
	assert.Equal(t, 0, msg.qos)
	body := decode(t, msg.payload)
	assert.Equal(t, "FORWARD", body["drive"])
	assert.Equal(t, "LEFT", body["steer"])
	assert.Equal(t, "clear path", body["reason"])
	assert.EqualValues(t, 7, body["seq"])
	assert.EqualValues(t, 840, body["decideMs"])
}

func TestRunPublishesSessionAndHeartbeat(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Unix(1000, 0))
	stats := func(context.Context) (Stats, error) {
		return Stats{CPUPercent: 12.5, MemPercent: 40, HostUptime: 3600}, nil
	}
	h, fc, _ := newTestHub(WithClock(clk), WithHeartbeat(time.Second, stats))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	h.SessionChanged("connecting", "active")
	require.Eventually(t, func() bool {
		return len(fc.on("gemo/v1/session/car-1")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "active", decode(t, fc.on("gemo/v1/session/car-1")[0].payload)["state"])

	require.Eventually(t, clk.HasWaiters, time.Second, 5*time.Millisecond)
	clk.Step(time.Second)
	require.Eventually(t, func() bool {
		return len(fc.on("gemo/v1/heartbeat/car-1")) == 1
	}, time.Second, 5*time.Millisecond)

	hb := decode(t, fc.on("gemo/v1/heartbeat/car-1")[0].payload)
	assert.EqualValues(t, 12.5, hb["cpuPercent"])
	assert.EqualValues(t, 3600, hb["hostUptimeSeconds"])
	assert.EqualValues(t, 1, hb["uptimeSeconds"])

	cancel()
	require.NoError(t, <-done)
	assert.False(t, fc.IsConnected())
}

func TestWill(t *testing.T) {
	topic, payload := Will("car-1", mqtttopic.NewBuilder("gemo/v1"))
	assert.Equal(t, "gemo/v1/online/car-1", topic)
	body := decode(t, payload)
	assert.Equal(t, false, body["online"])
	assert.Equal(t, "car-1", body["vehicleID"])
}
