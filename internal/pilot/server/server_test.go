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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/internal/pilot/journal"
	"github.com/gemo-rc/gemo/pkg/options"
)

type fakeBackend struct {
	ready atomic.Bool
	estop *core.EStop
}

func (b *fakeBackend) Ready() bool { return b.ready.Load() }

func (b *fakeBackend) Status() Status {
	return Status{
		VehicleID: "car-1",
		Transport: "batch",
		Ready:     b.Ready(),
		Cycles:    3,
		EStop:     b.estop.State(),
		LastCycle: &core.Cycle{Seq: 3, Command: core.FailSafeBecause(core.ReasonTimeout)},
	}
}

type fakeJournal struct {
	limit   int
	entries []journal.Entry
	err     error
}

func (j *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	j.limit = limit
	return j.entries, j.err
}

func newTestAPI(j JournalReader, feed *Feed) (*API, *fakeBackend, *core.EStop) {
	estop := core.NewEStop()
	b := &fakeBackend{estop: estop}
	return NewAPI(b, estop, j, feed), b, estop
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProbes(t *testing.T) {
	api, backend, _ := newTestAPI(nil, nil)
	r := api.Router()

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/readyz", "").Code)

	backend.ready.Store(true)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/readyz", "").Code)

	rec := do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gemo_")
}

func TestStatus(t *testing.T) {
	api, _, _ := newTestAPI(nil, nil)
	rec := do(t, api.Router(), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "car-1", st.VehicleID)
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, core.ReasonTimeout, st.LastCycle.Command.Reason)
}

func TestEStopEndpoint(t *testing.T) {
	api, _, estop := newTestAPI(nil, nil)
	r := api.Router()

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/estop", "{").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/estop", `{"reason":"x"}`).Code)
	assert.False(t, estop.Engaged())

	rec := do(t, r, http.MethodPost, "/api/v1/estop", `{"engaged":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	st := estop.State()
	assert.True(t, st.Engaged)
	assert.Equal(t, "operator", st.Reason)
	assert.Equal(t, "http", st.Source)

	rec = do(t, r, http.MethodGet, "/api/v1/estop", "")
	assert.Contains(t, rec.Body.String(), `"engaged":true`)

	do(t, r, http.MethodPost, "/api/v1/estop", `{"engaged":false}`)
	assert.False(t, estop.Engaged())
}

func TestJournalEndpoint(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		api, _, _ := newTestAPI(nil, nil)
		assert.Equal(t, http.StatusNotFound, do(t, api.Router(), http.MethodGet, "/api/v1/journal", "").Code)
	})

	t.Run("limit", func(t *testing.T) {
		j := &fakeJournal{entries: []journal.Entry{{Seq: 2}, {Seq: 1}}}
		api, _, _ := newTestAPI(j, nil)
		r := api.Router()

		rec := do(t, r, http.MethodGet, "/api/v1/journal", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, defaultJournalLimit, j.limit)

		do(t, r, http.MethodGet, "/api/v1/journal?limit=5000", "")
		assert.Equal(t, maxJournalLimit, j.limit)

		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/v1/journal?limit=-1", "").Code)
	})

	t.Run("error", func(t *testing.T) {
		api, _, _ := newTestAPI(&fakeJournal{err: errors.New("disk")}, nil)
		assert.Equal(t, http.StatusInternalServerError, do(t, api.Router(), http.MethodGet, "/api/v1/journal", "").Code)
	})
}

func TestFeedStreamsCycles(t *testing.T) {
	feed := NewFeed()
	api, _, _ := newTestAPI(nil, feed)
	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Clients() == 1 }, time.Second, 5*time.Millisecond)

	feed.Broadcast(core.Cycle{Seq: 9, Transport: "live", Command: core.Command{Drive: core.DriveForward, Steer: core.SteerRight}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got core.Cycle
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.EqualValues(t, 9, got.Seq)
	assert.Equal(t, core.SteerRight, got.Command.Steer)

	feed.Close()
	assert.Equal(t, 0, feed.Clients())
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

type stubServer struct {
	started atomic.Int32
	err     error
}

func (s *stubServer) Start(ctx context.Context) error {
	s.started.Add(1)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func TestManager(t *testing.T) {
	assert.NoError(t, NewManager().Start(context.Background()))

	ok := &stubServer{}
	bad := &stubServer{err: errors.New("bind: address in use")}
	err := NewManager(ok, bad).Start(context.Background())
	assert.EqualError(t, err, "bind: address in use")
	assert.EqualValues(t, 1, ok.started.Load())
}

func TestGRPCHealth(t *testing.T) {
	estop := core.NewEStop()
	backend := &fakeBackend{estop: estop}
	backend.ready.Store(true)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	opts := options.NewGrpcOptions()
	s := NewGRPCServer(opts, backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthService})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	backend.ready.Store(false)
	s.Sync()
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	cancel()
	assert.NoError(t, <-done)
}
