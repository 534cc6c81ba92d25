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
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gemo-rc/gemo/internal/pilot/core"
	"github.com/gemo-rc/gemo/pkg/log"
	"github.com/gemo-rc/gemo/pkg/options"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 1000
)

// API serves probes, metrics, status, the e-stop switch and the decision feed.
type API struct {
	backend Backend
	estop   *core.EStop
	journal JournalReader
	feed    *Feed
}

func NewAPI(backend Backend, estop *core.EStop, journal JournalReader, feed *Feed) *API {
	return &API{backend: backend, estop: estop, journal: journal, feed: feed}
}

func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/status", a.status).Methods(http.MethodGet)
	v1.HandleFunc("/estop", a.getEStop).Methods(http.MethodGet)
	v1.HandleFunc("/estop", a.setEStop).Methods(http.MethodPost)
	if a.journal != nil {
		v1.HandleFunc("/journal", a.recent).Methods(http.MethodGet)
	}
	if a.feed != nil {
		v1.Handle("/feed", a.feed).Methods(http.MethodGet)
	}
	return r
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) readyz(w http.ResponseWriter, _ *http.Request) {
	if !a.backend.Ready() {
		http.Error(w, "decider not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.backend.Status())
}

func (a *API) getEStop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.estop.State())
}

type estopRequest struct {
	Engaged *bool  `json:"engaged"`
	Reason  string `json:"reason"`
}

func (a *API) setEStop(w http.ResponseWriter, r *http.Request) {
	var req estopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Engaged == nil {
		http.Error(w, "engaged is required", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "operator"
	}

	if a.estop.Set("http", *req.Engaged, req.Reason) {
		log.Warn("Emergency stop changed", "engaged", *req.Engaged, "reason", req.Reason, "remote", r.RemoteAddr)
	}
	writeJSON(w, http.StatusOK, a.estop.State())
}

func (a *API) recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := a.journal.Recent(r.Context(), limit)
	if err != nil {
		log.Error(err, "Failed to read journal")
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to write response", "error", err)
	}
}

// HTTPServer runs the API on HttpOptions.Addr.
type HTTPServer struct {
	server  *http.Server
	api     *API
	options *options.HttpOptions
}

func NewHTTPServer(opts *options.HttpOptions, api *API) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:    opts.Addr,
			Handler: api.Router(),
		},
		api:     api,
		options: opts,
	}
}

func (s *HTTPServer) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if s.api.feed != nil {
			s.api.feed.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
