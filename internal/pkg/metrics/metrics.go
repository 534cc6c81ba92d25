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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gemo"

var (
	// DecisionsTotal counts applied commands by the transport that produced them.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Commands applied to the actuators.",
		},
		[]string{"transport", "drive", "steer"},
	)

	// FailSafeTotal counts fail-safe commands by reason (timeout, no_tool_call, disconnected, estop, capture_failed, error).
	FailSafeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failsafe_total",
			Help:      "Fail-safe commands applied, by reason.",
		},
		[]string{"reason"},
	)

	DecisionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_latency_seconds",
			Help:      "Time spent obtaining one decision.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 1.5, 2, 2.5, 3, 5, 10},
		},
		[]string{"transport"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one control cycle before sleeping.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	CycleOverruns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_overruns_total",
			Help:      "Cycles that exceeded the loop period.",
		},
	)

	CaptureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_failures_total",
			Help:      "Frame captures that failed.",
		},
	)

	BatchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_retries_total",
			Help:      "Batch requests retried after an error.",
		},
	)

	BatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Batch decisions that exhausted their retries.",
		},
	)

	// LiveSessionState is 1 for the current state of the live session and 0 for the others.
	LiveSessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_session_state",
			Help:      "Current live session state (1 = current).",
		},
		[]string{"state"},
	)

	LiveReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_reconnects_total",
			Help:      "Live sessions that ended and were restarted.",
		},
	)

	LiveQueueDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_queue_drops_total",
			Help:      "Outbound items evicted from a full live queue.",
		},
	)

	SteerPulses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steer_pulses_total",
			Help:      "Steering pulses by outcome (fired, suppressed).",
		},
		[]string{"outcome"},
	)

	ObserverDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_drops_total",
			Help:      "Cycles dropped because an observer was busy.",
		},
		[]string{"observer"},
	)

	EStopEngaged = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "estop_engaged",
			Help:      "Emergency stop latch (1 = engaged).",
		},
	)

	// HubConnectivityStatus tracks the MQTT hub connection (1 = connected).
	HubConnectivityStatus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_connectivity_status",
			Help:      "Connectivity to the MQTT broker (1=Connected, 0=NotConnected).",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		FailSafeTotal,
		DecisionLatency,
		CycleDuration,
		CycleOverruns,
		CaptureFailures,
		BatchRetries,
		BatchFailures,
		LiveSessionState,
		LiveReconnects,
		LiveQueueDrops,
		SteerPulses,
		ObserverDrops,
		EStopEngaged,
		HubConnectivityStatus,
	)
}

// SetSessionState flips the live session gauge to state.
func SetSessionState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		LiveSessionState.WithLabelValues(s).Set(v)
	}
}
