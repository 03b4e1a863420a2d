// Copyright 2026 The Privesc Authors
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

// Package metrics exposes Prometheus counters and histograms for the
// privesc check server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "privesc_checks_total",
			Help: "Total number of escalation checks performed, by result.",
		},
		[]string{"result"}, // "clear", "escalated", "error"
	)

	checkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "privesc_check_duration_seconds",
			Help: "Escalation check (solver) duration in seconds.",
			Buckets: []float64{
				0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
			},
		},
	)

	streamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "privesc_stream_subscribers",
			Help: "Current number of connected /v1/stream websocket clients.",
		},
	)

	uptimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "privesc_uptime_seconds",
			Help: "Seconds since the server started.",
		},
	)

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		checksTotal,
		checkDuration,
		streamSubscribers,
		uptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// RecordCheck records one completed Check call's outcome and duration.
func RecordCheck(escalated bool, err error, duration time.Duration) {
	result := "clear"
	switch {
	case err != nil:
		result = "error"
	case escalated:
		result = "escalated"
	}
	checksTotal.With(prometheus.Labels{"result": result}).Inc()
	checkDuration.Observe(duration.Seconds())
}

// SetStreamSubscribers sets the current websocket subscriber gauge.
func SetStreamSubscribers(n int) {
	streamSubscribers.Set(float64(n))
}

// SetUptime sets the uptime gauge in seconds.
func SetUptime(d time.Duration) {
	uptimeSeconds.Set(d.Seconds())
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
