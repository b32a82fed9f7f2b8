package metrics

/*
extref — fetch one web page and list the external domains it references
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	registry          = prometheus.NewRegistry()
	defaultRegisterer = promauto.With(registry)
	metricsEnabled    atomic.Bool
)

// Metrics contains all the Prometheus collectors for one extref run.
type Metrics struct {
	// Network metrics
	NetworkRequestDuration *prometheus.HistogramVec
	NetworkRequestsTotal   *prometheus.CounterVec
	NetworkErrorsTotal     *prometheus.CounterVec
	TLSHandshakeDuration   *prometheus.HistogramVec
	BytesReceivedTotal     *prometheus.CounterVec
	ReadChunksTotal        *prometheus.CounterVec
	RateLimitDelay         *prometheus.HistogramVec

	// Extraction metrics
	ReferencesFound *prometheus.GaugeVec
	BodyBytes       *prometheus.GaugeVec
}

var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled.Store(true)
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled.Load()
}

func newMetrics() *Metrics {
	buckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

	return &Metrics{
		NetworkRequestDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extref_network_request_duration_seconds",
				Help:    "Time from connect to end of stream for the page request",
				Buckets: buckets,
			},
			[]string{"scheme", "status"},
		),
		NetworkRequestsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extref_network_requests_total",
				Help: "Total number of page requests",
			},
			[]string{"scheme", "status"},
		),
		NetworkErrorsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extref_network_errors_total",
				Help: "Total number of failed request steps",
			},
			[]string{"scheme", "error_type"},
		),
		TLSHandshakeDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extref_tls_handshake_duration_seconds",
				Help:    "Time spent on TLS handshakes",
				Buckets: buckets,
			},
			[]string{"host"},
		),
		BytesReceivedTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extref_bytes_received_total",
				Help: "Raw bytes read from the socket",
			},
			[]string{"scheme"},
		),
		ReadChunksTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extref_read_chunks_total",
				Help: "Number of non-empty socket reads",
			},
			[]string{"scheme"},
		),
		RateLimitDelay: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extref_rate_limit_delay_seconds",
				Help:    "Time the read loop waited on the bandwidth limiter",
				Buckets: buckets,
			},
			[]string{"scheme"},
		),
		ReferencesFound: defaultRegisterer.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extref_references_found",
				Help: "Unique external domains found on the page",
			},
			[]string{"host"},
		),
		BodyBytes: defaultRegisterer.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extref_body_bytes",
				Help: "Size of the decoded response body",
			},
			[]string{"host"},
		),
	}
}

// MeasureDuration is a helper to measure the duration of a function
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	if !IsMetricsEnabled() {
		return func() {}
	}

	start := time.Now()
	return func() {
		histogram.With(labels).Observe(time.Since(start).Seconds())
	}
}

// RecordRequest counts a finished request and observes how long it took.
func (m *Metrics) RecordRequest(scheme string, elapsed time.Duration, err error) {
	if !IsMetricsEnabled() {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.NetworkRequestsTotal.WithLabelValues(scheme, status).Inc()
	m.NetworkRequestDuration.WithLabelValues(scheme, status).Observe(elapsed.Seconds())
}

// RecordError counts a failure of one request step (dial, tls, write, read, ...).
func (m *Metrics) RecordError(scheme, errorType string) {
	if !IsMetricsEnabled() {
		return
	}

	m.NetworkErrorsTotal.WithLabelValues(scheme, errorType).Inc()
}

// RecordRead accounts for one chunk read from the socket.
func (m *Metrics) RecordRead(scheme string, n int) {
	if !IsMetricsEnabled() || n <= 0 {
		return
	}

	m.ReadChunksTotal.WithLabelValues(scheme).Inc()
	m.BytesReceivedTotal.WithLabelValues(scheme).Add(float64(n))
}

// RecordRateLimitDelay observes time spent waiting on the read limiter.
func (m *Metrics) RecordRateLimitDelay(scheme string, d time.Duration) {
	if !IsMetricsEnabled() {
		return
	}

	m.RateLimitDelay.WithLabelValues(scheme).Observe(d.Seconds())
}

// UpdateReferences publishes the result size for host.
func (m *Metrics) UpdateReferences(host string, bodyBytes, refs int) {
	if !IsMetricsEnabled() {
		return
	}

	m.BodyBytes.WithLabelValues(host).Set(float64(bodyBytes))
	m.ReferencesFound.WithLabelValues(host).Set(float64(refs))
}

// WriteText dumps every registered metric family to w in the Prometheus text format.
// extref exits right after one request, so there is no scrape endpoint; the
// exposition is printed instead.
func WriteText(w io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
