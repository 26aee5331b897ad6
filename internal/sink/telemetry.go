// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package sink

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the telemetry hook spec.md §4.3/§7 requires: sink I/O
// errors are observed here rather than aborting the drain loop. Every
// method is nil-safe, so a nil *Metrics is a valid no-op telemetry
// hook — callers that don't care about metrics can pass nil.
type Metrics struct {
	BytesDrainedTotal           prometheus.Counter
	DrainErrorsTotal            prometheus.Counter
	FlushErrorsTotal            prometheus.Counter
	NotificationsCoalescedTotal prometheus.Counter
	BufferOccupancy             prometheus.Gauge
}

// NewMetrics creates and optionally registers drain-worker metrics. If
// reg is nil, the metrics are created but not registered (useful for
// tests and for embedding in a binary that doesn't run a Prometheus
// exporter).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BytesDrainedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bipbuf",
			Subsystem: "sink",
			Name:      "bytes_drained_total",
			Help:      "Total bytes handed to the sink by the drain worker.",
		}),
		DrainErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bipbuf",
			Subsystem: "sink",
			Name:      "drain_errors_total",
			Help:      "Total sink write errors observed by the drain worker.",
		}),
		FlushErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bipbuf",
			Subsystem: "sink",
			Name:      "flush_errors_total",
			Help:      "Total sink flush errors observed at shutdown.",
		}),
		NotificationsCoalescedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bipbuf",
			Subsystem: "sink",
			Name:      "notifications_coalesced_total",
			Help:      "Total best-effort notification sends dropped because the worker was already pending wake-up.",
		}),
		BufferOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bipbuf",
			Subsystem: "sink",
			Name:      "buffer_occupancy_bytes",
			Help:      "Unread bytes currently held by the underlying buffer.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.BytesDrainedTotal,
			m.DrainErrorsTotal,
			m.FlushErrorsTotal,
			m.NotificationsCoalescedTotal,
			m.BufferOccupancy,
		)
	}

	return m
}

func (m *Metrics) recordDrained(n int) {
	if m == nil {
		return
	}
	m.BytesDrainedTotal.Add(float64(n))
}

func (m *Metrics) recordDrainError() {
	if m == nil {
		return
	}
	m.DrainErrorsTotal.Inc()
}

func (m *Metrics) recordFlushError() {
	if m == nil {
		return
	}
	m.FlushErrorsTotal.Inc()
}

func (m *Metrics) recordCoalesced() {
	if m == nil {
		return
	}
	m.NotificationsCoalescedTotal.Inc()
}

func (m *Metrics) setOccupancy(n int) {
	if m == nil {
		return
	}
	m.BufferOccupancy.Set(float64(n))
}
