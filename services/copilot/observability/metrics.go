// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the co-pilot service.
//
// # Description
//
// Metrics cover the session lifecycle (counts, durations, terminal status),
// the thinking loop (step latency, insights per step, backend retries), and
// the event stream (active SSE subscribers, dropped frames). Exposed on the
// /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "peakwatt"

// Subsystem for co-pilot session metrics
const copilotSubsystem = "copilot"

// CopilotMetrics holds all Prometheus metrics for co-pilot sessions.
//
// Initialize once at startup via InitMetrics; registering twice panics on
// duplicate registration, as with any promauto collector.
type CopilotMetrics struct {
	// SessionsTotal counts sessions by terminal status.
	// Labels: status (DONE, ABORTED)
	SessionsTotal *prometheus.CounterVec

	// SessionDurationSeconds measures full session duration.
	// Labels: status (DONE, ABORTED)
	SessionDurationSeconds *prometheus.HistogramVec

	// ActiveSessions tracks currently running sessions.
	ActiveSessions prometheus.Gauge

	// ThinkingStepSeconds measures single reasoning step latency.
	ThinkingStepSeconds prometheus.Histogram

	// InsightsPerStep measures structured insights parsed per step.
	InsightsPerStep prometheus.Histogram

	// ReasoningRetriesTotal counts retried backend calls.
	ReasoningRetriesTotal prometheus.Counter

	// SessionsRejectedTotal counts sessions refused at the concurrency gate.
	SessionsRejectedTotal prometheus.Counter

	// ActiveStreams tracks attached SSE subscribers.
	ActiveStreams prometheus.Gauge

	// DroppedEventsTotal counts frames discarded because no subscriber
	// kept up.
	DroppedEventsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of CopilotMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *CopilotMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics on the default registry.
// Safe to call more than once; subsequent calls return the existing
// instance (registering twice on the default registry panics).
//
// # Outputs
//
//   - *CopilotMetrics: The initialized metrics instance.
func InitMetrics() *CopilotMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}
	DefaultMetrics = &CopilotMetrics{
		SessionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "sessions_total",
				Help:      "Total co-pilot sessions by terminal status",
			},
			[]string{"status"},
		),

		SessionDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "session_duration_seconds",
				Help:      "Full session duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "active_sessions",
				Help:      "Number of currently running sessions",
			},
		),

		ThinkingStepSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "thinking_step_seconds",
				Help:      "Single reasoning step latency in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		InsightsPerStep: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "insights_per_step",
				Help:      "Structured insights parsed out of one reasoning step",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
		),

		ReasoningRetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "reasoning_retries_total",
				Help:      "Total retried reasoning backend calls",
			},
		),

		SessionsRejectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "sessions_rejected_total",
				Help:      "Sessions refused at the concurrency gate",
			},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "active_streams",
				Help:      "Number of attached SSE subscribers",
			},
		),

		DroppedEventsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "dropped_events_total",
				Help:      "Stream frames dropped because no subscriber kept up",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Loop Observer
// =============================================================================

// SessionStarted increments the active sessions gauge.
func (m *CopilotMetrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionFinished records a terminal session.
//
// # Inputs
//
//   - status: The terminal status label (DONE or ABORTED).
//   - duration: Wall-clock session duration.
func (m *CopilotMetrics) SessionFinished(status string, duration time.Duration) {
	m.ActiveSessions.Dec()
	m.SessionsTotal.WithLabelValues(status).Inc()
	m.SessionDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
}

// ThinkingStepObserved records one successful reasoning step.
func (m *CopilotMetrics) ThinkingStepObserved(duration time.Duration, insights int) {
	m.ThinkingStepSeconds.Observe(duration.Seconds())
	m.InsightsPerStep.Observe(float64(insights))
}

// ReasoningRetryObserved counts a retried backend call.
func (m *CopilotMetrics) ReasoningRetryObserved() {
	m.ReasoningRetriesTotal.Inc()
}

// SessionRejected counts a session refused at the concurrency gate.
func (m *CopilotMetrics) SessionRejected() {
	m.SessionsRejectedTotal.Inc()
}

// StreamAttached increments the SSE subscriber gauge.
func (m *CopilotMetrics) StreamAttached() {
	m.ActiveStreams.Inc()
}

// StreamDetached decrements the SSE subscriber gauge.
func (m *CopilotMetrics) StreamDetached() {
	m.ActiveStreams.Dec()
}

// EventsDropped adds to the dropped frame counter.
func (m *CopilotMetrics) EventsDropped(n int) {
	if n > 0 {
		m.DroppedEventsTotal.Add(float64(n))
	}
}
