// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics creates a CopilotMetrics instance on an isolated registry
// so tests do not collide with the global Prometheus registry.
func newTestMetrics(t *testing.T) *CopilotMetrics {
	t.Helper()

	reg := prometheus.NewRegistry()

	m := &CopilotMetrics{
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "sessions_total",
				Help:      "Total co-pilot sessions by terminal status",
			},
			[]string{"status"},
		),
		SessionDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "session_duration_seconds",
				Help:      "Full session duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "active_sessions",
				Help:      "Number of currently running sessions",
			},
		),
		ThinkingStepSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "thinking_step_seconds",
				Help:      "Single reasoning step latency in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		InsightsPerStep: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "insights_per_step",
				Help:      "Structured insights parsed out of one reasoning step",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
		),
		ReasoningRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "reasoning_retries_total",
				Help:      "Total retried reasoning backend calls",
			},
		),
		SessionsRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "sessions_rejected_total",
				Help:      "Sessions refused at the concurrency gate",
			},
		),
		ActiveStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "active_streams",
				Help:      "Number of attached SSE subscribers",
			},
		),
		DroppedEventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: copilotSubsystem,
				Name:      "dropped_events_total",
				Help:      "Stream frames dropped because no subscriber kept up",
			},
		),
	}

	reg.MustRegister(
		m.SessionsTotal, m.SessionDurationSeconds, m.ActiveSessions,
		m.ThinkingStepSeconds, m.InsightsPerStep, m.ReasoningRetriesTotal,
		m.SessionsRejectedTotal, m.ActiveStreams, m.DroppedEventsTotal,
	)
	return m
}

func TestSessionLifecycleCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.SessionStarted()
	m.SessionStarted()
	if got := testutil.ToFloat64(m.ActiveSessions); got != 2 {
		t.Errorf("active sessions = %v, want 2", got)
	}

	m.SessionFinished("DONE", 3*time.Second)
	m.SessionFinished("ABORTED", time.Second)

	if got := testutil.ToFloat64(m.ActiveSessions); got != 0 {
		t.Errorf("active sessions = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.SessionsTotal.WithLabelValues("DONE")); got != 1 {
		t.Errorf("DONE sessions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionsTotal.WithLabelValues("ABORTED")); got != 1 {
		t.Errorf("ABORTED sessions = %v, want 1", got)
	}
}

func TestThinkingStepAndRetries(t *testing.T) {
	m := newTestMetrics(t)

	m.ThinkingStepObserved(2*time.Second, 3)
	m.ReasoningRetryObserved()
	m.ReasoningRetryObserved()

	if got := testutil.ToFloat64(m.ReasoningRetriesTotal); got != 2 {
		t.Errorf("retries = %v, want 2", got)
	}
}

func TestStreamGaugesAndDrops(t *testing.T) {
	m := newTestMetrics(t)

	m.StreamAttached()
	if got := testutil.ToFloat64(m.ActiveStreams); got != 1 {
		t.Errorf("active streams = %v, want 1", got)
	}
	m.StreamDetached()
	if got := testutil.ToFloat64(m.ActiveStreams); got != 0 {
		t.Errorf("active streams = %v, want 0", got)
	}

	m.EventsDropped(5)
	m.EventsDropped(0) // no-op
	if got := testutil.ToFloat64(m.DroppedEventsTotal); got != 5 {
		t.Errorf("dropped events = %v, want 5", got)
	}
}

func TestSessionRejected(t *testing.T) {
	m := newTestMetrics(t)

	m.SessionRejected()
	if got := testutil.ToFloat64(m.SessionsRejectedTotal); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}
