// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

// =============================================================================
// Session Configuration
// =============================================================================

// SessionConfig tunes one co-pilot session.
type SessionConfig struct {
	// MaxIterations bounds the thinking loop. Zero is meaningful: the
	// session skips thinking entirely and synthesizes immediately.
	MaxIterations int

	// ConfidenceTarget ends the thinking loop early once the mean insight
	// confidence reaches it.
	ConfidenceTarget float64

	// Timeout bounds the whole session. On expiry the loop abandons any
	// in-flight reasoning call and synthesizes from partial state.
	// Zero disables the timeout.
	Timeout time.Duration

	// IncludeDebug carries the raw reasoning transcript out to stream
	// frames and the caller-facing snapshot.
	IncludeDebug bool

	// StructuredOutput carries the parsed per-step records on
	// thinking_step_complete frames instead of counts only.
	StructuredOutput bool
}

// DefaultSessionConfig returns the server-side session defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxIterations:    5,
		ConfidenceTarget: 0.75,
		Timeout:          5 * time.Minute,
	}
}

// =============================================================================
// Session
// =============================================================================

// Session is one live co-pilot session: its configuration, status, decision
// state, and event stream.
//
// Thread Safety: Session is safe for concurrent use. The loop mutates the
// decision state under the session lock; readers use Snapshot.
type Session struct {
	ID        string
	Config    SessionConfig
	CreatedAt time.Time

	mu         sync.RWMutex
	status     SessionStatus
	state      *DecisionState
	inProgress atomic.Bool

	events *StreamPublisher
}

// NewSession creates a session in INIT status.
//
// # Inputs
//
//   - intent: What the caller wants decided. Must be non-empty.
//   - rationale: Optional caller-supplied context.
//   - config: Session tuning; zero fields are NOT defaulted here, callers
//     normally pass DefaultSessionConfig with overrides applied.
//
// # Outputs
//
//   - *Session: The new session.
//   - error: ErrEmptyIntent when intent is blank.
func NewSession(intent, rationale string, config SessionConfig) (*Session, error) {
	if intent == "" {
		return nil, ErrEmptyIntent
	}

	id := uuid.NewString()
	return &Session{
		ID:        id,
		Config:    config,
		CreatedAt: time.Now().UTC(),
		status:    StatusInit,
		state:     newDecisionState(id, intent, rationale),
		events:    NewStreamPublisher(),
	}, nil
}

// Status returns the current session status.
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transition moves the session to a new status, enforcing the state
// machine edges.
func (s *Session) Transition(to SessionStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !canTransition(s.status, to) {
		slog.Error("Invalid session transition",
			slog.String("session_id", s.ID),
			slog.String("from", string(s.status)),
			slog.String("to", string(to)),
		)
		return ErrInvalidTransition
	}

	slog.Info("Session transition",
		slog.String("session_id", s.ID),
		slog.String("from", string(s.status)),
		slog.String("to", string(to)),
		slog.String("reason", reason),
	)
	s.status = to
	return nil
}

// TryAcquire marks the session as running. Returns false if another
// goroutine is already running it.
func (s *Session) TryAcquire() bool {
	return s.inProgress.CompareAndSwap(false, true)
}

// Release clears the running mark.
func (s *Session) Release() {
	s.inProgress.Store(false)
}

// Snapshot returns a copy of the decision state safe for callers to hold.
func (s *Session) Snapshot() datatypes.DecisionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state.snapshot()
	if !s.Config.IncludeDebug {
		snap.ThinkingHistory = nil
	}
	return snap
}

// Summary returns the listing row for this session.
func (s *Session) Summary() datatypes.SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return datatypes.SessionSummary{
		SessionID:       s.ID,
		Intent:          s.state.Intent,
		Status:          string(s.status),
		LoopCount:       s.state.LoopCount,
		ConfidenceLevel: s.state.ConfidenceLevel,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

// Events returns the session's stream publisher.
func (s *Session) Events() *StreamPublisher {
	return s.events
}

// update runs fn with the decision state under the write lock.
func (s *Session) update(fn func(*DecisionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// read runs fn with the decision state under the read lock.
func (s *Session) read(fn func(*DecisionState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}
