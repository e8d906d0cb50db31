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

import "errors"

var (
	// ErrSessionNotFound is returned when a session ID has no live session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionInProgress is returned when a session is already running.
	ErrSessionInProgress = errors.New("session already in progress")

	// ErrConcurrencyLimit is returned when the process-wide session cap is
	// reached and the gate is in reject mode.
	ErrConcurrencyLimit = errors.New("maximum concurrent sessions reached")

	// ErrEmptyIntent is returned when a session is started without an intent.
	ErrEmptyIntent = errors.New("intent must not be empty")

	// ErrInvalidSession is returned when Run receives a nil session or a
	// session that already ran.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidTransition is returned for a disallowed status transition.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrReasoningCall indicates the reasoning backend failed on both the
	// initial call and the single retry. The step that observed it left the
	// session state untouched.
	ErrReasoningCall = errors.New("reasoning backend call failed")

	// ErrExecutionSynthesis indicates the final synthesis step failed. The
	// session ends without a completed decision.
	ErrExecutionSynthesis = errors.New("execution synthesis failed")

	// ErrCanceled is returned when the caller's context is canceled before
	// the session reaches a terminal state.
	ErrCanceled = errors.New("session canceled by caller")

	// ErrStreamSubscribed is returned on a second Subscribe call for the
	// same session stream.
	ErrStreamSubscribed = errors.New("event stream already has a subscriber")
)

// ErrorKind maps a loop error to the stable kind string carried on error
// stream frames.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrReasoningCall):
		return "reasoning_call_failure"
	case errors.Is(err, ErrExecutionSynthesis):
		return "execution_synthesis_failure"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrConcurrencyLimit):
		return "concurrency_limit"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal"
	}
}
