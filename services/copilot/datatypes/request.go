// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// SessionOptions tunes a single co-pilot session.
//
// Zero values fall back to server-side defaults; MaxIterations of zero is
// meaningful (skip thinking, execute immediately) and is distinguished from
// "unset" by the pointer.
type SessionOptions struct {
	MaxIterations    *int    `json:"max_iterations,omitempty" binding:"omitempty"`
	TimeoutSeconds   int     `json:"timeout_seconds,omitempty" binding:"omitempty,min=0,max=3600"`
	ConfidenceTarget float64 `json:"confidence_target,omitempty" binding:"omitempty,min=0,max=1"`

	// IncludeDebug adds the raw reasoning transcript to stream frames and
	// the final snapshot.
	IncludeDebug bool `json:"include_debug,omitempty"`

	// StructuredOutput adds the parsed per-step records to
	// thinking_step_complete frames; without it frames carry counts only.
	StructuredOutput bool `json:"structured_output,omitempty"`
}

// CreateSessionRequest starts a new decision co-pilot session.
type CreateSessionRequest struct {
	Intent    string         `json:"intent" binding:"required,min=1,max=4096"`
	Rationale string         `json:"rationale,omitempty" binding:"omitempty,max=8192"`
	Options   SessionOptions `json:"options,omitempty"`
}

// SessionSummary is one row of the session listing endpoint.
type SessionSummary struct {
	SessionID       string  `json:"session_id"`
	Intent          string  `json:"intent"`
	Status          string  `json:"status"`
	LoopCount       int     `json:"loop_count"`
	ConfidenceLevel float64 `json:"confidence_level"`
	CreatedAt       string  `json:"created_at"`
}
