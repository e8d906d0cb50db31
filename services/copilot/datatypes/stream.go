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

// =============================================================================
// Event Kinds
// =============================================================================

const (
	// EventThinkingStepComplete fires after each successful thinking step.
	EventThinkingStepComplete = "thinking_step_complete"

	// EventStepProgress carries coarse phase notifications.
	EventStepProgress = "step_progress"

	// EventProcessComplete is the terminal frame carrying the final snapshot.
	EventProcessComplete = "process_complete"

	// EventError reports a fatal session failure.
	EventError = "error"
)

// =============================================================================
// Stream Frames
// =============================================================================

// StreamEvent is one frame on a session's event stream.
//
// # Description
//
// Every frame carries the event kind, the monotonically increasing step
// number within the session, the thinking iteration it belongs to (zero
// for frames outside the thinking phase), and a kind-specific payload.
// Frames also carry a SHA-256 hash chained to the previous frame so a
// consumer can detect dropped or reordered events.
type StreamEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	StepNumber int    `json:"step_number"`
	Iteration  int    `json:"iteration"`
	CreatedAt  string `json:"created_at"`
	Data       any    `json:"data,omitempty"`
	Hash       string `json:"hash,omitempty"`
	PrevHash   string `json:"prev_hash,omitempty"`
}

// ThinkingStepData is the payload of a thinking_step_complete frame.
//
// The record slices are present only for sessions created with
// structured_output; RawResponse only with include_debug. Counts are
// always present.
type ThinkingStepData struct {
	Iteration       int        `json:"iteration"`
	ConfidenceLevel float64    `json:"confidence_level"`
	NextAction      NextAction `json:"next_action"`

	// Running totals across the whole session so far.
	InsightCount  int `json:"insight_count"`
	QuestionCount int `json:"question_count"`
	GapCount      int `json:"gap_count"`

	NewInsights  []Insight        `json:"new_insights,omitempty"`
	NewQuestions []ActiveQuestion `json:"new_questions,omitempty"`
	NewGaps      []KnowledgeGap   `json:"new_gaps,omitempty"`

	RawResponse string `json:"raw_response,omitempty"`
}

// StepProgressData is the payload of a step_progress frame: a lightweight
// heartbeat naming the phase being entered and the action that led there.
type StepProgressData struct {
	Phase      string     `json:"phase"`
	NextAction NextAction `json:"next_action,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Phase string `json:"phase,omitempty"`
}
