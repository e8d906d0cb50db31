// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes contains the wire and record types shared between the
// co-pilot agent core and its HTTP handlers.
package datatypes

// =============================================================================
// Structured Knowledge Records
// =============================================================================

// Insight is one structured observation parsed out of reasoning output.
//
// # Fields
//
//   - Content: The observation text.
//   - Confidence: Model-reported confidence in [0,1].
//   - RelatedQuestion: The open question this insight bears on (may be empty).
//
// Duplicate insights (identical content) are retained, not merged; each
// parsed occurrence is kept in discovery order.
type Insight struct {
	Content         string  `json:"content"`
	Confidence      float64 `json:"confidence"`
	RelatedQuestion string  `json:"related_question,omitempty"`
}

// ActiveQuestion is an open question the reasoning loop wants answered.
type ActiveQuestion struct {
	Content      string  `json:"content"`
	TargetSource string  `json:"target_source,omitempty"`
	Priority     float64 `json:"priority"`
}

// KnowledgeGap names missing information and where it might be found.
type KnowledgeGap struct {
	Description     string  `json:"description"`
	Importance      float64 `json:"importance"`
	PotentialSource string  `json:"potential_source,omitempty"`
}

// =============================================================================
// Execution Output
// =============================================================================

// PeriodAdjustment is the synthesized demand adjustment for one named
// time period (e.g. "morning_peak").
type PeriodAdjustment struct {
	AdjustmentPercentage float64 `json:"adjustment_percentage"`
	Reason               string  `json:"reason"`
	Confidence           float64 `json:"confidence"`
}

// =============================================================================
// Next Action
// =============================================================================

// NextAction is the loop's per-step decision about what happens next.
type NextAction string

const (
	// NextActionContinueThinking runs another thinking step.
	NextActionContinueThinking NextAction = "continue_thinking"

	// NextActionProceedToExecution ends the thinking phase.
	NextActionProceedToExecution NextAction = "proceed_to_execution"
)

// =============================================================================
// Final Snapshot
// =============================================================================

// DecisionSnapshot is the caller-facing view of a session's state.
//
// # Description
//
// DecisionSnapshot is the payload of the terminal process_complete event
// and the non-streaming snapshot endpoint. For a session that aborted,
// IsComplete is false and the collections hold whatever partial state
// existed at abort time.
type DecisionSnapshot struct {
	SessionID            string                      `json:"session_id"`
	ConfidenceLevel      float64                     `json:"confidence_level"`
	IsComplete           bool                        `json:"is_complete"`
	TimedOut             bool                        `json:"timed_out,omitempty"`
	Insights             []Insight                   `json:"insights"`
	ActiveQuestions      []ActiveQuestion            `json:"active_questions"`
	KnowledgeGaps        []KnowledgeGap              `json:"knowledge_gaps"`
	ThinkingHistory      []string                    `json:"thinking_history,omitempty"`
	FinalAdjustments     map[string]PeriodAdjustment `json:"final_adjustments"`
	Recommendations      []string                    `json:"recommendations"`
	ReasoningExplanation string                      `json:"reasoning_explanation,omitempty"`
	DecisionStrategy     string                      `json:"decision_strategy,omitempty"`
	LoopCount            int                         `json:"loop_count"`
}
