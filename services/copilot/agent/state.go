// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent implements the decision co-pilot loop: an iterative
// reasoning controller that alternates LLM thinking steps with structured
// state accumulation, then synthesizes forecast adjustments in a single
// execution step.
package agent

import (
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

// =============================================================================
// Session Status
// =============================================================================

// SessionStatus represents a state in the co-pilot session state machine.
//
// Valid transitions are enforced by Transition. Invalid transitions
// return ErrInvalidTransition.
type SessionStatus string

const (
	// StatusInit is the initial status before the first step runs.
	StatusInit SessionStatus = "INIT"

	// StatusThinking is the iterative reasoning phase.
	StatusThinking SessionStatus = "THINKING"

	// StatusExecuting is the single synthesis step.
	StatusExecuting SessionStatus = "EXECUTING"

	// StatusDone indicates the session produced a completed decision.
	StatusDone SessionStatus = "DONE"

	// StatusAborted indicates the session ended without a decision
	// (caller cancellation or a fatal step error).
	StatusAborted SessionStatus = "ABORTED"
)

// String returns the status as a string.
func (s SessionStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is DONE or ABORTED.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusAborted
}

// validTransitions maps each status to the statuses it may move to.
// A timeout forces THINKING (or INIT) straight into EXECUTING, so that
// edge is legal; EXECUTING never returns to THINKING.
var validTransitions = map[SessionStatus][]SessionStatus{
	StatusInit:      {StatusThinking, StatusExecuting, StatusAborted},
	StatusThinking:  {StatusThinking, StatusExecuting, StatusAborted},
	StatusExecuting: {StatusDone, StatusAborted},
	StatusDone:      {},
	StatusAborted:   {},
}

// canTransition reports whether from -> to is an allowed edge.
func canTransition(from, to SessionStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// =============================================================================
// Decision State
// =============================================================================

// DecisionState is the accumulated state of one co-pilot session.
//
// # Description
//
// DecisionState collects everything the thinking loop produces: the raw
// reasoning transcript, the structured records parsed out of it, and the
// synthesized outputs of the execution step. ThinkingHistory is append-only;
// insights retain duplicates in discovery order.
//
// DecisionState is not self-synchronizing. The owning Session guards it;
// callers outside the loop read it through Session.Snapshot.
type DecisionState struct {
	SessionID       string
	Intent          string
	Rationale       string
	ThinkingHistory []string

	Insights        []datatypes.Insight
	ActiveQuestions []datatypes.ActiveQuestion
	KnowledgeGaps   []datatypes.KnowledgeGap

	ConfidenceLevel float64
	LoopCount       int
	NextAction      datatypes.NextAction

	FinalAdjustments     map[string]datatypes.PeriodAdjustment
	Recommendations      []string
	ReasoningExplanation string
	DecisionStrategy     string

	IsComplete bool
	TimedOut   bool
}

// newDecisionState creates the zero-iteration state for a new session.
func newDecisionState(sessionID, intent, rationale string) *DecisionState {
	return &DecisionState{
		SessionID:        sessionID,
		Intent:           intent,
		Rationale:        rationale,
		NextAction:       datatypes.NextActionContinueThinking,
		FinalAdjustments: make(map[string]datatypes.PeriodAdjustment),
	}
}

// absorb appends one step's parsed records and recomputes confidence.
func (d *DecisionState) absorb(raw string, parsed ParsedOutput) {
	d.ThinkingHistory = append(d.ThinkingHistory, raw)
	d.Insights = append(d.Insights, parsed.Insights...)
	d.ActiveQuestions = append(d.ActiveQuestions, parsed.Questions...)
	d.KnowledgeGaps = append(d.KnowledgeGaps, parsed.Gaps...)
	d.ConfidenceLevel = meanConfidence(d.Insights)
}

// meanConfidence returns the arithmetic mean of insight confidences,
// or zero when no insights have been parsed yet.
func meanConfidence(insights []datatypes.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	var sum float64
	for _, ins := range insights {
		sum += ins.Confidence
	}
	return sum / float64(len(insights))
}

// snapshot copies the state into the caller-facing wire shape. Slices and
// the adjustment map are copied so the caller cannot mutate loop state.
func (d *DecisionState) snapshot() datatypes.DecisionSnapshot {
	snap := datatypes.DecisionSnapshot{
		SessionID:            d.SessionID,
		ConfidenceLevel:      d.ConfidenceLevel,
		IsComplete:           d.IsComplete,
		TimedOut:             d.TimedOut,
		Insights:             make([]datatypes.Insight, len(d.Insights)),
		ActiveQuestions:      make([]datatypes.ActiveQuestion, len(d.ActiveQuestions)),
		KnowledgeGaps:        make([]datatypes.KnowledgeGap, len(d.KnowledgeGaps)),
		ThinkingHistory:      append([]string(nil), d.ThinkingHistory...),
		FinalAdjustments:     make(map[string]datatypes.PeriodAdjustment, len(d.FinalAdjustments)),
		Recommendations:      append([]string(nil), d.Recommendations...),
		ReasoningExplanation: d.ReasoningExplanation,
		DecisionStrategy:     d.DecisionStrategy,
		LoopCount:            d.LoopCount,
	}
	copy(snap.Insights, d.Insights)
	copy(snap.ActiveQuestions, d.ActiveQuestions)
	copy(snap.KnowledgeGaps, d.KnowledgeGaps)
	for period, adj := range d.FinalAdjustments {
		snap.FinalAdjustments[period] = adj
	}
	return snap
}
