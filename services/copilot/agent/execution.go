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
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

// =============================================================================
// Decision Strategies
// =============================================================================

// Strategy names record what ended the thinking phase.
const (
	StrategyConfidenceThreshold = "confidence_threshold"
	StrategyIterationLimit      = "iteration_limit"
	StrategyTimeoutPartial      = "timeout_partial"
	StrategyImmediate           = "immediate_execution"
)

// =============================================================================
// Execution Step
// =============================================================================

// demandPeriods is the fixed vocabulary of forecast periods the synthesis
// recognizes in insight text and in the stated intent.
var demandPeriods = []string{"morning_peak", "midday", "evening_peak", "overnight"}

var increaseSignals = []string{"spike", "surge", "increase", "rise", "higher", "grow", "peak"}
var decreaseSignals = []string{"drop", "decrease", "fall", "lower", "decline", "reduce", "dip"}

// executionStep synthesizes the final decision from accumulated state.
//
// # Description
//
// Runs exactly once per session. Derives one adjustment per demand period
// that insights mention or the intent implies, orders recommendations by
// priority (discovery order breaks ties), writes the explanation and
// strategy, and marks the session complete. Under a timeout the step runs
// on whatever partial state exists.
func (l *DefaultCopilotLoop) executionStep(ctx context.Context, session *Session, strategy string) error {
	_, span := tracer.Start(ctx, "agent.executionStep")
	defer span.End()

	var synthErr error
	var adjustments int
	session.update(func(d *DecisionState) {
		if d.IsComplete {
			synthErr = fmt.Errorf("%w: session already synthesized", ErrExecutionSynthesis)
			return
		}
		d.FinalAdjustments = deriveAdjustments(d)
		d.Recommendations = deriveRecommendations(d)
		d.DecisionStrategy = strategy
		d.ReasoningExplanation = buildExplanation(d, strategy)
		d.NextAction = datatypes.NextActionProceedToExecution
		d.IsComplete = true
		adjustments = len(d.FinalAdjustments)
	})
	if synthErr != nil {
		span.RecordError(synthErr)
		return synthErr
	}

	span.SetAttributes(
		attribute.String("execution.strategy", strategy),
		attribute.Int("execution.adjustments", adjustments),
	)
	slog.Info("Execution step complete",
		slog.String("session_id", session.ID),
		slog.String("strategy", strategy),
		slog.Int("adjustments", adjustments),
	)
	return nil
}

// deriveAdjustments builds one adjustment per distinct demand period.
// Periods come from insight text first, then from the intent; when
// neither names a period the decision collapses to a single "overall"
// adjustment over all insights.
func deriveAdjustments(d *DecisionState) map[string]datatypes.PeriodAdjustment {
	adjustments := make(map[string]datatypes.PeriodAdjustment)

	for _, period := range demandPeriods {
		var contributing []datatypes.Insight
		for _, ins := range d.Insights {
			if mentionsPeriod(ins.Content, period) {
				contributing = append(contributing, ins)
			}
		}
		if len(contributing) == 0 && !mentionsPeriod(d.Intent, period) {
			continue
		}
		adjustments[period] = synthesizeAdjustment(contributing, d)
	}

	if len(adjustments) == 0 {
		adjustments["overall"] = synthesizeAdjustment(d.Insights, d)
	}
	return adjustments
}

// mentionsPeriod matches a period token in free text, accepting both the
// underscore form ("evening_peak") and the spoken form ("evening peak").
func mentionsPeriod(text, period string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, period) ||
		strings.Contains(lower, strings.ReplaceAll(period, "_", " "))
}

// synthesizeAdjustment turns contributing insights into a signed percentage.
// Magnitude scales with mean confidence (full confidence moves the forecast
// ten percent); direction comes from demand signal words. A period implied
// only by the intent gets a zero adjustment at overall confidence.
func synthesizeAdjustment(contributing []datatypes.Insight, d *DecisionState) datatypes.PeriodAdjustment {
	if len(contributing) == 0 {
		return datatypes.PeriodAdjustment{
			AdjustmentPercentage: 0,
			Reason:               "named in stated intent; no supporting insights",
			Confidence:           d.ConfidenceLevel,
		}
	}

	conf := meanConfidence(contributing)
	pct := math.Round(demandDirection(contributing)*conf*100) / 10

	top := contributing[0]
	for _, ins := range contributing[1:] {
		if ins.Confidence > top.Confidence {
			top = ins
		}
	}

	return datatypes.PeriodAdjustment{
		AdjustmentPercentage: pct,
		Reason:               top.Content,
		Confidence:           conf,
	}
}

// demandDirection votes across insights: +1 net-increase, -1 net-decrease,
// 0 mixed or neutral.
func demandDirection(insights []datatypes.Insight) float64 {
	score := 0
	for _, ins := range insights {
		lower := strings.ToLower(ins.Content)
		for _, w := range increaseSignals {
			if strings.Contains(lower, w) {
				score++
				break
			}
		}
		for _, w := range decreaseSignals {
			if strings.Contains(lower, w) {
				score--
				break
			}
		}
	}
	switch {
	case score > 0:
		return 1
	case score < 0:
		return -1
	default:
		return 0
	}
}

// deriveRecommendations orders open questions by priority and knowledge
// gaps by importance, both descending. Stable sort keeps discovery order
// for ties.
func deriveRecommendations(d *DecisionState) []string {
	questions := make([]datatypes.ActiveQuestion, len(d.ActiveQuestions))
	copy(questions, d.ActiveQuestions)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Priority > questions[j].Priority
	})

	gaps := make([]datatypes.KnowledgeGap, len(d.KnowledgeGaps))
	copy(gaps, d.KnowledgeGaps)
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Importance > gaps[j].Importance
	})

	recs := make([]string, 0, len(questions)+len(gaps))
	for _, q := range questions {
		if q.TargetSource != "" {
			recs = append(recs, fmt.Sprintf("Investigate: %s (via %s)", q.Content, q.TargetSource))
		} else {
			recs = append(recs, fmt.Sprintf("Investigate: %s", q.Content))
		}
	}
	for _, g := range gaps {
		if g.PotentialSource != "" {
			recs = append(recs, fmt.Sprintf("Close data gap: %s (via %s)", g.Description, g.PotentialSource))
		} else {
			recs = append(recs, fmt.Sprintf("Close data gap: %s", g.Description))
		}
	}
	return recs
}

// buildExplanation writes the human-readable synthesis summary.
func buildExplanation(d *DecisionState, strategy string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Synthesized after %d thinking iteration(s) at confidence %.2f. ",
		d.LoopCount, d.ConfidenceLevel)

	switch strategy {
	case StrategyConfidenceThreshold:
		b.WriteString("Confidence target reached, reasoning judged sufficient. ")
	case StrategyIterationLimit:
		b.WriteString("Iteration limit reached, proceeding with best available analysis. ")
	case StrategyTimeoutPartial:
		b.WriteString("Session timed out; decision built from partial analysis. ")
	case StrategyImmediate:
		b.WriteString("Immediate synthesis requested, no thinking iterations performed. ")
	}

	fmt.Fprintf(&b, "Based on %d insight(s), %d open question(s), and %d knowledge gap(s).",
		len(d.Insights), len(d.ActiveQuestions), len(d.KnowledgeGaps))
	return b.String()
}
