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
	"testing"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

func TestDeriveAdjustments_OnePerMentionedPeriod(t *testing.T) {
	d := newDecisionState("s1", "Plan tomorrow's grid posture", "")
	d.Insights = []datatypes.Insight{
		{Content: "Evening_peak demand will spike on cold weather", Confidence: 0.8},
		{Content: "Overnight demand should fall as heating cycles off", Confidence: 0.6},
		{Content: "Evening peak strain compounds with EV charging", Confidence: 0.7},
	}
	d.ConfidenceLevel = meanConfidence(d.Insights)

	adjustments := deriveAdjustments(d)

	if len(adjustments) != 2 {
		t.Fatalf("adjustments = %d, want 2 (evening_peak, overnight): %v", len(adjustments), adjustments)
	}

	evening, ok := adjustments["evening_peak"]
	if !ok {
		t.Fatal("missing evening_peak adjustment")
	}
	if evening.AdjustmentPercentage <= 0 {
		t.Errorf("evening_peak adjustment = %v, want positive (demand spikes)", evening.AdjustmentPercentage)
	}
	if evening.Reason != "Evening_peak demand will spike on cold weather" {
		t.Errorf("reason should come from the highest-confidence insight, got %q", evening.Reason)
	}

	overnight := adjustments["overnight"]
	if overnight.AdjustmentPercentage >= 0 {
		t.Errorf("overnight adjustment = %v, want negative (demand falls)", overnight.AdjustmentPercentage)
	}
	if overnight.Confidence != 0.6 {
		t.Errorf("overnight confidence = %v, want 0.6", overnight.Confidence)
	}
}

func TestDeriveAdjustments_PeriodImpliedByIntent(t *testing.T) {
	d := newDecisionState("s1", "Review midday solar backfeed", "")
	d.Insights = []datatypes.Insight{
		{Content: "General load unremarkable", Confidence: 0.5},
	}

	adjustments := deriveAdjustments(d)
	adj, ok := adjustments["midday"]
	if !ok {
		t.Fatalf("intent names midday, expected an adjustment: %v", adjustments)
	}
	if adj.AdjustmentPercentage != 0 {
		t.Errorf("intent-only period should get a zero adjustment, got %v", adj.AdjustmentPercentage)
	}
}

func TestDeriveAdjustments_FallbackToOverall(t *testing.T) {
	d := newDecisionState("s1", "Check general demand health", "")
	d.Insights = []datatypes.Insight{
		{Content: "Load will increase modestly", Confidence: 0.5},
	}

	adjustments := deriveAdjustments(d)
	if len(adjustments) != 1 {
		t.Fatalf("adjustments = %d, want 1", len(adjustments))
	}
	if _, ok := adjustments["overall"]; !ok {
		t.Errorf("expected overall fallback, got %v", adjustments)
	}
}

func TestDeriveRecommendations_PriorityOrderWithStableTies(t *testing.T) {
	d := newDecisionState("s1", "intent", "")
	d.ActiveQuestions = []datatypes.ActiveQuestion{
		{Content: "first low", TargetSource: "a", Priority: 0.3},
		{Content: "first high", TargetSource: "b", Priority: 0.9},
		{Content: "second high", TargetSource: "c", Priority: 0.9},
	}
	d.KnowledgeGaps = []datatypes.KnowledgeGap{
		{Description: "minor gap", Importance: 0.2, PotentialSource: "x"},
		{Description: "major gap", Importance: 0.8, PotentialSource: "y"},
	}

	recs := deriveRecommendations(d)
	want := []string{
		"Investigate: first high (via b)",
		"Investigate: second high (via c)",
		"Investigate: first low (via a)",
		"Close data gap: major gap (via y)",
		"Close data gap: minor gap (via x)",
	}
	if len(recs) != len(want) {
		t.Fatalf("recommendations = %d, want %d: %v", len(recs), len(want), recs)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("rec[%d] = %q, want %q", i, recs[i], want[i])
		}
	}
}

func TestExecutionStep_RunsOnce(t *testing.T) {
	loop := NewDefaultCopilotLoop(&fakeLLM{})
	session := newTestSession(t, DefaultSessionConfig())

	if err := loop.executionStep(t.Context(), session, StrategyImmediate); err != nil {
		t.Fatalf("first execution failed: %v", err)
	}
	if err := loop.executionStep(t.Context(), session, StrategyImmediate); err == nil {
		t.Fatal("second execution must fail")
	}
}
