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
	"fmt"
	"strings"
)

// =============================================================================
// Thinking Prompt Assembly
// =============================================================================

const thinkingInstructions = `You are the reasoning engine of a power-demand
forecasting co-pilot. Analyze the situation and respond ONLY with tagged
lines in these exact formats (one record per line, fields separated by "|",
no "|" characters inside field text):

INSIGHT: <observation> | <confidence 0.0-1.0> | <related question, or blank>
QUESTION: <open question> | <target data source> | <priority 0.0-1.0>
GAP: <missing information> | <importance 0.0-1.0> | <potential source>

Refer to demand periods by name where relevant: morning_peak, midday,
evening_peak, overnight.`

// buildThinkingPrompt assembles the prompt for one thinking step.
//
// The prompt carries the session intent and rationale, condensed summaries
// of the structured records accumulated so far, and the full raw transcript
// of prior steps so the model can see its own earlier reasoning verbatim.
func buildThinkingPrompt(d *DecisionState) string {
	var b strings.Builder

	b.WriteString(thinkingInstructions)
	b.WriteString("\n\n## Intent\n")
	b.WriteString(d.Intent)
	if d.Rationale != "" {
		b.WriteString("\n\n## Rationale\n")
		b.WriteString(d.Rationale)
	}

	if len(d.Insights) > 0 {
		b.WriteString("\n\n## Insights so far\n")
		for _, ins := range d.Insights {
			fmt.Fprintf(&b, "- %s (confidence %.2f)\n", ins.Content, ins.Confidence)
		}
	}
	if len(d.ActiveQuestions) > 0 {
		b.WriteString("\n## Open questions\n")
		for _, q := range d.ActiveQuestions {
			fmt.Fprintf(&b, "- %s [source: %s, priority %.2f]\n", q.Content, q.TargetSource, q.Priority)
		}
	}
	if len(d.KnowledgeGaps) > 0 {
		b.WriteString("\n## Known gaps\n")
		for _, g := range d.KnowledgeGaps {
			fmt.Fprintf(&b, "- %s [importance %.2f, source: %s]\n", g.Description, g.Importance, g.PotentialSource)
		}
	}

	if len(d.ThinkingHistory) > 0 {
		b.WriteString("\n## Prior reasoning transcript\n")
		for i, step := range d.ThinkingHistory {
			fmt.Fprintf(&b, "\n--- Step %d ---\n%s\n", i+1, step)
		}
	}

	fmt.Fprintf(&b, "\nThis is thinking step %d. Current confidence: %.2f.\n", d.LoopCount+1, d.ConfidenceLevel)
	b.WriteString("Produce new tagged lines that deepen or correct the analysis.\n")

	return b.String()
}
