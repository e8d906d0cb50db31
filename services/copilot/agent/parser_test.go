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

import "testing"

func TestParseReasoningOutput_MixedResponse(t *testing.T) {
	raw := "INSIGHT: Heating demand will spike | 0.8 | What is the peak hour?\n" +
		"QUESTION: What is the peak hour? | historical_data | 0.9\n" +
		"not a tag line"

	out := ParseReasoningOutput(raw)

	if len(out.Insights) != 1 {
		t.Fatalf("insights = %d, want 1", len(out.Insights))
	}
	if len(out.Questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(out.Questions))
	}
	if len(out.Gaps) != 0 {
		t.Fatalf("gaps = %d, want 0", len(out.Gaps))
	}

	ins := out.Insights[0]
	if ins.Content != "Heating demand will spike" {
		t.Errorf("insight content = %q", ins.Content)
	}
	if ins.Confidence != 0.8 {
		t.Errorf("insight confidence = %v", ins.Confidence)
	}
	if ins.RelatedQuestion != "What is the peak hour?" {
		t.Errorf("related question = %q", ins.RelatedQuestion)
	}

	q := out.Questions[0]
	if q.TargetSource != "historical_data" {
		t.Errorf("target source = %q", q.TargetSource)
	}
	if q.Priority != 0.9 {
		t.Errorf("priority = %v", q.Priority)
	}
}

func TestParseReasoningOutput_OutOfRangeConfidenceDropsLine(t *testing.T) {
	raw := "INSIGHT: Valid one | 0.5 | \n" +
		"INSIGHT: Too confident | 1.5 | \n" +
		"INSIGHT: Negative | -0.1 | \n" +
		"INSIGHT: Not a number | high | "

	out := ParseReasoningOutput(raw)
	if len(out.Insights) != 1 {
		t.Fatalf("insights = %d, want 1 (invalid lines must drop individually)", len(out.Insights))
	}
	if out.Insights[0].Content != "Valid one" {
		t.Errorf("surviving insight = %q", out.Insights[0].Content)
	}
}

func TestParseReasoningOutput_BoundaryConfidences(t *testing.T) {
	raw := "INSIGHT: Floor | 0 | \nINSIGHT: Ceiling | 1.0 | "
	out := ParseReasoningOutput(raw)
	if len(out.Insights) != 2 {
		t.Fatalf("insights = %d, want 2 (0 and 1 are valid)", len(out.Insights))
	}
}

func TestParseReasoningOutput_CaseSensitivePrefixes(t *testing.T) {
	raw := "insight: lowercase tag | 0.5 | \n" +
		"Insight: mixed case | 0.5 | \n" +
		"GAP: Missing weather forecast | 0.7 | weather_service"

	out := ParseReasoningOutput(raw)
	if len(out.Insights) != 0 {
		t.Errorf("insights = %d, want 0 (prefixes are case-sensitive)", len(out.Insights))
	}
	if len(out.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1", len(out.Gaps))
	}
	if out.Gaps[0].PotentialSource != "weather_service" {
		t.Errorf("potential source = %q", out.Gaps[0].PotentialSource)
	}
}

func TestParseReasoningOutput_WrongFieldCountDropsLine(t *testing.T) {
	raw := "INSIGHT: only content\n" +
		"INSIGHT: two | 0.5\n" +
		"QUESTION: a | b | 0.5 | extra"

	out := ParseReasoningOutput(raw)
	if !out.IsEmpty() {
		t.Errorf("expected empty output, got %+v", out)
	}
}

func TestParseReasoningOutput_EmptyAndProseOnly(t *testing.T) {
	if !ParseReasoningOutput("").IsEmpty() {
		t.Error("empty input should parse to empty output")
	}
	prose := "The demand picture is unclear.\nMore data would help.\n"
	if !ParseReasoningOutput(prose).IsEmpty() {
		t.Error("prose-only input should parse to empty output")
	}
}

func TestParseReasoningOutput_WhitespaceTrimming(t *testing.T) {
	raw := "  INSIGHT:   padded content   |  0.6  |   related?  "
	out := ParseReasoningOutput(raw)
	if len(out.Insights) != 1 {
		t.Fatalf("insights = %d, want 1", len(out.Insights))
	}
	if out.Insights[0].Content != "padded content" {
		t.Errorf("content not trimmed: %q", out.Insights[0].Content)
	}
	if out.Insights[0].RelatedQuestion != "related?" {
		t.Errorf("related question not trimmed: %q", out.Insights[0].RelatedQuestion)
	}
}

func TestParseReasoningOutput_DuplicateInsightsRetained(t *testing.T) {
	raw := "INSIGHT: Same observation | 0.5 | \nINSIGHT: Same observation | 0.5 | "
	out := ParseReasoningOutput(raw)
	if len(out.Insights) != 2 {
		t.Fatalf("insights = %d, want 2 (duplicates are retained)", len(out.Insights))
	}
}
