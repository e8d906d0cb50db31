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
	"math"
	"strconv"
	"strings"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

// =============================================================================
// Reasoning Output Parser
// =============================================================================

const (
	insightPrefix  = "INSIGHT:"
	questionPrefix = "QUESTION:"
	gapPrefix      = "GAP:"
)

// ParsedOutput holds the structured records extracted from one raw
// reasoning response.
type ParsedOutput struct {
	Insights  []datatypes.Insight
	Questions []datatypes.ActiveQuestion
	Gaps      []datatypes.KnowledgeGap
}

// IsEmpty reports whether no records were extracted.
func (p ParsedOutput) IsEmpty() bool {
	return len(p.Insights) == 0 && len(p.Questions) == 0 && len(p.Gaps) == 0
}

// ParseReasoningOutput extracts tagged records from raw model output.
//
// # Description
//
// Scans the response line by line for the three tag prefixes. Tag prefixes
// are case-sensitive; lines without a recognized prefix are prose and are
// skipped silently. Within a tagged line, fields are separated by "|" and
// trimmed of surrounding whitespace. A tagged line whose numeric field does
// not parse as a float in [0,1], or that has the wrong field count, is
// dropped on its own; the rest of the response still parses.
//
// # Limitations
//
// A "|" inside field text splits the field. The tag vocabulary does not
// escape separators, so models are prompted to avoid pipes in prose.
//
// ParseReasoningOutput never returns an error: an unparseable response
// yields an empty ParsedOutput.
func ParseReasoningOutput(raw string) ParsedOutput {
	var out ParsedOutput

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, insightPrefix):
			fields, ok := splitFields(line, insightPrefix, 3)
			if !ok {
				continue
			}
			conf, ok := parseUnitFloat(fields[1])
			if !ok {
				continue
			}
			out.Insights = append(out.Insights, datatypes.Insight{
				Content:         fields[0],
				Confidence:      conf,
				RelatedQuestion: fields[2],
			})

		case strings.HasPrefix(line, questionPrefix):
			fields, ok := splitFields(line, questionPrefix, 3)
			if !ok {
				continue
			}
			prio, ok := parseUnitFloat(fields[2])
			if !ok {
				continue
			}
			out.Questions = append(out.Questions, datatypes.ActiveQuestion{
				Content:      fields[0],
				TargetSource: fields[1],
				Priority:     prio,
			})

		case strings.HasPrefix(line, gapPrefix):
			fields, ok := splitFields(line, gapPrefix, 3)
			if !ok {
				continue
			}
			imp, ok := parseUnitFloat(fields[1])
			if !ok {
				continue
			}
			out.Gaps = append(out.Gaps, datatypes.KnowledgeGap{
				Description:     fields[0],
				Importance:      imp,
				PotentialSource: fields[2],
			})
		}
	}

	return out
}

// splitFields strips the tag prefix, splits on "|", and trims each field.
// Returns ok=false when the field count does not match or the first field
// is empty.
func splitFields(line, prefix string, want int) ([]string, bool) {
	body := strings.TrimPrefix(line, prefix)
	parts := strings.Split(body, "|")
	if len(parts) != want {
		return nil, false
	}
	fields := make([]string, len(parts))
	for i, part := range parts {
		fields[i] = strings.TrimSpace(part)
	}
	if fields[0] == "" {
		return nil, false
	}
	return fields, true
}

// parseUnitFloat parses s as a float64 and requires it to lie in [0,1].
func parseUnitFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
