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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

// reasoningRetries is how many times a failed backend call is retried
// before the step gives up. One retry, per the failure policy: transient
// backend errors get a second chance, nothing more.
const reasoningRetries = 1

// stepOutcome summarizes one successful thinking step for event emission.
type stepOutcome struct {
	iteration      int
	confidence     float64
	nextAction     datatypes.NextAction
	parsed         ParsedOutput
	raw            string
	totalInsights  int
	totalQuestions int
	totalGaps      int
}

// thinkingStep runs one reasoning iteration.
//
// # Description
//
// Assembles the prompt from current state, makes a single Generate call
// (retried once on backend failure), and on success mutates the session
// atomically: the raw response is appended to the transcript, parsed
// records are absorbed, confidence is recomputed, the next action is
// decided, and the loop counter advances. A failed step mutates nothing.
//
// # Outputs
//
//   - stepOutcome: The step's deltas, for event emission.
//   - error: ErrReasoningCall (wrapped) after both attempts fail, or the
//     context error when the call was abandoned by cancellation/timeout.
func (l *DefaultCopilotLoop) thinkingStep(ctx context.Context, session *Session) (stepOutcome, error) {
	ctx, span := tracer.Start(ctx, "agent.thinkingStep")
	defer span.End()

	var prompt string
	session.read(func(d *DecisionState) {
		prompt = buildThinkingPrompt(d)
	})

	start := time.Now()
	var raw string
	var err error
	for attempt := 0; attempt <= reasoningRetries; attempt++ {
		raw, err = l.llm.Generate(ctx, prompt, l.params)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			// Abandoned call; not a backend failure, do not retry.
			break
		}
		slog.Warn("Reasoning call failed",
			slog.String("session_id", session.ID),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
		if attempt < reasoningRetries && l.metrics != nil {
			l.metrics.ReasoningRetryObserved()
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stepOutcome{}, ctxErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "reasoning backend failed")
		return stepOutcome{}, fmt.Errorf("%w: %v", ErrReasoningCall, err)
	}

	parsed := ParseReasoningOutput(raw)

	var out stepOutcome
	session.update(func(d *DecisionState) {
		d.absorb(raw, parsed)
		d.LoopCount++
		d.NextAction = decideNextAction(d, session.Config)
		out = stepOutcome{
			iteration:      d.LoopCount,
			confidence:     d.ConfidenceLevel,
			nextAction:     d.NextAction,
			parsed:         parsed,
			raw:            raw,
			totalInsights:  len(d.Insights),
			totalQuestions: len(d.ActiveQuestions),
			totalGaps:      len(d.KnowledgeGaps),
		}
	})

	span.SetAttributes(
		attribute.Int("step.iteration", out.iteration),
		attribute.Float64("step.confidence", out.confidence),
		attribute.Int("step.insights", len(parsed.Insights)),
		attribute.String("step.next_action", string(out.nextAction)),
	)
	if l.metrics != nil {
		l.metrics.ThinkingStepObserved(time.Since(start), len(parsed.Insights))
	}
	slog.Info("Thinking step complete",
		slog.String("session_id", session.ID),
		slog.Int("iteration", out.iteration),
		slog.Float64("confidence", out.confidence),
		slog.Int("new_insights", len(parsed.Insights)),
		slog.Int("new_questions", len(parsed.Questions)),
		slog.Int("new_gaps", len(parsed.Gaps)),
		slog.String("next_action", string(out.nextAction)),
	)

	return out, nil
}

// decideNextAction applies the loop's stopping rule after a step absorbed
// its records. A zero confidence target disables the threshold stop; the
// iteration cap always binds.
func decideNextAction(d *DecisionState, cfg SessionConfig) datatypes.NextAction {
	if cfg.ConfidenceTarget > 0 && d.ConfidenceLevel >= cfg.ConfidenceTarget {
		return datatypes.NextActionProceedToExecution
	}
	if d.LoopCount >= cfg.MaxIterations {
		return datatypes.NextActionProceedToExecution
	}
	return datatypes.NextActionContinueThinking
}
