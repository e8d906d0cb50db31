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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
	"github.com/PeakWattAI/PeakWattFOSS/services/llm"
)

var tracer = otel.Tracer("peakwatt.copilot.agent")

// MetricsObserver receives loop telemetry. Implementations must be safe
// for concurrent use; a nil observer disables metrics.
type MetricsObserver interface {
	SessionStarted()
	SessionFinished(status string, duration time.Duration)
	SessionRejected()
	ThinkingStepObserved(duration time.Duration, insights int)
	ReasoningRetryObserved()
}

// CopilotLoop defines the interface for running co-pilot sessions.
//
// The loop orchestrates the session state machine: INIT, a bounded
// THINKING phase of reasoning iterations, a single EXECUTING synthesis
// step, then DONE. ABORTED is the terminal status for sessions that end
// without a decision.
type CopilotLoop interface {
	// Run executes a session to a terminal status.
	//
	// Description:
	//   Claims a concurrency slot, runs the thinking loop until the
	//   stopping rule fires, synthesizes the decision, and streams
	//   events on the session's publisher throughout. Blocks until the
	//   session terminates.
	//
	// Inputs:
	//   ctx - Context for caller cancellation. Cancellation takes effect
	//         at step boundaries and aborts the session.
	//   session - The session to run (must be in INIT status).
	//
	// Outputs:
	//   datatypes.DecisionSnapshot - The terminal state (partial on abort).
	//   error - Non-nil when the session aborted.
	//
	// Thread Safety: Safe for concurrent use with different sessions.
	Run(ctx context.Context, session *Session) (datatypes.DecisionSnapshot, error)

	// Abort terminates a running session.
	//
	// Description:
	//   Forces a session to ABORTED. The running loop observes the
	//   status at its next step boundary and stops. Terminal sessions
	//   are left untouched.
	//
	// Inputs:
	//   ctx - Context for the abort operation.
	//   sessionID - The session to abort.
	//
	// Outputs:
	//   error - ErrSessionNotFound if no such session.
	//
	// Thread Safety: Safe for concurrent use.
	Abort(ctx context.Context, sessionID string) error

	// GetSnapshot returns the current decision state of a session.
	//
	// Thread Safety: Safe for concurrent use.
	GetSnapshot(sessionID string) (datatypes.DecisionSnapshot, error)

	// GetSession returns the full session object.
	//
	// Thread Safety: Safe for concurrent use.
	GetSession(sessionID string) (*Session, error)

	// ListSessions returns summaries of all live sessions in ID order.
	//
	// Thread Safety: Safe for concurrent use.
	ListSessions() []datatypes.SessionSummary

	// CloseSession removes a session and releases its resources.
	//
	// Outputs:
	//   error - ErrSessionNotFound if no such session.
	//
	// Thread Safety: Safe for concurrent use.
	CloseSession(sessionID string) error
}

// DefaultCopilotLoop implements the CopilotLoop interface.
//
// Thread Safety: DefaultCopilotLoop is safe for concurrent use.
type DefaultCopilotLoop struct {
	sessions SessionStore
	llm      llm.LLMClient
	gate     *ConcurrencyGate
	metrics  MetricsObserver
	params   llm.GenerationParams
}

// LoopOption configures a DefaultCopilotLoop.
type LoopOption func(*DefaultCopilotLoop)

// WithSessionStore sets the session store.
func WithSessionStore(store SessionStore) LoopOption {
	return func(l *DefaultCopilotLoop) {
		l.sessions = store
	}
}

// WithConcurrencyGate sets the process-wide session gate.
func WithConcurrencyGate(gate *ConcurrencyGate) LoopOption {
	return func(l *DefaultCopilotLoop) {
		l.gate = gate
	}
}

// WithMetrics sets the metrics observer.
func WithMetrics(m MetricsObserver) LoopOption {
	return func(l *DefaultCopilotLoop) {
		l.metrics = m
	}
}

// WithGenerationParams sets the sampling parameters for reasoning calls.
func WithGenerationParams(params llm.GenerationParams) LoopOption {
	return func(l *DefaultCopilotLoop) {
		l.params = params
	}
}

// NewDefaultCopilotLoop creates a loop around the given reasoning backend.
//
// If no session store is provided an in-memory store is used. If no gate
// is provided sessions are unlimited.
func NewDefaultCopilotLoop(client llm.LLMClient, opts ...LoopOption) *DefaultCopilotLoop {
	l := &DefaultCopilotLoop{
		sessions: NewInMemorySessionStore(),
		llm:      client,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ CopilotLoop = (*DefaultCopilotLoop)(nil)

// Run implements CopilotLoop.
func (l *DefaultCopilotLoop) Run(ctx context.Context, session *Session) (datatypes.DecisionSnapshot, error) {
	if session == nil {
		return datatypes.DecisionSnapshot{}, ErrInvalidSession
	}

	ctx, span := tracer.Start(ctx, "agent.Run",
		trace.WithAttributes(attribute.String("session.id", session.ID)),
	)
	defer span.End()

	if session.Status() != StatusInit {
		return session.Snapshot(), ErrInvalidSession
	}
	if !session.TryAcquire() {
		slog.Warn("Session already in progress", slog.String("session_id", session.ID))
		return session.Snapshot(), ErrSessionInProgress
	}
	defer session.Release()

	if err := l.gate.Acquire(ctx); err != nil {
		slog.Warn("Concurrent session limit reached",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		span.SetStatus(codes.Error, "concurrency limit")
		if l.metrics != nil {
			l.metrics.SessionRejected()
		}
		return l.rejectSession(session, err)
	}
	defer l.gate.Release()

	l.sessions.Put(session)
	if l.metrics != nil {
		l.metrics.SessionStarted()
	}
	slog.Info("Session starting",
		slog.String("session_id", session.ID),
		slog.Int("max_iterations", session.Config.MaxIterations),
		slog.Float64("confidence_target", session.Config.ConfidenceTarget),
		slog.Duration("timeout", session.Config.Timeout),
	)

	snap, err := l.runLoop(ctx, session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session aborted")
	}
	return snap, err
}

// runLoop executes the session to a terminal status.
func (l *DefaultCopilotLoop) runLoop(ctx context.Context, session *Session) (datatypes.DecisionSnapshot, error) {
	start := time.Now()
	events := session.Events()
	defer events.Close()

	// The step context carries the session deadline so an in-flight
	// reasoning call is abandoned when time runs out, while the parent
	// ctx still distinguishes caller cancellation.
	stepCtx := ctx
	cancel := func() {}
	if session.Config.Timeout > 0 {
		stepCtx, cancel = context.WithDeadline(ctx, start.Add(session.Config.Timeout))
	}
	defer cancel()

	strategy := StrategyImmediate
	iteration := 0

	if session.Config.MaxIterations > 0 {
		if err := session.Transition(StatusThinking, "session started"); err != nil {
			return l.abortSession(session, "init", err, start)
		}
		events.Publish(datatypes.EventStepProgress, 0, datatypes.StepProgressData{
			Phase:      "thinking",
			NextAction: datatypes.NextActionContinueThinking,
		})

		for {
			if ctx.Err() != nil || session.Status() == StatusAborted {
				return l.abortSession(session, "thinking", ErrCanceled, start)
			}
			if stepCtx.Err() != nil {
				session.update(func(d *DecisionState) { d.TimedOut = true })
				strategy = StrategyTimeoutPartial
				break
			}

			out, err := l.thinkingStep(stepCtx, session)
			if err != nil {
				if ctx.Err() != nil {
					return l.abortSession(session, "thinking", ErrCanceled, start)
				}
				if stepCtx.Err() != nil {
					// Deadline fired mid-call; the response is discarded
					// and the decision is built from what exists.
					session.update(func(d *DecisionState) { d.TimedOut = true })
					strategy = StrategyTimeoutPartial
					break
				}
				return l.abortSession(session, "thinking", err, start)
			}

			iteration = out.iteration
			data := datatypes.ThinkingStepData{
				Iteration:       out.iteration,
				ConfidenceLevel: out.confidence,
				NextAction:      out.nextAction,
				InsightCount:    out.totalInsights,
				QuestionCount:   out.totalQuestions,
				GapCount:        out.totalGaps,
			}
			if session.Config.StructuredOutput {
				data.NewInsights = out.parsed.Insights
				data.NewQuestions = out.parsed.Questions
				data.NewGaps = out.parsed.Gaps
			}
			if session.Config.IncludeDebug {
				data.RawResponse = out.raw
			}
			events.Publish(datatypes.EventThinkingStepComplete, out.iteration, data)

			if out.nextAction == datatypes.NextActionProceedToExecution {
				if session.Config.ConfidenceTarget > 0 && out.confidence >= session.Config.ConfidenceTarget {
					strategy = StrategyConfidenceThreshold
				} else {
					strategy = StrategyIterationLimit
				}
				break
			}
		}
	}

	if ctx.Err() != nil || session.Status() == StatusAborted {
		return l.abortSession(session, "executing", ErrCanceled, start)
	}

	if err := session.Transition(StatusExecuting, strategy); err != nil {
		return l.abortSession(session, "executing", err, start)
	}
	events.Publish(datatypes.EventStepProgress, iteration, datatypes.StepProgressData{
		Phase:      "executing",
		NextAction: datatypes.NextActionProceedToExecution,
	})

	if err := l.executionStep(ctx, session, strategy); err != nil {
		return l.abortSession(session, "executing", err, start)
	}

	if err := session.Transition(StatusDone, "decision complete"); err != nil {
		return l.abortSession(session, "finalizing", err, start)
	}

	snap := session.Snapshot()
	events.Publish(datatypes.EventProcessComplete, snap.LoopCount, snap)
	if l.metrics != nil {
		l.metrics.SessionFinished(string(StatusDone), time.Since(start))
	}
	slog.Info("Session complete",
		slog.String("session_id", session.ID),
		slog.Int("loop_count", snap.LoopCount),
		slog.Float64("confidence", snap.ConfidenceLevel),
		slog.String("strategy", snap.DecisionStrategy),
		slog.Bool("timed_out", snap.TimedOut),
		slog.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

// rejectSession ends a session turned away at the concurrency gate. The
// loop never ran, so the stream publisher is still this function's to
// close: a subscriber must see the terminal error frame rather than an
// open stream that never ends.
func (l *DefaultCopilotLoop) rejectSession(session *Session, cause error) (datatypes.DecisionSnapshot, error) {
	if err := session.Transition(StatusAborted, cause.Error()); err != nil {
		slog.Warn("Failed to transition rejected session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	events := session.Events()
	events.Publish(datatypes.EventError, 0, datatypes.ErrorData{
		Error: cause.Error(),
		Kind:  ErrorKind(cause),
		Phase: "init",
	})
	events.Close()
	return session.Snapshot(), cause
}

// abortSession ends the session without a decision. IsComplete stays
// false; the snapshot carries whatever partial state accumulated.
func (l *DefaultCopilotLoop) abortSession(session *Session, phase string, cause error, start time.Time) (datatypes.DecisionSnapshot, error) {
	if !session.Status().IsTerminal() {
		if err := session.Transition(StatusAborted, cause.Error()); err != nil {
			slog.Warn("Failed to transition to aborted",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	session.Events().Publish(datatypes.EventError, 0, datatypes.ErrorData{
		Error: cause.Error(),
		Kind:  ErrorKind(cause),
		Phase: phase,
	})
	if l.metrics != nil {
		l.metrics.SessionFinished(string(StatusAborted), time.Since(start))
	}
	slog.Error("Session aborted",
		slog.String("session_id", session.ID),
		slog.String("phase", phase),
		slog.String("error", cause.Error()),
	)
	return session.Snapshot(), cause
}

// Abort implements CopilotLoop.
func (l *DefaultCopilotLoop) Abort(ctx context.Context, sessionID string) error {
	session, ok := l.sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if session.Status().IsTerminal() {
		return nil
	}
	if err := session.Transition(StatusAborted, "aborted by caller"); err != nil {
		return err
	}
	return nil
}

// GetSnapshot implements CopilotLoop.
func (l *DefaultCopilotLoop) GetSnapshot(sessionID string) (datatypes.DecisionSnapshot, error) {
	session, ok := l.sessions.Get(sessionID)
	if !ok {
		return datatypes.DecisionSnapshot{}, ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// GetSession implements CopilotLoop.
func (l *DefaultCopilotLoop) GetSession(sessionID string) (*Session, error) {
	session, ok := l.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions implements CopilotLoop.
func (l *DefaultCopilotLoop) ListSessions() []datatypes.SessionSummary {
	ids := l.sessions.List()
	summaries := make([]datatypes.SessionSummary, 0, len(ids))
	for _, id := range ids {
		if session, ok := l.sessions.Get(id); ok {
			summaries = append(summaries, session.Summary())
		}
	}
	return summaries
}

// CloseSession implements CopilotLoop.
func (l *DefaultCopilotLoop) CloseSession(sessionID string) error {
	session, ok := l.sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	slog.Info("Closing session",
		slog.String("session_id", sessionID),
		slog.String("final_status", string(session.Status())),
	)
	session.Events().Close()
	l.sessions.Delete(sessionID)
	return nil
}
