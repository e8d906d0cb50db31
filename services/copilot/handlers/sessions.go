// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/PeakWattAI/PeakWattFOSS/pkg/validation"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/agent"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/observability"
)

var tracer = otel.Tracer("peakwatt.copilot.handlers")

// keepAliveInterval is how often an SSE comment is sent while waiting for
// the next event. Keeps load balancers from closing idle streams.
const keepAliveInterval = 15 * time.Second

// =============================================================================
// Handler Struct
// =============================================================================

// CopilotHandler serves the co-pilot session endpoints.
//
// # Description
//
// Session creation streams the live event feed back over SSE; the other
// endpoints are plain JSON over the same session store. A token-bucket
// limiter throttles session creation independently of the loop's
// concurrency gate.
type CopilotHandler struct {
	loop     agent.CopilotLoop
	defaults agent.SessionConfig
	limiter  *rate.Limiter
}

// NewCopilotHandler creates the session handler.
//
// # Inputs
//
//   - loop: The co-pilot loop to run sessions on. Must not be nil.
//   - defaults: Server-side session defaults applied where requests leave
//     options unset.
//   - createRPS: Sustained session creations per second. Zero disables
//     rate limiting.
func NewCopilotHandler(loop agent.CopilotLoop, defaults agent.SessionConfig, createRPS float64) *CopilotHandler {
	if loop == nil {
		panic("NewCopilotHandler: loop must not be nil")
	}

	var limiter *rate.Limiter
	if createRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(createRPS), int(createRPS)+1)
	}

	return &CopilotHandler{
		loop:     loop,
		defaults: defaults,
		limiter:  limiter,
	}
}

// sessionConfig merges request options over the server defaults.
func (h *CopilotHandler) sessionConfig(opts datatypes.SessionOptions) agent.SessionConfig {
	cfg := h.defaults
	if opts.MaxIterations != nil {
		cfg.MaxIterations = *opts.MaxIterations
	}
	if opts.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	if opts.ConfidenceTarget > 0 {
		cfg.ConfidenceTarget = opts.ConfidenceTarget
	}
	cfg.IncludeDebug = opts.IncludeDebug
	cfg.StructuredOutput = opts.StructuredOutput
	return cfg
}

// =============================================================================
// Handler Methods
// =============================================================================

// HandleCreateSession starts a co-pilot session and streams its events.
//
// # Description
//
// Handles POST /v1/copilot/sessions. The flow is:
//  1. Rate-limit and parse the request body
//  2. Sanitize the intent text
//  3. Create the session and subscribe to its event stream
//  4. Set SSE headers and run the session
//  5. Relay events until the stream closes
//
// The session runs detached from the request context: a client that
// disconnects mid-stream does not stop the session. DELETE aborts it.
//
// # Outputs
//
// SSE events: step_progress, thinking_step_complete, process_complete,
// error. A session turned away at the concurrency gate still streams: it
// ends with a single error frame of kind concurrency_limit. HTTP status
// before streaming starts:
//   - 400 Bad Request: Invalid body or intent
//   - 429 Too Many Requests: Creation rate exceeded
//   - 500 Internal Server Error: SSE setup failure
func (h *CopilotHandler) HandleCreateSession(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "HandleCreateSession")
	defer span.End()

	if h.limiter != nil && !h.limiter.Allow() {
		span.SetStatus(codes.Error, "rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "session creation rate exceeded"})
		return
	}

	var req datatypes.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to parse session request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := validation.SanitizeIntent(req.Intent)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := agent.NewSession(intent, req.Rationale, h.sessionConfig(req.Options))
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(
		attribute.String("session.id", session.ID),
		attribute.Int("session.max_iterations", session.Config.MaxIterations),
	)

	stream, err := session.Events().Subscribe()
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach event stream"})
		return
	}

	// The session outlives a disconnected client. Trace context and
	// values carry over; cancellation does not.
	runCtx := context.WithoutCancel(ctx)
	runDone := make(chan error, 1)
	go func() {
		_, runErr := h.loop.Run(runCtx, session)
		runDone <- runErr
	}()

	SetSSEHeaders(c.Writer)
	writer, err := NewSSEWriter(c.Writer)
	if err != nil {
		slog.Error("SSE setup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	if m := observability.DefaultMetrics; m != nil {
		m.StreamAttached()
		defer m.StreamDetached()
		defer m.EventsDropped(session.Events().Dropped())
	}

	h.relayEvents(c, writer, stream, session.ID)

	// Surface the terminal error in logs; the client saw it as an event.
	select {
	case runErr := <-runDone:
		if runErr != nil && !errors.Is(runErr, agent.ErrCanceled) {
			slog.Warn("Session ended with error",
				"session_id", session.ID,
				"error", runErr,
			)
		}
	default:
		// Client left before the session finished; it keeps running.
		slog.Info("Client disconnected, session continues",
			"session_id", session.ID,
		)
	}
}

// relayEvents copies stream frames to the SSE writer until the stream
// closes or the client disconnects, sending keepalives while idle.
func (h *CopilotHandler) relayEvents(c *gin.Context, writer SSEWriter, stream <-chan datatypes.StreamEvent, sessionID string) {
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case evt, ok := <-stream:
			if !ok {
				return
			}
			if err := writer.WriteEvent(evt); err != nil {
				slog.Debug("SSE write failed, client likely gone",
					"session_id", sessionID,
					"error", err,
				)
				return
			}
		case <-keepAlive.C:
			if err := writer.WriteKeepAlive(); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}

// HandleGetSession returns the current decision snapshot of a session.
//
// Handles GET /v1/copilot/sessions/:sessionId.
func (h *CopilotHandler) HandleGetSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.loop.GetSnapshot(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandleListSessions returns summaries of all live sessions.
//
// Handles GET /v1/copilot/sessions.
func (h *CopilotHandler) HandleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.loop.ListSessions()})
}

// HandleDeleteSession aborts a session if it is still running, then
// removes it.
//
// Handles DELETE /v1/copilot/sessions/:sessionId.
func (h *CopilotHandler) HandleDeleteSession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if err := validation.ValidateSessionID(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.loop.Abort(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err := h.loop.CloseSession(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	slog.Info("Session deleted", "session_id", sessionID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": sessionID})
}
