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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/agent"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSessionID = "3f1c9a0e-5b7d-4c2a-9e8f-0d6b4a2c1e57"

// =============================================================================
// Fake Loop
// =============================================================================

// fakeLoop satisfies agent.CopilotLoop without running real sessions.
// Run publishes a fixed event sequence and closes the stream so the SSE
// handler drains and returns.
type fakeLoop struct {
	snapshots map[string]datatypes.DecisionSnapshot
	summaries []datatypes.SessionSummary

	abortedIDs []string
	closedIDs  []string
	runCalls   int
}

var _ agent.CopilotLoop = (*fakeLoop)(nil)

func (f *fakeLoop) Run(ctx context.Context, session *agent.Session) (datatypes.DecisionSnapshot, error) {
	f.runCalls++
	session.Events().Publish(datatypes.EventStepProgress, 0,
		datatypes.StepProgressData{Phase: "thinking", Message: "starting"})
	session.Events().Publish(datatypes.EventProcessComplete, 0,
		datatypes.DecisionSnapshot{SessionID: session.ID, IsComplete: true})
	session.Events().Close()
	return datatypes.DecisionSnapshot{SessionID: session.ID, IsComplete: true}, nil
}

func (f *fakeLoop) Abort(ctx context.Context, sessionID string) error {
	if _, ok := f.snapshots[sessionID]; !ok {
		return agent.ErrSessionNotFound
	}
	f.abortedIDs = append(f.abortedIDs, sessionID)
	return nil
}

func (f *fakeLoop) GetSnapshot(sessionID string) (datatypes.DecisionSnapshot, error) {
	snap, ok := f.snapshots[sessionID]
	if !ok {
		return datatypes.DecisionSnapshot{}, agent.ErrSessionNotFound
	}
	return snap, nil
}

func (f *fakeLoop) GetSession(sessionID string) (*agent.Session, error) {
	return nil, agent.ErrSessionNotFound
}

func (f *fakeLoop) ListSessions() []datatypes.SessionSummary {
	return f.summaries
}

func (f *fakeLoop) CloseSession(sessionID string) error {
	if _, ok := f.snapshots[sessionID]; !ok {
		return agent.ErrSessionNotFound
	}
	f.closedIDs = append(f.closedIDs, sessionID)
	return nil
}

func newTestHandler(loop *fakeLoop, createRPS float64) (*CopilotHandler, *gin.Engine) {
	h := NewCopilotHandler(loop, agent.DefaultSessionConfig(), createRPS)
	router := gin.New()
	router.POST("/v1/copilot/sessions", h.HandleCreateSession)
	router.GET("/v1/copilot/sessions", h.HandleListSessions)
	router.GET("/v1/copilot/sessions/:sessionId", h.HandleGetSession)
	router.DELETE("/v1/copilot/sessions/:sessionId", h.HandleDeleteSession)
	router.GET("/v1/copilot/sessions/:sessionId/adjustments.csv", h.HandleExportAdjustments)
	return h, router
}

// =============================================================================
// Create Session Tests
// =============================================================================

func TestHandleCreateSession_StreamsEvents(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{}}
	_, router := newTestHandler(loop, 0)

	body := `{"intent": "Assess evening peak demand risk for tomorrow"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/copilot/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, 1, loop.runCalls)

	out := w.Body.String()
	assert.Contains(t, out, "event: step_progress")
	assert.Contains(t, out, "event: process_complete")
	assert.Contains(t, out, `"is_complete":true`)
}

func TestHandleCreateSession_InvalidBody(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/copilot/sessions", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, loop.runCalls)
}

func TestHandleCreateSession_BlankIntent(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{}}
	_, router := newTestHandler(loop, 0)

	// Whitespace survives binding validation but not sanitization.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/copilot/sessions", strings.NewReader(`{"intent": "   "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, loop.runCalls)
}

func TestHandleCreateSession_RateLimited(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{}}
	_, router := newTestHandler(loop, 1)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/v1/copilot/sessions",
			strings.NewReader(`{"intent": "Check overnight load"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	// Burst is rps+1, so the third rapid request must be rejected.
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

// =============================================================================
// Get / List / Delete Tests
// =============================================================================

func TestHandleGetSession_ReturnsSnapshot(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{
		testSessionID: {SessionID: testSessionID, ConfidenceLevel: 0.8, IsComplete: true},
	}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/copilot/sessions/"+testSessionID, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snap datatypes.DecisionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, testSessionID, snap.SessionID)
	assert.Equal(t, 0.8, snap.ConfidenceLevel)
}

func TestHandleGetSession_NotFound(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/copilot/sessions/"+testSessionID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetSession_InvalidID(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/copilot/sessions/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListSessions_ReturnsSummaries(t *testing.T) {
	loop := &fakeLoop{summaries: []datatypes.SessionSummary{
		{SessionID: testSessionID, Intent: "Check midday solar dip", Status: "DONE", LoopCount: 2},
	}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/copilot/sessions", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Sessions []datatypes.SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Sessions, 1)
	assert.Equal(t, "DONE", response.Sessions[0].Status)
}

func TestHandleDeleteSession_AbortsAndRemoves(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{
		testSessionID: {SessionID: testSessionID},
	}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/copilot/sessions/"+testSessionID, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "success", response["status"])
	assert.Equal(t, testSessionID, response["deleted_session_id"])
	assert.Equal(t, []string{testSessionID}, loop.abortedIDs)
	assert.Equal(t, []string{testSessionID}, loop.closedIDs)
}

func TestHandleDeleteSession_NotFound(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/copilot/sessions/"+testSessionID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// CSV Export Tests
// =============================================================================

func TestHandleExportAdjustments_WritesCSV(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{
		testSessionID: {
			SessionID:  testSessionID,
			IsComplete: true,
			FinalAdjustments: map[string]datatypes.PeriodAdjustment{
				"evening_peak": {AdjustmentPercentage: 7.2, Reason: "HVAC surge expected", Confidence: 0.8},
				"overnight":    {AdjustmentPercentage: -2.5, Reason: "Mild temperatures", Confidence: 0.5},
			},
		},
	}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/copilot/sessions/"+testSessionID+"/adjustments.csv", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), testSessionID+"_adjustments.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "period,adjustment_percentage,reason,confidence", lines[0])
	// Rows sorted by period name.
	assert.Equal(t, "evening_peak,7.2,HVAC surge expected,0.80", lines[1])
	assert.Equal(t, "overnight,-2.5,Mild temperatures,0.50", lines[2])
}

func TestHandleExportAdjustments_IncompleteSessionConflicts(t *testing.T) {
	loop := &fakeLoop{snapshots: map[string]datatypes.DecisionSnapshot{
		testSessionID: {SessionID: testSessionID, IsComplete: false},
	}}
	_, router := newTestHandler(loop, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/copilot/sessions/"+testSessionID+"/adjustments.csv", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
