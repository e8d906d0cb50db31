// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/agent"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/handlers"
	"github.com/PeakWattAI/PeakWattFOSS/services/llm"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLMClient is a minimal mock for llm.LLMClient
type mockLLMClient struct{}

func (m *mockLLMClient) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	return "mock response", nil
}

func newTestRouter(authToken string) *gin.Engine {
	router := gin.New()
	loop := agent.NewDefaultCopilotLoop(&mockLLMClient{})
	handler := handlers.NewCopilotHandler(loop, agent.DefaultSessionConfig(), 0)
	SetupRoutes(router, handler, authToken)
	return router
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersCoreRoutes(t *testing.T) {
	router := newTestRouter("")

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/copilot/sessions"},
		{"GET", "/v1/copilot/sessions"},
		{"GET", "/v1/copilot/sessions/:sessionId"},
		{"DELETE", "/v1/copilot/sessions/:sessionId"},
		{"GET", "/v1/copilot/sessions/:sessionId/adjustments.csv"},
		{"POST", "/v1/timeseries/forecast"},
	}

	registered := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range registered {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Route %s %s not registered", expected.method, expected.path)
		}
	}
}

func TestSetupRoutes_HealthBypassesAuth(t *testing.T) {
	router := newTestRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health without auth, got %d", w.Code)
	}
}

func TestSetupRoutes_V1RequiresAuth(t *testing.T) {
	router := newTestRouter("secret")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/copilot/sessions", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without bearer token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/v1/copilot/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestSetupRoutes_MetricsEndpointServes(t *testing.T) {
	router := newTestRouter("")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", w.Code)
	}
}
