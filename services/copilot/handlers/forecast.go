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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// Request structure to inspect just the routing key
type forecastRoutingRequest struct {
	Model string `json:"model"`
}

// normalizeModelName converts a display name or huggingface ID to a slug,
// e.g. "Chronos T5 (Tiny)" -> "chronos-t5-tiny".
func normalizeModelName(input string) string {
	s := strings.ToLower(input)
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	reg := regexp.MustCompile("[^a-z0-9]+")
	s = reg.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// forecastServiceURL resolves the demand forecast backend for a model.
// A per-model env override (FORECAST_SERVICE_<SLUG>) wins; everything else
// goes to the default unified service.
func forecastServiceURL(modelName string) string {
	defaultURL := os.Getenv("PEAKWATT_FORECAST_URL")
	if defaultURL == "" {
		defaultURL = "http://forecast-service:8000"
	}
	if modelName == "" {
		return defaultURL
	}

	slug := normalizeModelName(modelName)
	envVarKey := fmt.Sprintf("FORECAST_SERVICE_%s",
		strings.ReplaceAll(strings.ToUpper(slug), "-", "_"))
	if override := os.Getenv(envVarKey); override != "" {
		slog.Info("Using environment override for model", "model", modelName, "url", override)
		return override
	}
	return defaultURL
}

// HandleDemandForecast proxies requests to the demand forecast service.
//
// # Description
//
// Handles POST /v1/timeseries/forecast. The body is forwarded verbatim;
// only the "model" field is peeked at for routing. The backend's status
// code, headers, and body are streamed back unchanged.
func HandleDemandForecast() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleDemandForecast")
		defer span.End()

		reqBodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			slog.Error("Failed to read request body", "error", err)
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		// Peek at the "model" field
		var routingReq forecastRoutingRequest
		_ = json.Unmarshal(reqBodyBytes, &routingReq)
		targetURL := fmt.Sprintf("%s/v1/timeseries/forecast", forecastServiceURL(routingReq.Model))
		slog.Info("Proxying demand forecast request", "target_url", targetURL)

		httpReq, err := http.NewRequestWithContext(ctx, "POST", targetURL, bytes.NewBuffer(reqBodyBytes))
		if err != nil {
			slog.Error("Failed to create request for forecast service", "error", err)
			span.RecordError(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create forecast service request"})
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		if apiKey := os.Getenv("PEAKWATT_FORECAST_API_KEY"); apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
			httpReq.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			slog.Error("Failed to call forecast service", "url", targetURL, "error", err)
			span.RecordError(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to connect to the forecast service"})
			return
		}
		defer resp.Body.Close()

		c.Status(resp.StatusCode)
		for k, v := range resp.Header {
			c.Header(k, strings.Join(v, ","))
		}
		if _, err := io.Copy(c.Writer, resp.Body); err != nil {
			slog.Error("Failed to write forecast service response to client", "error", err)
		}
	}
}
