// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/handlers"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/middleware"
)

// SetupRoutes wires all co-pilot endpoints onto the router.
//
// Health and metrics are unauthenticated; everything under /v1 passes
// through token auth.
func SetupRoutes(router *gin.Engine, copilotHandler *handlers.CopilotHandler, authToken string) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.TokenAuthMiddleware(authToken))
	{
		// Co-pilot session routes
		sessions := v1.Group("/copilot/sessions")
		{
			sessions.POST("", copilotHandler.HandleCreateSession)
			sessions.GET("", copilotHandler.HandleListSessions)
			sessions.GET("/:sessionId", copilotHandler.HandleGetSession)
			sessions.DELETE("/:sessionId", copilotHandler.HandleDeleteSession)
			sessions.GET("/:sessionId/adjustments.csv", copilotHandler.HandleExportAdjustments)
		}

		v1.POST("/timeseries/forecast", handlers.HandleDemandForecast())
	}
}
