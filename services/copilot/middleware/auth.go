// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the co-pilot service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization header
// and compares it against the token configured for the deployment. On a
// match the caller identity is stored in the Gin context for downstream
// handlers.
//
// # Local Behavior
//
// When no token is configured (the default for local deployments), all
// requests are authenticated as "local-operator". This lets the service
// run without any authentication infrastructure.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// =============================================================================
// Context Keys
// =============================================================================

// callerKey is the context key for the authenticated caller identity.
const callerKey = "peakwatt_caller"

// localCaller is the identity assigned when authentication is disabled.
const localCaller = "local-operator"

// =============================================================================
// Context Helpers
// =============================================================================

// SetCaller stores the authenticated caller identity in the Gin context.
func SetCaller(c *gin.Context, caller string) {
	c.Set(callerKey, caller)
}

// GetCaller retrieves the authenticated caller identity from the Gin
// context. Returns empty string when the request was not authenticated.
func GetCaller(c *gin.Context) string {
	if v, exists := c.Get(callerKey); exists {
		if caller, ok := v.(string); ok {
			return caller
		}
	}
	return ""
}

// =============================================================================
// Auth Middleware
// =============================================================================

// TokenAuthMiddleware creates a Gin middleware that authenticates requests
// against a single deployment token.
//
// # Description
//
// Extracts the bearer token from the Authorization header and compares it
// against the expected token in constant time. An empty expected token
// disables authentication entirely and assigns the local caller identity.
//
// # Inputs
//
//   - expected: The deployment token. Empty disables authentication.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware ready for use with Gin.
//
// # Limitations
//
//   - Only supports Bearer token authentication
//   - A single shared token, not per-user identity
func TokenAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			SetCaller(c, localCaller)
			c.Next()
			return
		}

		token := extractBearerToken(c)
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		SetCaller(c, "token-holder")
		c.Next()
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// extractBearerToken extracts the token from the Authorization header.
// Returns empty string if the header is missing or malformed. The
// "Bearer" prefix is case-insensitive per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
