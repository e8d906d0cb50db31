// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-provided
// identifiers and free text.
//
// Path parameters and text that end up in log lines, file names, or prompt
// context go through these validators first.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// sessionIDPattern matches UUID-shaped session identifiers.
var sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// periodPattern matches demand period names: lowercase snake_case tokens.
var periodPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// maxIntentLength bounds caller-supplied intent text.
const maxIntentLength = 4096

// ValidateSessionID validates a session identifier from a path parameter.
//
// Session IDs are lowercase UUIDs. Returns an error for anything else, so
// malformed IDs never reach the session store or log lines verbatim.
//
// Example:
//
//	if err := validation.ValidateSessionID(id); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format: %q (must be a lowercase UUID)", id)
	}
	return nil
}

// ValidatePeriodName validates a demand period name.
//
// Valid period names:
//   - 1-32 characters
//   - Lowercase letters, digits, underscores
//   - Starts with a letter
func ValidatePeriodName(period string) error {
	if period == "" {
		return fmt.Errorf("period name cannot be empty")
	}
	if !periodPattern.MatchString(period) {
		return fmt.Errorf("invalid period name: %q (must be lowercase snake_case, max 32 chars)", period)
	}
	return nil
}

// SanitizeIntent normalizes caller intent text before it enters prompt
// context. Control characters are stripped, whitespace is collapsed at the
// edges, and overlong text is rejected rather than truncated.
func SanitizeIntent(intent string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, intent)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "", fmt.Errorf("intent cannot be empty")
	}
	if len(cleaned) > maxIntentLength {
		return "", fmt.Errorf("intent too long: %d chars (max %d)", len(cleaned), maxIntentLength)
	}
	return cleaned, nil
}
