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
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PeakWattAI/PeakWattFOSS/pkg/validation"
)

// HandleExportAdjustments serves a session's final adjustments as CSV.
//
// # Description
//
// Handles GET /v1/copilot/sessions/:sessionId/adjustments.csv. Only
// completed sessions export; an in-flight or aborted session returns 409.
// Rows are sorted by period name for deterministic output.
func (h *CopilotHandler) HandleExportAdjustments(c *gin.Context) {
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
	if !snap.IsComplete {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no completed decision"})
		return
	}

	periods := make([]string, 0, len(snap.FinalAdjustments))
	for period := range snap.FinalAdjustments {
		if err := validation.ValidatePeriodName(period); err != nil {
			continue
		}
		periods = append(periods, period)
	}
	sort.Strings(periods)

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", sessionID+"_adjustments.csv"))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"period", "adjustment_percentage", "reason", "confidence"})
	for _, period := range periods {
		adj := snap.FinalAdjustments[period]
		_ = w.Write([]string{
			period,
			strconv.FormatFloat(adj.AdjustmentPercentage, 'f', 1, 64),
			adj.Reason,
			strconv.FormatFloat(adj.Confidence, 'f', 2, 64),
		})
	}
	w.Flush()
}
