// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"
)

func TestCreateSessionRequest_Validate(t *testing.T) {
	iterations := func(n int) *int { return &n }

	tests := []struct {
		name    string
		req     CreateSessionRequest
		wantErr bool
	}{
		{
			name: "valid request",
			req:  CreateSessionRequest{Intent: "Assess tomorrow's evening peak"},
		},
		{
			name: "iterations at ceiling",
			req: CreateSessionRequest{
				Intent:  "Check overnight load",
				Options: SessionOptions{MaxIterations: iterations(MaxSessionIterations)},
			},
		},
		{
			name: "zero iterations allowed",
			req: CreateSessionRequest{
				Intent:  "Check overnight load",
				Options: SessionOptions{MaxIterations: iterations(0)},
			},
		},
		{
			name: "negative iterations rejected",
			req: CreateSessionRequest{
				Intent:  "Check overnight load",
				Options: SessionOptions{MaxIterations: iterations(-1)},
			},
			wantErr: true,
		},
		{
			name: "iterations above ceiling rejected",
			req: CreateSessionRequest{
				Intent:  "Check overnight load",
				Options: SessionOptions{MaxIterations: iterations(MaxSessionIterations + 1)},
			},
			wantErr: true,
		},
		{
			name:    "oversized intent rejected",
			req:     CreateSessionRequest{Intent: strings.Repeat("x", MaxIntentBytes+1)},
			wantErr: true,
		},
		{
			name: "oversized rationale rejected",
			req: CreateSessionRequest{
				Intent:    "Check overnight load",
				Rationale: strings.Repeat("x", MaxIntentBytes+1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}
