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
	"fmt"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants for Input Limits
// =============================================================================

const (
	// MaxIntentBytes is the maximum byte size of an intent. The binding
	// tag caps rune count; this caps raw bytes against memory abuse.
	MaxIntentBytes = 16 * 1024 // 16KB

	// MaxSessionIterations is the hard ceiling on per-session thinking
	// steps, regardless of what the request asks for.
	MaxSessionIterations = 50
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// sessionValidate is the validator instance for session datatypes.
// Initialized in init() with custom validators.
var sessionValidate *validator.Validate

func init() {
	sessionValidate = validator.New()

	_ = sessionValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) so multi-byte
// payloads cannot slip past the character-count binding limits.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxIntentBytes
}

// Validate applies the structural limits that go beyond binding tags.
//
// # Outputs
//
//   - error: Non-nil with a caller-safe message when a limit is exceeded.
func (r *CreateSessionRequest) Validate() error {
	if err := sessionValidate.Var(r.Intent, "maxbytes"); err != nil {
		return fmt.Errorf("intent exceeds %d bytes", MaxIntentBytes)
	}
	if err := sessionValidate.Var(r.Rationale, "maxbytes"); err != nil {
		return fmt.Errorf("rationale exceeds %d bytes", MaxIntentBytes)
	}
	if r.Options.MaxIterations != nil {
		n := *r.Options.MaxIterations
		if n < 0 || n > MaxSessionIterations {
			return fmt.Errorf("max_iterations must be between 0 and %d", MaxSessionIterations)
		}
	}
	return nil
}
