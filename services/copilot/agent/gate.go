// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// =============================================================================
// Concurrency Gate
// =============================================================================

// GateMode selects what happens when the session cap is reached.
type GateMode string

const (
	// GateModeReject fails new sessions immediately with
	// ErrConcurrencyLimit. This is the default.
	GateModeReject GateMode = "reject"

	// GateModeQueue blocks new sessions in FIFO order until a slot
	// frees or the caller's context ends.
	GateModeQueue GateMode = "queue"
)

// ConcurrencyGate enforces the process-wide cap on simultaneously running
// sessions.
//
// Thread Safety: ConcurrencyGate is safe for concurrent use.
type ConcurrencyGate struct {
	sem      *semaphore.Weighted
	mode     GateMode
	capacity int64
}

// NewConcurrencyGate creates a gate with the given capacity.
//
// # Inputs
//
//   - capacity: Maximum concurrent sessions. Zero or negative means
//     unlimited; the gate then admits everything.
//   - mode: Reject or queue behavior at the cap. An unrecognized mode
//     falls back to reject.
func NewConcurrencyGate(capacity int, mode GateMode) *ConcurrencyGate {
	if mode != GateModeQueue {
		mode = GateModeReject
	}
	g := &ConcurrencyGate{mode: mode, capacity: int64(capacity)}
	if capacity > 0 {
		g.sem = semaphore.NewWeighted(int64(capacity))
	}
	return g
}

// Acquire claims a session slot.
//
// In reject mode a full gate returns ErrConcurrencyLimit immediately. In
// queue mode the call blocks until a slot frees; semaphore.Weighted wakes
// waiters in FIFO order. A canceled context returns the context error.
func (g *ConcurrencyGate) Acquire(ctx context.Context) error {
	if g == nil || g.sem == nil {
		return nil
	}

	if g.mode == GateModeReject {
		if !g.sem.TryAcquire(1) {
			return fmt.Errorf("%w (%d)", ErrConcurrencyLimit, g.capacity)
		}
		return nil
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for session slot: %w", err)
	}
	return nil
}

// Release frees a slot claimed by Acquire. Must be called exactly once
// per successful Acquire.
func (g *ConcurrencyGate) Release() {
	if g == nil || g.sem == nil {
		return
	}
	g.sem.Release(1)
}
