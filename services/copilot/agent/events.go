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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

// streamBuffer is the per-session event buffer. A subscriber that falls
// further behind than this loses events rather than stalling the loop.
const streamBuffer = 64

// =============================================================================
// Stream Publisher
// =============================================================================

// StreamPublisher is the per-session event stream: a single-subscriber,
// fire-and-forget channel of StreamEvents.
//
// # Description
//
// The loop publishes frames as it progresses; exactly one subscriber (the
// SSE handler) may attach. Publishing never blocks: if the subscriber has
// disconnected or fallen behind, frames are dropped and the session
// continues. Step numbers increase monotonically across the session
// whether or not anyone is listening.
//
// Thread Safety: StreamPublisher is safe for concurrent use.
type StreamPublisher struct {
	mu         sync.Mutex
	ch         chan datatypes.StreamEvent
	subscribed bool
	closed     bool
	step       int
	dropped    int
}

// NewStreamPublisher creates an unsubscribed publisher.
func NewStreamPublisher() *StreamPublisher {
	return &StreamPublisher{
		ch: make(chan datatypes.StreamEvent, streamBuffer),
	}
}

// Subscribe attaches the single allowed consumer.
//
// # Outputs
//
//   - <-chan datatypes.StreamEvent: Closed when the session terminates.
//   - error: ErrStreamSubscribed on a second call.
func (p *StreamPublisher) Subscribe() (<-chan datatypes.StreamEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.subscribed {
		return nil, ErrStreamSubscribed
	}
	p.subscribed = true
	return p.ch, nil
}

// Publish emits one frame. Non-blocking: drops the frame when the buffer
// is full. The step number is assigned here and never reused.
func (p *StreamPublisher) Publish(eventType string, iteration int, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.step++
	evt := datatypes.StreamEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		StepNumber: p.step,
		Iteration:  iteration,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Data:       data,
	}

	select {
	case p.ch <- evt:
	default:
		p.dropped++
		slog.Debug("Dropping stream event, subscriber behind",
			slog.String("type", eventType),
			slog.Int("step", p.step),
			slog.Int("dropped_total", p.dropped),
		)
	}
}

// Close ends the stream. Idempotent; a subscriber sees the channel close
// after draining the buffer.
func (p *StreamPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.ch)
}

// Dropped returns how many frames were discarded because no subscriber
// kept up.
func (p *StreamPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
