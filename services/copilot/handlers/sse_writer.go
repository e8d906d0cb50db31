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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SSEWriter defines the contract for writing Server-Sent Events to HTTP
// responses.
//
// # Description
//
// SSEWriter abstracts SSE event serialization and writing, enabling
// testability and separation from HTTP response mechanics. Implementations
// handle the SSE wire format (event: type\ndata: json\n\n) internally.
//
// Each event is hashed on write:
//   - Hash: SHA-256 of event content for integrity
//   - PrevHash: Hash of the previous event for chain verification
//
// # Thread Safety
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Assumptions
//
//   - Caller has set SSE headers via SetSSEHeaders before the first write
type SSEWriter interface {
	// WriteEvent writes a single SSE event to the response.
	//
	// # Description
	//
	// Populates Hash and PrevHash, serializes to JSON, writes in SSE
	// format, and flushes immediately.
	//
	// # Inputs
	//
	//   - event: StreamEvent to write. Hash and PrevHash are auto-set.
	//
	// # Outputs
	//
	//   - error: Non-nil if JSON marshaling or writing failed.
	WriteEvent(event datatypes.StreamEvent) error

	// WriteKeepAlive sends a comment line to prevent connection timeouts.
	//
	// # Description
	//
	// Sends an SSE comment (": ping\n\n") to keep the TCP connection
	// active while a reasoning step runs. Comments are ignored by SSE
	// clients but reset load balancer timeout counters.
	//
	// # Outputs
	//
	//   - error: Non-nil if writing failed.
	//
	// # Limitations
	//
	//   - Does not update the hash chain (comments are not events)
	WriteKeepAlive() error
}

// =============================================================================
// Struct Definition
// =============================================================================

// sseWriter implements SSEWriter for HTTP SSE responses.
//
// Maintains the per-stream hash chain: each event's Hash is SHA-256 of its
// content and PrevHash links to the previous event, so a consumer can
// detect dropped or reordered frames.
type sseWriter struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// NewSSEWriter creates a new SSEWriter for the given ResponseWriter.
//
// # Outputs
//
//   - SSEWriter: Ready to write SSE events.
//   - error: Non-nil if the ResponseWriter doesn't support flushing.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}

	return &sseWriter{
		writer:  w,
		flusher: flusher,
	}, nil
}

// WriteEvent implements SSEWriter.
func (w *sseWriter) WriteEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event.PrevHash = w.prevHash
	event.Hash = computeEventHash(event)
	w.prevHash = event.Hash

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// computeEventHash computes SHA-256 over the event's content fields.
// The Data payload is JSON-serialized so the hash is stable across writes.
func computeEventHash(event datatypes.StreamEvent) string {
	dataJSON := ""
	if event.Data != nil {
		if data, err := json.Marshal(event.Data); err == nil {
			dataJSON = string(data)
		}
	}

	hashInput := fmt.Sprintf("%s|%s|%d|%d|%s|%s|%s",
		event.ID,
		event.Type,
		event.StepNumber,
		event.Iteration,
		event.CreatedAt,
		event.PrevHash,
		dataJSON,
	)

	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

// WriteKeepAlive implements SSEWriter.
func (w *sseWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// SetSSEHeaders configures HTTP response headers for SSE streaming.
//
// Must be called before writing any response body.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ SSEWriter = (*sseWriter)(nil)
