// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
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
	"fmt"
	"net/http"
	"sync"
)

// =============================================================================
// Interface Definition
// =============================================================================

// DeltaWriter writes raw text deltas to an HTTP response as they arrive.
//
// # Description
//
// The chat stream is plain text: each model delta is written to the
// response body verbatim and flushed immediately, with no event framing,
// no JSON envelope, and no metadata. Clients reconstruct the answer by
// concatenating the body as it arrives.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the completion
// callback and keep-alive timers may write from different goroutines.
//
// # Limitations
//
//   - Requires an http.Flusher-compatible ResponseWriter
//   - Headers must be set before the first write
type DeltaWriter interface {
	// WriteDelta writes one text delta and flushes it to the client.
	WriteDelta(content string) error

	// BytesWritten reports the total number of body bytes written so far.
	// Zero means the stream can still fail over to a JSON error response.
	BytesWritten() int
}

// =============================================================================
// Struct Definition
// =============================================================================

// deltaWriter implements DeltaWriter over an http.ResponseWriter.
type deltaWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	written int
	mu      sync.Mutex
}

var _ DeltaWriter = (*deltaWriter)(nil)

// =============================================================================
// Constructor
// =============================================================================

// NewDeltaWriter creates a DeltaWriter for the given ResponseWriter.
//
// # Inputs
//
//   - w: HTTP ResponseWriter. Must implement http.Flusher.
//
// # Outputs
//
//   - DeltaWriter: Ready to stream deltas.
//   - error: Non-nil if the ResponseWriter does not support flushing.
func NewDeltaWriter(w http.ResponseWriter) (DeltaWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &deltaWriter{writer: w, flusher: flusher}, nil
}

// =============================================================================
// Methods
// =============================================================================

// WriteDelta writes one text delta and flushes immediately.
func (w *deltaWriter) WriteDelta(content string) error {
	if content == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write([]byte(content))
	w.written += n
	if err != nil {
		return fmt.Errorf("write delta: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// BytesWritten reports total body bytes written.
func (w *deltaWriter) BytesWritten() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// =============================================================================
// Helper Functions
// =============================================================================

// SetStreamHeaders configures response headers for plain-text streaming.
//
// Disables proxy buffering so deltas reach the client as they are flushed.
// Must be called before the first body write.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
}
