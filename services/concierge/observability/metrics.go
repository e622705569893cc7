// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// concierge service.
//
// # Description
//
// Prometheus metrics for the chat pipeline:
//   - Request counters (by endpoint, status, error type)
//   - Streamed delta counters
//   - Latency histograms (time to first delta, total stream duration)
//   - Active stream gauges
//   - Retrieval degradation counters
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "concierge"

const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for the chat pipeline.
//
// Initialize once at startup via InitMetrics().
type ChatMetrics struct {
	// RequestsTotal counts chat requests by endpoint and status.
	// Labels: endpoint (chat_stream, prompt_preview), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// DeltasTotal counts streamed text deltas relayed to clients.
	// Labels: endpoint
	DeltasTotal *prometheus.CounterVec

	// TimeToFirstDeltaSeconds measures latency to the first streamed delta.
	// Labels: endpoint
	TimeToFirstDeltaSeconds *prometheus.HistogramVec

	// StreamDurationSeconds measures total stream duration.
	// Labels: endpoint, status (success, error)
	StreamDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently active streaming connections.
	// Labels: endpoint
	ActiveStreams *prometheus.GaugeVec

	// ErrorsTotal counts errors by type and endpoint.
	// Labels: endpoint, error_code
	ErrorsTotal *prometheus.CounterVec

	// RetrievalDegradedTotal counts chat turns where one or more retrieval
	// sources failed and were degraded to empty.
	// Labels: endpoint
	RetrievalDegradedTotal *prometheus.CounterVec

	// ClientDisconnectsTotal counts client disconnections during streaming.
	// Labels: endpoint
	ClientDisconnectsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of ChatMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ChatMetrics

// InitMetrics initializes the default metrics instance.
//
// Creates and registers all Prometheus metrics. Call once at application
// startup; a second call panics on duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total number of chat requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		DeltasTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "deltas_total",
				Help:      "Total streamed text deltas relayed to clients",
			},
			[]string{"endpoint"},
		),

		TimeToFirstDeltaSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "time_to_first_delta_seconds",
				Help:      "Time from request to first streamed delta in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total chat errors by type and endpoint",
			},
			[]string{"endpoint", "error_code"},
		),

		RetrievalDegradedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "retrieval_degraded_total",
				Help:      "Chat turns where one or more retrieval sources degraded to empty",
			},
			[]string{"endpoint"},
		),

		ClientDisconnectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total client disconnections during streaming",
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates completion collaborator failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeRetrieval indicates a retrieval degradation was recorded.
	ErrorCodeRetrieval ErrorCode = "retrieval_error"

	// ErrorCodeTimeout indicates operation timeout.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"

	// ErrorCodeClientDisconnect indicates the client disconnected.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents an endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointChatStream is the streaming chat endpoint.
	EndpointChatStream Endpoint = "chat_stream"

	// EndpointPromptPreview is the prompt preview endpoint.
	EndpointPromptPreview Endpoint = "prompt_preview"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *ChatMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records an error occurrence.
func (m *ChatMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordDeltas adds to the streamed delta counter.
func (m *ChatMetrics) RecordDeltas(endpoint Endpoint, count int) {
	m.DeltasTotal.WithLabelValues(string(endpoint)).Add(float64(count))
}

// StreamStarted increments the active streams gauge.
func (m *ChatMetrics) StreamStarted(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *ChatMetrics) StreamEnded(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordTimeToFirstDelta records the time-to-first-delta latency.
func (m *ChatMetrics) RecordTimeToFirstDelta(endpoint Endpoint, seconds float64) {
	m.TimeToFirstDeltaSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordStreamDuration records the total stream duration.
func (m *ChatMetrics) RecordStreamDuration(endpoint Endpoint, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), status).Observe(seconds)
}

// RecordRetrievalDegraded records a degraded retrieval fan-out.
func (m *ChatMetrics) RecordRetrievalDegraded(endpoint Endpoint) {
	m.RetrievalDegradedTotal.WithLabelValues(string(endpoint)).Inc()
}

// RecordClientDisconnect increments the client disconnect counter.
func (m *ChatMetrics) RecordClientDisconnect(endpoint Endpoint) {
	m.ClientDisconnectsTotal.WithLabelValues(string(endpoint)).Inc()
}
