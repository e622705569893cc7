// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the concierge HTTP endpoints.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/observability"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/prompt"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/propertydata"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/retrieval"
	"github.com/AleutianAI/ResidenceConcierge/services/llm"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// retrievalBudget bounds the retrieval fan-out. Sources that miss the
	// budget degrade to empty rather than failing the turn.
	retrievalBudget = 10 * time.Second
)

// errClientDisconnect aborts streaming when the client goes away.
var errClientDisconnect = errors.New("client disconnected")

// =============================================================================
// Interface Definition
// =============================================================================

// ChatHandler defines the contract for the concierge chat endpoints.
//
// # Description
//
// ChatHandler owns the full request pipeline: validation, scope
// enrichment, retrieval fan-out, context merging, prompt rendering, and
// completion streaming. The streaming endpoint relays raw text deltas;
// the preview endpoint renders the prompt without calling the model.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; Gin calls handlers
// from multiple goroutines.
type ChatHandler interface {
	// HandleChatStream processes POST /v1/chat requests and streams the
	// model's answer as raw text deltas.
	HandleChatStream(c *gin.Context)

	// HandlePromptPreview processes POST /v1/prompt/preview requests and
	// returns the rendered prompt as JSON without calling the model.
	HandlePromptPreview(c *gin.Context)
}

// =============================================================================
// Struct Definition
// =============================================================================

// chatHandler implements ChatHandler for production use.
//
// # Fields
//
//   - llmClient: Completion collaborator with streaming support.
//   - retriever: Retrieval fan-out over the passage store.
//   - engine: Prompt template engine.
//   - directory: Property-data directory for scope enrichment. May be nil.
//   - tracer: OpenTelemetry tracer.
//
// # Thread Safety
//
// Thread-safe. All fields are read-only after construction.
type chatHandler struct {
	llmClient llm.LLMClient
	retriever *retrieval.Client
	engine    *prompt.Engine
	directory propertydata.Directory
	tracer    trace.Tracer
}

var _ ChatHandler = (*chatHandler)(nil)

// =============================================================================
// Constructor
// =============================================================================

// NewChatHandler creates a ChatHandler with the provided dependencies.
//
// # Inputs
//
//   - llmClient: Completion collaborator. Must not be nil.
//   - retriever: Retrieval client. Must not be nil.
//   - engine: Prompt engine. Must not be nil.
//   - directory: Property-data directory. May be nil; enrichment is then
//     skipped and the caller-supplied scope fields are used as-is.
//
// # Outputs
//
//   - ChatHandler: Ready for use with the Gin router.
//
// # Limitations
//
//   - Panics on nil llmClient, retriever, or engine.
func NewChatHandler(
	llmClient llm.LLMClient,
	retriever *retrieval.Client,
	engine *prompt.Engine,
	directory propertydata.Directory,
) ChatHandler {
	if llmClient == nil {
		panic("NewChatHandler: llmClient must not be nil")
	}
	if retriever == nil {
		panic("NewChatHandler: retriever must not be nil")
	}
	if engine == nil {
		panic("NewChatHandler: engine must not be nil")
	}

	return &chatHandler{
		llmClient: llmClient,
		retriever: retriever,
		engine:    engine,
		directory: directory,
		tracer:    otel.Tracer("concierge.handlers.chat"),
	}
}

// =============================================================================
// Handler Methods
// =============================================================================

// HandleChatStream processes POST /v1/chat requests.
//
// # Description
//
// The flow is:
//  1. Parse and validate the request body
//  2. Enrich the scope from the property-data directory (best effort)
//  3. Run the retrieval fan-out under the retrieval budget
//  4. Merge candidates and render the system prompt
//  5. Stream the model's answer as raw text deltas
//
// Failures before the first delta produce a JSON error response.
// Failures after the first delta close the connection; the partial body
// is all the client gets, and the failure is recorded in metrics.
//
// # Inputs
//
//   - c: Gin context containing the HTTP request.
//
// # Outputs
//
// HTTP status (before streaming starts):
//   - 400 Bad Request: Invalid request body or validation failure
//   - 502 Bad Gateway: Completion collaborator failed before any delta
//   - 500 Internal Server Error: Streaming unsupported or prompt failure
//
// Once streaming starts the body is plain text deltas until the model
// finishes or the connection drops.
func (h *chatHandler) HandleChatStream(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleChatStream")
	defer span.End()

	start := time.Now()
	endpoint := observability.EndpointChatStream

	req, ok := h.bindAndValidate(c, span)
	if !ok {
		recordError(endpoint, observability.ErrorCodeValidation)
		recordRequest(endpoint, false)
		return
	}

	span.SetAttributes(
		attribute.String("chat.request_id", req.RequestID),
		attribute.Bool("chat.corporate", req.Scope.IsCorporate),
		attribute.String("chat.language", req.Scope.Language),
		attribute.Bool("chat.override", req.PromptOverride != ""),
	)

	h.enrichScope(ctx, &req.Scope)

	normalized, _, err := h.buildPrompt(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		recordError(endpoint, observability.ErrorCodeInternal)
		recordRequest(endpoint, false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare prompt"})
		return
	}

	messages := buildTurns(normalized, req)

	SetStreamHeaders(c.Writer)
	writer, err := NewDeltaWriter(c.Writer)
	if err != nil {
		recordError(endpoint, observability.ErrorCodeInternal)
		recordRequest(endpoint, false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	if m := observability.DefaultMetrics; m != nil {
		m.StreamStarted(endpoint)
		defer m.StreamEnded(endpoint)
	}

	deltas := 0
	firstDelta := time.Time{}
	reqCtx := c.Request.Context()

	callback := func(event llm.StreamEvent) error {
		select {
		case <-reqCtx.Done():
			return errClientDisconnect
		default:
		}

		switch event.Type {
		case llm.StreamEventToken:
			if deltas == 0 {
				firstDelta = time.Now()
			}
			deltas++
			return writer.WriteDelta(event.Content)
		case llm.StreamEventError:
			return fmt.Errorf("completion stream error: %s", event.Error)
		case llm.StreamEventDone:
			return nil
		}
		return nil
	}

	err = h.llmClient.ChatStream(ctx, messages, llm.GenerationParams{}, callback)

	if m := observability.DefaultMetrics; m != nil {
		m.RecordDeltas(endpoint, deltas)
		if !firstDelta.IsZero() {
			m.RecordTimeToFirstDelta(endpoint, firstDelta.Sub(start).Seconds())
		}
		m.RecordStreamDuration(endpoint, time.Since(start).Seconds(), err == nil)
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.finishStreamError(c, endpoint, err, writer.BytesWritten())
		return
	}

	span.SetAttributes(attribute.Int("chat.deltas", deltas))
	recordRequest(endpoint, true)
}

// =============================================================================
// Pipeline Steps
// =============================================================================

// bindAndValidate parses the request body and applies domain validation.
// Writes the 400 response itself; callers only need the ok flag.
func (h *chatHandler) bindAndValidate(c *gin.Context, span trace.Span) (*datatypes.ChatRequest, bool) {
	var req datatypes.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "bind failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}

	req.EnsureDefaults()
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &req, true
}

// enrichScope fills empty scope fields from the property-data directory.
// Best effort: a directory failure leaves the caller's fields in place.
func (h *chatHandler) enrichScope(ctx context.Context, scope *datatypes.ScopeDescriptor) {
	if h.directory == nil {
		return
	}
	if err := propertydata.EnrichScope(ctx, h.directory, scope); err != nil {
		slog.Warn("Scope enrichment failed, continuing with caller fields",
			"property_id", scope.PropertyID,
			"error", err,
		)
	}
}

// buildPrompt runs retrieval under the budget, merges candidates, renders
// the system prompt, and collapses whitespace for the completion call.
// Returns the normalized prompt and the merged entry count.
func (h *chatHandler) buildPrompt(ctx context.Context, req *datatypes.ChatRequest) (string, int, error) {
	retrievalCtx, cancel := context.WithTimeout(ctx, retrievalBudget)
	defer cancel()

	sources, err := h.retriever.FetchCandidates(retrievalCtx, req.Message, req.Scope, retrieval.DefaultLimitPerSource)
	if err != nil && ctx.Err() != nil {
		// The caller went away; nothing to salvage.
		return "", 0, fmt.Errorf("retrieval canceled: %w", err)
	}
	if err != nil {
		// Budget exhausted. Degrade to an empty context rather than fail.
		slog.Warn("Retrieval budget exhausted, continuing without context",
			"request_id", req.RequestID,
			"error", err,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRetrievalDegraded(observability.EndpointChatStream)
		}
		sources = nil
	}

	merged := retrieval.Merge(sources...)
	mergedContext := retrieval.JoinContext(merged)

	rendered, err := h.engine.Render(ctx, req.Scope, mergedContext, req.PromptOverride)
	if err != nil {
		return "", 0, fmt.Errorf("prompt render failed: %w", err)
	}

	return prompt.Normalize(rendered), len(merged), nil
}

// buildTurns assembles the completion turn list: the rendered prompt as a
// developer turn, the caller's history verbatim, then the latest message.
func buildTurns(normalizedPrompt string, req *datatypes.ChatRequest) []datatypes.Message {
	messages := make([]datatypes.Message, 0, len(req.History)+2)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.RoleDeveloper,
		Content: normalizedPrompt,
	})
	messages = append(messages, req.History...)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.RoleUser,
		Content: req.Message,
	})
	return messages
}

// finishStreamError reports a completion failure. Before the first delta
// the client still gets a JSON error; afterwards the connection is simply
// closed and the failure lives only in logs and metrics.
func (h *chatHandler) finishStreamError(c *gin.Context, endpoint observability.Endpoint, err error, bytesWritten int) {
	recordRequest(endpoint, false)

	if errors.Is(err, errClientDisconnect) || errors.Is(err, context.Canceled) {
		slog.Info("Client disconnected during stream", "bytes_written", bytesWritten)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordClientDisconnect(endpoint)
		}
		recordError(endpoint, observability.ErrorCodeClientDisconnect)
		return
	}

	slog.Error("Completion stream failed", "bytes_written", bytesWritten, "error", err)
	if errors.Is(err, context.DeadlineExceeded) {
		recordError(endpoint, observability.ErrorCodeTimeout)
	} else {
		recordError(endpoint, observability.ErrorCodeLLMError)
	}

	if bytesWritten == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "completion service unavailable"})
	}
}

// =============================================================================
// Metrics Helpers
// =============================================================================

func recordRequest(endpoint observability.Endpoint, success bool) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(endpoint, success)
	}
}

func recordError(endpoint observability.Endpoint, code observability.ErrorCode) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(endpoint, code)
	}
}
