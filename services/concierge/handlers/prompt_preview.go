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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/observability"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/prompt"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/retrieval"
)

// HandlePromptPreview processes POST /v1/prompt/preview requests.
//
// # Description
//
// Runs the same pipeline as the chat endpoint up to prompt rendering,
// then returns the rendered prompt as JSON instead of calling the model.
// Used by template authors to inspect what a given scope, message, and
// override would actually send.
//
// The preview returns the pre-normalization rendering so block structure
// and override formatting stay readable.
//
// # Inputs
//
//   - c: Gin context containing the HTTP request. The body is the same
//     ChatRequest shape as POST /v1/chat.
//
// # Outputs
//
//   - 200 OK: PromptPreviewResponse with the rendered prompt
//   - 400 Bad Request: Invalid request body or validation failure
//   - 500 Internal Server Error: Prompt rendering failure
func (h *chatHandler) HandlePromptPreview(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "HandlePromptPreview")
	defer span.End()

	endpoint := observability.EndpointPromptPreview

	req, ok := h.bindAndValidate(c, span)
	if !ok {
		recordError(endpoint, observability.ErrorCodeValidation)
		recordRequest(endpoint, false)
		return
	}

	h.enrichScope(ctx, &req.Scope)

	sources, err := h.retriever.FetchCandidates(ctx, req.Message, req.Scope, retrieval.DefaultLimitPerSource)
	if err != nil {
		sources = nil
	}
	merged := retrieval.Merge(sources...)
	mergedContext := retrieval.JoinContext(merged)

	rendered, err := h.engine.Render(ctx, req.Scope, mergedContext, req.PromptOverride)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		recordError(endpoint, observability.ErrorCodeInternal)
		recordRequest(endpoint, false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render prompt"})
		return
	}

	recordRequest(endpoint, true)
	c.JSON(http.StatusOK, datatypes.PromptPreviewResponse{
		RequestID:      req.RequestID,
		RenderedPrompt: rendered,
		ContextEntries: len(merged),
		ContextBytes:   len(mergedContext),
		Family:         string(prompt.FamilyFor(req.Scope)),
	})
}
