// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the concierge service.
//
// This file contains the chat request types for the streaming chat and
// prompt-preview endpoints. Scope types live in scope.go, retrieval types
// in search.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message content.
	// Per SEC-003: Unbounded message input mitigation.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxHistoryTurns is the maximum number of prior turns in a request.
	// Per SEC-004: Unbounded message history mitigation.
	MaxHistoryTurns = 100

	// MaxOverrideBytes is the maximum size of a caller-supplied prompt
	// override. Overrides are operator-authored, not end-user input, but
	// the limit still bounds memory per request.
	MaxOverrideBytes = 64 * 1024
)

// =============================================================================
// Message Roles
// =============================================================================

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser = "user"

	// RoleAssistant marks a turn authored by the model.
	RoleAssistant = "assistant"

	// RoleDeveloper marks the synthesized instruction turn carrying the
	// rendered system prompt. Exactly one is prepended per request.
	RoleDeveloper = "developer"
)

// Message is a single role-tagged conversation turn.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant developer"`
	Content string `json:"content" validate:"required,maxbytes"`
}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for concierge datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()

	// Register custom validator for message content size (SEC-003)
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes validates that a string field does not exceed
// MaxMessageContentBytes.
//
// # Description
//
// Custom validator to enforce SEC-003 message size limits. Checks byte
// length (not rune count) to prevent memory exhaustion attacks with large
// payloads.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxMessageContentBytes
}

// =============================================================================
// Chat Request Types
// =============================================================================

// ChatRequest is the body of POST /v1/chat and POST /v1/prompt/preview.
//
// # Description
//
// Carries the new user message, the prior conversation turns, the scope
// that selects the prompt template family and data, and an optional prompt
// override. The response to /v1/chat is an incrementally flushed text body
// of raw completion deltas (no JSON envelope); the client concatenates
// fragments verbatim.
//
// # Fields
//
//   - RequestID: Optional. Unique identifier (UUID v4) for tracing and
//     audit logs; generated server-side when absent.
//   - Timestamp: Optional. Unix timestamp in milliseconds (UTC); filled
//     server-side when absent.
//   - Message: Required. The new user message, max 32KB (SEC-003).
//   - History: Optional. Prior turns in chronological order, max 100
//     (SEC-004). Developer turns are rejected; the service synthesizes
//     its own instruction turn.
//   - Scope: Required. Corporate or per-property scope descriptor.
//   - PromptOverride: Optional. Replaces the fixed template; the merged
//     retrieval context is still injected per the placeholder protocol
//     documented on prompt.Engine.
//
// # Validation
//
//   - Message: required, max 32768 bytes
//   - History: 0-100 elements, each element validated; role must be
//     user or assistant
//   - Scope: validated via ScopeDescriptor.Validate
//
// # Limitations
//
//   - History truncation is the caller's responsibility; requests over
//     100 turns are rejected, not trimmed.
type ChatRequest struct {
	RequestID      string          `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp      int64           `json:"timestamp" validate:"gte=0"`
	Message        string          `json:"message" validate:"required,maxbytes"`
	History        []Message       `json:"history" validate:"max=100,dive"`
	Scope          ScopeDescriptor `json:"scope"`
	PromptOverride string          `json:"prompt_override,omitempty"`
}

// Validate validates the ChatRequest fields.
//
// # Description
//
// Performs validation using go-playground/validator tags plus the scope
// resolution rules. Call after binding the JSON request and before any
// retrieval work (fail fast).
//
// # Outputs
//
//   - error: Non-nil if validation failed, with details about which field.
func (r *ChatRequest) Validate() error {
	if err := chatValidate.Struct(r); err != nil {
		return err
	}
	if len(r.PromptOverride) > MaxOverrideBytes {
		return ErrOverrideTooLarge
	}
	for i := range r.History {
		if r.History[i].Role == RoleDeveloper {
			return ErrDeveloperTurnInHistory
		}
	}
	return r.Scope.Validate()
}

// EnsureDefaults populates default values for optional fields.
//
// # Description
//
// Generates RequestID and Timestamp if not provided by the client, and
// normalizes the scope language. Ensures all requests have proper
// identifiers for tracing and auditing.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
	r.Scope.EnsureDefaults()
}

// =============================================================================
// Prompt Preview Response
// =============================================================================

// PromptPreviewResponse is the JSON response of POST /v1/prompt/preview.
//
// Returns the rendered prompt without calling the completion collaborator,
// for prompt testing and template QA.
type PromptPreviewResponse struct {
	RequestID      string `json:"request_id"`
	RenderedPrompt string `json:"rendered_prompt"`
	ContextEntries int    `json:"context_entries"`
	ContextBytes   int    `json:"context_bytes"`
	Family         string `json:"family"`
}
