// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prompt

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

var tracer = otel.Tracer("concierge.prompt")

// Override placeholder protocol. When a caller-supplied override contains
// PlaceholderContextBlock it is replaced with the wrapped context block;
// else when it contains PlaceholderContext it is replaced with the raw
// joined context string; else the wrapped block is appended after the
// override text. Retrieved context is therefore never silently dropped,
// even under full prompt customization.
const (
	PlaceholderContextBlock = "{{data_context_block}}"
	PlaceholderContext      = "{{data_context}}"
)

const (
	contextOpenTag  = "<residence_data>"
	contextCloseTag = "</residence_data>"

	// noDataSentence fills the context block when retrieval produced
	// nothing, pushing the model toward the fallback answer type instead
	// of leaving a malformed prompt.
	noDataSentence = "No verified content was found for this question."
)

// Engine renders complete system prompts from the rule-block registry.
//
// # Thread Safety
//
// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine with the default corporate and property
// rule blocks.
func NewEngine() *Engine {
	registry := NewRegistry()
	registerCorporateBlocks(registry)
	registerPropertyBlocks(registry)
	return &Engine{registry: registry}
}

// NewEngineWithRegistry creates an engine over a custom registry. Used by
// block-level tests and future prompt versions.
func NewEngineWithRegistry(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// FamilyFor returns the template family a scope selects.
func FamilyFor(scope datatypes.ScopeDescriptor) Family {
	if scope.IsCorporate {
		return FamilyCorporate
	}
	return FamilyProperty
}

// Render produces the system prompt for one request.
//
// # Description
//
// Selects the template family from the scope, wraps the merged context in
// a tagged section, and composes the family's rule blocks in registry
// order. When override is non-empty it replaces the fixed template and the
// context is injected per the placeholder protocol instead.
//
// The output preserves block formatting; apply Normalize before sending to
// the completion collaborator.
//
// # Inputs
//
//   - ctx: Context for tracing.
//   - scope: Immutable request scope; selects family, language, and the
//     property data injected into the per-residence template.
//   - mergedContext: The raw joined context string from retrieval. May be
//     empty; an empty context still renders a complete, well-formed prompt.
//   - override: Optional caller-supplied template.
//
// # Outputs
//
//   - string: The rendered prompt.
//   - error: Non-nil only when the registry has no order for the family,
//     which indicates a wiring bug, not bad input.
func (e *Engine) Render(ctx context.Context, scope datatypes.ScopeDescriptor, mergedContext string, override string) (string, error) {
	_, span := tracer.Start(ctx, "Render")
	defer span.End()

	wrapped := WrapContext(mergedContext)
	span.SetAttributes(
		attribute.String("prompt.family", string(FamilyFor(scope))),
		attribute.Bool("prompt.override", override != ""),
		attribute.Int("prompt.context_bytes", len(mergedContext)),
	)

	if override != "" {
		return injectContext(override, wrapped, mergedContext), nil
	}

	in := RenderInput{
		Scope:        scope,
		ContextBlock: wrapped,
		RawContext:   mergedContext,
		Links:        LinksForLanguage(scope.Language),
	}
	return e.registry.Compose(FamilyFor(scope), in)
}

// WrapContext wraps the raw joined context in the tagged section injected
// into templates. Empty context yields a block carrying the no-data
// sentence.
func WrapContext(mergedContext string) string {
	body := mergedContext
	if strings.TrimSpace(body) == "" {
		body = noDataSentence
	}
	return contextOpenTag + "\n" + body + "\n" + contextCloseTag
}

// injectContext applies the override placeholder protocol.
func injectContext(override, wrapped, raw string) string {
	if strings.Contains(override, PlaceholderContextBlock) {
		return strings.ReplaceAll(override, PlaceholderContextBlock, wrapped)
	}
	if strings.Contains(override, PlaceholderContext) {
		return strings.ReplaceAll(override, PlaceholderContext, raw)
	}
	return override + "\n\n" + wrapped
}

// Normalize collapses all whitespace runs to single spaces. Applied to the
// rendered prompt immediately before it is sent to the completion
// collaborator, as token-budget hygiene.
func Normalize(rendered string) string {
	return strings.Join(strings.Fields(rendered), " ")
}
