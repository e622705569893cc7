// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompt renders the rule-governed system prompts for the chat
// pipeline.
//
// # Description
//
// Prompts are composed from immutable rule blocks held in a registry keyed
// by {family, block id}. Each family declares an ordered block list;
// composition is an ordered lookup, not string concatenation baked into
// source. Individual blocks are unit-testable and the registry leaves room
// for future prompt versions without touching the engine.
package prompt

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

// Family selects a template family.
type Family string

const (
	// FamilyCorporate is the corporate-site rule set.
	FamilyCorporate Family = "corporate"

	// FamilyProperty is the single-residence rule set.
	FamilyProperty Family = "property"
)

// BlockID names one rule block within a family.
type BlockID string

const (
	BlockRole             BlockID = "role"
	BlockContext          BlockID = "context"
	BlockTask             BlockID = "task"
	BlockAbsoluteRules    BlockID = "absolute_rules"
	BlockPropertyData     BlockID = "property_data"
	BlockAnswerTypes      BlockID = "answer_types"
	BlockFindResidence    BlockID = "find_residence"
	BlockRoutingOrder     BlockID = "routing_order"
	BlockForbiddenWording BlockID = "forbidden_wording"
	BlockFollowUpPolicy   BlockID = "follow_up_policy"
	BlockLanguagePolicy   BlockID = "language_policy"
	BlockOutputFormat     BlockID = "output_format"
)

// RenderInput carries the per-request values a block may interpolate.
//
// Blocks must treat the input as read-only.
type RenderInput struct {
	Scope        datatypes.ScopeDescriptor
	ContextBlock string
	RawContext   string
	Links        LinkSet
}

// BlockRenderer produces the text of one rule block for one request.
type BlockRenderer func(in RenderInput) string

type blockKey struct {
	family Family
	id     BlockID
}

// Registry holds rule blocks keyed by {family, block id} plus the ordered
// composition list per family.
//
// # Thread Safety
//
// Registries are frozen after construction and safe for concurrent reads.
// All mutation happens before the registry is handed to an Engine.
type Registry struct {
	blocks map[blockKey]BlockRenderer
	order  map[Family][]BlockID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		blocks: make(map[blockKey]BlockRenderer),
		order:  make(map[Family][]BlockID),
	}
}

// MustRegister adds a block renderer. Panics on duplicate registration;
// block sets are wired at startup where a panic is a programming error.
func (r *Registry) MustRegister(family Family, id BlockID, render BlockRenderer) {
	key := blockKey{family: family, id: id}
	if _, exists := r.blocks[key]; exists {
		panic(fmt.Sprintf("prompt block already registered: %s/%s", family, id))
	}
	if render == nil {
		panic(fmt.Sprintf("nil renderer for prompt block: %s/%s", family, id))
	}
	r.blocks[key] = render
}

// SetOrder declares the composition order for a family. Every id must have
// been registered.
func (r *Registry) SetOrder(family Family, ids ...BlockID) {
	for _, id := range ids {
		if _, ok := r.blocks[blockKey{family: family, id: id}]; !ok {
			panic(fmt.Sprintf("order references unregistered block: %s/%s", family, id))
		}
	}
	r.order[family] = ids
}

// Block returns the renderer for one block, for block-level tests.
func (r *Registry) Block(family Family, id BlockID) (BlockRenderer, bool) {
	render, ok := r.blocks[blockKey{family: family, id: id}]
	return render, ok
}

// Compose renders a family's blocks in declared order, joined by blank
// lines.
func (r *Registry) Compose(family Family, in RenderInput) (string, error) {
	ids, ok := r.order[family]
	if !ok || len(ids) == 0 {
		return "", fmt.Errorf("no block order declared for family %q", family)
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		render := r.blocks[blockKey{family: family, id: id}]
		if text := render(in); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
