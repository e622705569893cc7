// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// =============================================================================
// Retrieval Result Types
// =============================================================================

// SourceType identifies which search mode produced a result.
type SourceType string

const (
	// SourceVector marks results from vector similarity search.
	SourceVector SourceType = "vector"

	// SourceKeyword marks results from keyword/full-text search.
	SourceKeyword SourceType = "keyword"

	// SourceHybrid marks results from a combined query mode.
	SourceHybrid SourceType = "hybrid"
)

// SearchResult is one retrieved passage, normalized across search modes.
//
// # Description
//
// Rank is 1-based and source-local: position within the result's own
// source list. Ranks and scores are NOT comparable across source types,
// which is why the merger preserves first-seen order instead of
// re-sorting.
//
// # Fields
//
//   - Content: The passage text injected into the prompt.
//   - SectionID: Optional document section identifier.
//   - SourceType: vector, keyword, or hybrid.
//   - Rank: 1-based position within this result's own source list.
//   - Score: Raw relevance score from the search engine; nil when the
//     engine reports none.
type SearchResult struct {
	Content    string     `json:"content"`
	SectionID  *int       `json:"section_id,omitempty"`
	SourceType SourceType `json:"source_type"`
	Rank       int        `json:"rank"`
	Score      *float64   `json:"score,omitempty"`
}
