// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import "github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"

// ContextDelimiter separates passages in the joined context string.
const ContextDelimiter = "\n---\n"

// Merge flattens the source lists in the order given, drops empty content,
// and deduplicates by exact content string.
//
// # Description
//
// The first occurrence of a content string wins; later duplicates are
// dropped entirely, even when they come from a different source, and their
// metadata is never merged into the survivor. Output order is first-seen
// order. Results are never re-sorted by score: ranks and scores are
// source-local and not comparable across source types.
//
// # Inputs
//
//   - sources: Result lists in fixed priority order (vector-scope,
//     vector-corporate, keyword-scope, keyword-corporate).
//
// # Outputs
//
//   - []datatypes.SearchResult: Deduplicated results, first-seen order.
//     Empty output is valid and renders as a no-data context block.
func Merge(sources ...[]datatypes.SearchResult) []datatypes.SearchResult {
	total := 0
	for _, source := range sources {
		total += len(source)
	}

	seen := make(map[string]bool, total)
	merged := make([]datatypes.SearchResult, 0, total)

	for _, source := range sources {
		for _, result := range source {
			if result.Content == "" {
				continue
			}
			if seen[result.Content] {
				continue
			}
			seen[result.Content] = true
			merged = append(merged, result)
		}
	}
	return merged
}

// JoinContext joins merged result contents into the single raw context
// string injected into prompts.
func JoinContext(results []datatypes.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	size := len(ContextDelimiter) * (len(results) - 1)
	for _, r := range results {
		size += len(r.Content)
	}

	joined := make([]byte, 0, size)
	for i, r := range results {
		if i > 0 {
			joined = append(joined, ContextDelimiter...)
		}
		joined = append(joined, r.Content...)
	}
	return string(joined)
}
