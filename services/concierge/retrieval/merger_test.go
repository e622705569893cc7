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

import (
	"testing"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

func result(content string, sourceType datatypes.SourceType, rank int) datatypes.SearchResult {
	return datatypes.SearchResult{Content: content, SourceType: sourceType, Rank: rank}
}

func TestMerge_DedupByExactContent(t *testing.T) {
	t.Parallel()

	vectorScope := []datatypes.SearchResult{
		result("suite pricing starts at $3000", datatypes.SourceVector, 1),
		result("dining room hours", datatypes.SourceVector, 2),
	}
	keywordScope := []datatypes.SearchResult{
		result("suite pricing starts at $3000", datatypes.SourceKeyword, 1),
		result("pet policy", datatypes.SourceKeyword, 2),
	}

	merged := Merge(vectorScope, keywordScope)

	if len(merged) != 3 {
		t.Fatalf("Expected 3 unique entries, got %d", len(merged))
	}

	seen := make(map[string]int)
	for _, m := range merged {
		seen[m.Content]++
	}
	for content, count := range seen {
		if count > 1 {
			t.Errorf("Content %q appears %d times, duplicates must be dropped", content, count)
		}
	}

	// First occurrence wins: the surviving entry keeps vector metadata.
	if merged[0].SourceType != datatypes.SourceVector || merged[0].Rank != 1 {
		t.Errorf("Duplicate survivor should keep first-seen metadata, got %+v", merged[0])
	}
}

func TestMerge_FirstSeenOrderAcrossSources(t *testing.T) {
	t.Parallel()

	merged := Merge(
		[]datatypes.SearchResult{result("a", datatypes.SourceVector, 1)},
		[]datatypes.SearchResult{result("b", datatypes.SourceVector, 1)},
		[]datatypes.SearchResult{result("c", datatypes.SourceKeyword, 1), result("a", datatypes.SourceKeyword, 2)},
		[]datatypes.SearchResult{result("d", datatypes.SourceKeyword, 1)},
	)

	want := []string{"a", "b", "c", "d"}
	if len(merged) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(merged))
	}
	for i, w := range want {
		if merged[i].Content != w {
			t.Errorf("Position %d: expected %q, got %q", i, w, merged[i].Content)
		}
	}
}

func TestMerge_NeverResortsByScore(t *testing.T) {
	t.Parallel()

	low := 0.1
	high := 0.9
	merged := Merge(
		[]datatypes.SearchResult{
			{Content: "low score first", SourceType: datatypes.SourceVector, Rank: 1, Score: &low},
		},
		[]datatypes.SearchResult{
			{Content: "high score second", SourceType: datatypes.SourceKeyword, Rank: 1, Score: &high},
		},
	)

	if merged[0].Content != "low score first" {
		t.Error("Merge must preserve first-seen order, not re-sort by score")
	}
}

func TestMerge_DropsEmptyContent(t *testing.T) {
	t.Parallel()

	merged := Merge([]datatypes.SearchResult{
		result("", datatypes.SourceVector, 1),
		result("kept", datatypes.SourceVector, 2),
	})

	if len(merged) != 1 || merged[0].Content != "kept" {
		t.Errorf("Empty content should be filtered, got %+v", merged)
	}
}

func TestMerge_OutputLengthBounded(t *testing.T) {
	t.Parallel()

	a := []datatypes.SearchResult{result("x", datatypes.SourceVector, 1), result("y", datatypes.SourceVector, 2)}
	b := []datatypes.SearchResult{result("x", datatypes.SourceKeyword, 1), result("z", datatypes.SourceKeyword, 2)}

	merged := Merge(a, b)
	if len(merged) > len(a)+len(b) {
		t.Errorf("Output length %d exceeds sum of inputs %d", len(merged), len(a)+len(b))
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := Merge(); len(got) != 0 {
		t.Errorf("Merge with no sources should be empty, got %d entries", len(got))
	}
	if got := Merge(nil, nil, nil, nil); len(got) != 0 {
		t.Errorf("Merge of nil sources should be empty, got %d entries", len(got))
	}
}

func TestJoinContext(t *testing.T) {
	t.Parallel()

	joined := JoinContext([]datatypes.SearchResult{
		result("first passage", datatypes.SourceVector, 1),
		result("second passage", datatypes.SourceKeyword, 1),
	})

	want := "first passage\n---\nsecond passage"
	if joined != want {
		t.Errorf("JoinContext = %q, want %q", joined, want)
	}

	if JoinContext(nil) != "" {
		t.Error("JoinContext of empty input should be empty string")
	}
}
