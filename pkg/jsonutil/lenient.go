// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jsonutil provides tolerant JSON decoding for LLM text output.
//
// # Description
//
// Model responses that are supposed to be JSON frequently arrive wrapped in
// markdown fences, prose preambles, or trailing commentary. ParseLenient
// recovers the embedded object instead of failing the whole request.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseLenient unmarshals raw into v, tolerating non-JSON wrapping.
//
// # Description
//
// Attempts a strict json.Unmarshal first. On failure it extracts the
// substring from the first '{' to the last '}' and retries once. This
// recovers the common failure modes (markdown code fences, "Here is the
// JSON:" preambles) without attempting general JSON repair.
//
// # Inputs
//
//   - raw: The raw model output.
//   - v: Destination for json.Unmarshal.
//
// # Outputs
//
//   - error: Non-nil if no parseable object could be recovered.
//
// # Limitations
//
//   - Only objects are recovered; a bare top-level array is not extracted.
//   - Multiple concatenated objects parse as the outermost brace span and
//     will fail; that is intentional, such output is genuinely malformed.
func ParseLenient(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("lenient parse: empty input")
	}

	strictErr := json.Unmarshal([]byte(trimmed), v)
	if strictErr == nil {
		return nil
	}

	extracted, ok := ExtractObject(trimmed)
	if !ok {
		return fmt.Errorf("lenient parse: no JSON object found: %w", strictErr)
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("lenient parse: extracted object invalid: %w", err)
	}
	return nil
}

// ExtractObject returns the substring spanning the outermost '{'..'}' pair.
// Returns false when the input contains no such span.
func ExtractObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
