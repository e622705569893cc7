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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// EmbeddingProvider computes query vectors for the vector retrieval calls.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// maxEmbedBytes bounds the text sent to the embedding service. Longer
// queries are truncated; the tail adds no retrieval signal.
const maxEmbedBytes = 2048

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
	Dim    int       `json:"dim"`
}

// HTTPEmbedder calls the embedding sidecar configured via
// EMBEDDING_SERVICE_URL.
//
// Safe for concurrent use; the underlying http.Client pools connections.
type HTTPEmbedder struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPEmbedder creates an embedder from EMBEDDING_SERVICE_URL.
func NewHTTPEmbedder() (*HTTPEmbedder, error) {
	baseURL := os.Getenv("EMBEDDING_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("EMBEDDING_SERVICE_URL environment variable not set")
	}
	return &HTTPEmbedder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}, nil
}

// NewHTTPEmbedderWithURL creates an embedder against an explicit endpoint.
// Used by tests.
func NewHTTPEmbedderWithURL(baseURL string) *HTTPEmbedder {
	return &HTTPEmbedder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// Embed computes a vector for text via the embedding service.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedBytes {
		text = text[:maxEmbedBytes]
	}

	reqBody, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed embedResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(parsed.Vector) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty vector")
	}
	return parsed.Vector, nil
}

var _ EmbeddingProvider = (*HTTPEmbedder)(nil)
