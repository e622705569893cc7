// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/prompt"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/retrieval"
	"github.com/AleutianAI/ResidenceConcierge/services/llm"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLMClient is a minimal mock for llm.LLMClient
type mockLLMClient struct{}

func (m *mockLLMClient) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	return "mock response", nil
}

func (m *mockLLMClient) Chat(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
	return "mock chat response", nil
}

func (m *mockLLMClient) ChatStream(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams, callback llm.StreamCallback) error {
	_ = callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: "mock stream"})
	return nil
}

// emptyQuerier returns no passages for every source call.
type emptyQuerier struct{}

func (emptyQuerier) VectorSearch(_ context.Context, _ []float32, _, _ string, _ int) ([]datatypes.SearchResult, error) {
	return nil, nil
}

func (emptyQuerier) KeywordSearch(_ context.Context, _, _, _ string, _ int) ([]datatypes.SearchResult, error) {
	return nil, nil
}

type zeroEmbedder struct{}

func (zeroEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0}, nil
}

func setupTestRouter() *gin.Engine {
	router := gin.New()
	retriever := retrieval.NewClientWithQuerier(emptyQuerier{}, zeroEmbedder{})
	SetupRoutes(router, &mockLLMClient{}, retriever, prompt.NewEngine(), nil)
	return router
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_CoreRoutesRegistered(t *testing.T) {
	router := setupTestRouter()

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/chat"},
		{"POST", "/v1/prompt/preview"},
	}

	routes := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range routes {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s not found", expected.method, expected.path)
		}
	}
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := setupTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := setupTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	// Prometheus metrics endpoint should return 200
	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType == "" {
		t.Error("Metrics endpoint should return Content-Type header")
	}
}

// ============================================================================
// Nil Safety Tests
// ============================================================================

func TestSetupRoutes_NilLLMClient_Panics(t *testing.T) {
	router := gin.New()
	retriever := retrieval.NewClientWithQuerier(emptyQuerier{}, zeroEmbedder{})

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected SetupRoutes to panic with nil LLM client")
		}
	}()

	SetupRoutes(router, nil, retriever, prompt.NewEngine(), nil)
}

func TestSetupRoutes_NilRetriever_Panics(t *testing.T) {
	router := gin.New()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected SetupRoutes to panic with nil retriever")
		}
	}()

	SetupRoutes(router, &mockLLMClient{}, nil, prompt.NewEngine(), nil)
}
