// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

// newMockOpenAIServer creates a test server speaking the chat-completions
// SSE wire format. Caller must Close() the returned server.
func newMockOpenAIServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

// newTestOpenAIClient creates an OpenAIClient pointing at a test server,
// bypassing environment variable configuration.
func newTestOpenAIClient(baseURL, model string) *OpenAIClient {
	config := openai.DefaultConfig("test-key")
	config.BaseURL = baseURL + "/v1"
	return NewOpenAIClientWithConfig(config, model)
}

func writeStreamChunk(w http.ResponseWriter, content string) {
	fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", content)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func writeStreamDone(w http.ResponseWriter) {
	fmt.Fprint(w, "data: [DONE]\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestChatStream_BasicSuccess(t *testing.T) {
	t.Parallel()

	server := newMockOpenAIServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected path /v1/chat/completions, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		writeStreamChunk(w, "Hello")
		writeStreamChunk(w, " there")
		writeStreamChunk(w, "!")
		writeStreamDone(w)
	})
	defer server.Close()

	client := newTestOpenAIClient(server.URL, "test-model")

	var response strings.Builder
	var doneSeen bool
	err := client.ChatStream(context.Background(), []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "Hi"},
	}, GenerationParams{}, func(event StreamEvent) error {
		switch event.Type {
		case StreamEventToken:
			response.WriteString(event.Content)
		case StreamEventDone:
			doneSeen = true
		}
		return nil
	})

	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}
	if response.String() != "Hello there!" {
		t.Errorf("Expected 'Hello there!', got '%s'", response.String())
	}
	if !doneSeen {
		t.Error("Expected a done event after the final delta")
	}
}

func TestChatStream_DeltaOrderPreserved(t *testing.T) {
	t.Parallel()

	deltas := []string{"one", " two", " three", " four", " five"}
	server := newMockOpenAIServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			writeStreamChunk(w, d)
		}
		writeStreamDone(w)
	})
	defer server.Close()

	client := newTestOpenAIClient(server.URL, "test-model")

	var received []string
	err := client.ChatStream(context.Background(), []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "count"},
	}, GenerationParams{}, func(event StreamEvent) error {
		if event.Type == StreamEventToken {
			received = append(received, event.Content)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}
	if len(received) != len(deltas) {
		t.Fatalf("Expected %d deltas, got %d", len(deltas), len(received))
	}
	for i, d := range deltas {
		if received[i] != d {
			t.Errorf("Delta %d: expected %q, got %q", i, d, received[i])
		}
	}
}

func TestChatStream_ServerError(t *testing.T) {
	t.Parallel()

	server := newMockOpenAIServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, `{"error":{"message":"internal server error"}}`)
	})
	defer server.Close()

	client := newTestOpenAIClient(server.URL, "test-model")

	var errorEvent bool
	err := client.ChatStream(context.Background(), []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "Hi"},
	}, GenerationParams{}, func(event StreamEvent) error {
		if event.Type == StreamEventError {
			errorEvent = true
		}
		return nil
	})

	if err == nil {
		t.Fatal("ChatStream should return error for server error")
	}
	if !errorEvent {
		t.Error("Error event should be emitted before returning")
	}
}

func TestChatStream_CallbackAbort(t *testing.T) {
	t.Parallel()

	server := newMockOpenAIServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeStreamChunk(w, "First")
		writeStreamChunk(w, "Second")
		writeStreamChunk(w, "Third")
		writeStreamDone(w)
	})
	defer server.Close()

	client := newTestOpenAIClient(server.URL, "test-model")

	tokenCount := 0
	abortErr := errors.New("client went away")

	err := client.ChatStream(context.Background(), []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "Hi"},
	}, GenerationParams{}, func(event StreamEvent) error {
		if event.Type == StreamEventToken {
			tokenCount++
			if tokenCount >= 2 {
				return abortErr
			}
		}
		return nil
	})

	if err == nil {
		t.Fatal("ChatStream should return error when callback aborts")
	}
	if !errors.Is(err, abortErr) {
		t.Errorf("Error should wrap the callback error, got: %v", err)
	}
	if tokenCount != 2 {
		t.Errorf("Expected 2 tokens before abort, got %d", tokenCount)
	}
}

func TestChatStream_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := newMockOpenAIServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeStreamChunk(w, "First")
		time.Sleep(500 * time.Millisecond)
		writeStreamChunk(w, "Second")
		writeStreamDone(w)
	})
	defer server.Close()

	client := newTestOpenAIClient(server.URL, "test-model")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := client.ChatStream(ctx, []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "Hi"},
	}, GenerationParams{}, func(event StreamEvent) error {
		return nil
	})

	if err == nil {
		t.Fatal("ChatStream should return error on context cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got: %v", err)
	}
}

func TestChat_RolePassthrough(t *testing.T) {
	t.Parallel()

	var sawDeveloperRole bool
	server := newMockOpenAIServer(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"role":"developer"`) {
			sawDeveloperRole = true
		}
		fmt.Fprintln(w, `{"id":"c1","object":"chat.completion","created":1,"model":"test","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	})
	defer server.Close()

	client := newTestOpenAIClient(server.URL, "test-model")

	answer, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: datatypes.RoleDeveloper, Content: "You are a concierge."},
		{Role: datatypes.RoleUser, Content: "Hi"},
	}, GenerationParams{})

	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if answer != "ok" {
		t.Errorf("Expected answer 'ok', got '%s'", answer)
	}
	if !sawDeveloperRole {
		t.Error("Developer role should pass through to the API request")
	}
}
