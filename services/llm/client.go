package llm

import (
	"context"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamEventType identifies the kind of event delivered to a StreamCallback.
type StreamEventType string

const (
	// StreamEventToken carries an incremental text delta.
	StreamEventToken StreamEventType = "token"

	// StreamEventDone signals normal stream completion.
	StreamEventDone StreamEventType = "done"

	// StreamEventError carries a terminal upstream error.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one event emitted during a streaming completion.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StreamCallback receives stream events as they arrive. Returning a non-nil
// error aborts the stream; the client releases the upstream connection and
// propagates the error.
type StreamCallback func(event StreamEvent) error

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error
}
