package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/ResidenceConcierge/pkg/jsonutil"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL") // e.g., "gpt-4o"
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// NewOpenAIClientWithConfig creates a client against a custom endpoint.
// Used by tests to point at a mock server.
func NewOpenAIClientWithConfig(config openai.ClientConfig, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Generate implements the LLMClient interface
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return o.Chat(ctx, []datatypes.Message{
		{Role: datatypes.RoleUser, Content: prompt},
	}, params)
}

// Chat sends role-tagged turns and returns the full completion text.
//
// Roles pass through unchanged; "developer" is the instruction turn the
// concierge prepends, and the OpenAI API accepts it natively.
func (o *OpenAIClient) Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error) {
	slog.Debug("Generating chat completion via OpenAI", "model", o.model, "turns", len(messages))

	req := o.buildRequest(messages, params)
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices or empty content")
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// ChatStream streams a completion, invoking callback for each text delta.
//
// The upstream connection is released when the context is canceled, when
// the callback returns an error, or when the stream finishes. Deltas are
// forwarded exactly as received.
func (o *OpenAIClient) ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error {
	req := o.buildRequest(messages, params)
	req.Stream = true

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		slog.Error("OpenAI stream creation failed", "error", err)
		_ = callback(StreamEvent{Type: StreamEventError, Error: "completion request failed"})
		return fmt.Errorf("OpenAI stream creation failed: %w", err)
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return callback(StreamEvent{Type: StreamEventDone})
		}
		if recvErr != nil {
			// Context cancellation surfaces through Recv once the
			// transport notices; prefer the ctx error for callers.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("OpenAI stream read failed", "error", recvErr)
			_ = callback(StreamEvent{Type: StreamEventError, Error: "completion stream interrupted"})
			return fmt.Errorf("OpenAI stream read failed: %w", recvErr)
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if cbErr := callback(StreamEvent{Type: StreamEventToken, Content: delta}); cbErr != nil {
			return fmt.Errorf("stream callback aborted: %w", cbErr)
		}
	}
}

// GenerateStructured requests a schema-constrained completion and parses it
// leniently into v.
//
// Used by the analytics callers, not the chat path. Model output that
// arrives wrapped in fences or prose is still recovered via
// jsonutil.ParseLenient.
func (o *OpenAIClient) GenerateStructured(ctx context.Context, prompt string, schemaName string, schema json.RawMessage, params GenerationParams, v any) error {
	req := o.buildRequest([]datatypes.Message{
		{Role: datatypes.RoleUser, Content: prompt},
	}, params)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schemaName,
			Schema: schema,
			Strict: true,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("OpenAI structured call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("OpenAI returned no choices")
	}
	if err := jsonutil.ParseLenient(resp.Choices[0].Message.Content, v); err != nil {
		return fmt.Errorf("structured output parse failed: %w", err)
	}
	return nil
}

func (o *OpenAIClient) buildRequest(messages []datatypes.Message, params GenerationParams) openai.ChatCompletionRequest {
	oaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		oaiMessages = append(oaiMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: oaiMessages,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	return req
}

var _ LLMClient = (*OpenAIClient)(nil)
