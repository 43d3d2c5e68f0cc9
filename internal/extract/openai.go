// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/pkg/types"
)

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint.
type OpenAIBackend struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIBackend builds a backend from cfg. BaseURL points it at any
// OpenAI-compatible server.
func NewOpenAIBackend(cfg types.AIConfig, httpClient *http.Client) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai backend: API key is required (.secrets/openai-api-key or ARGMAP_AI_API_KEY)")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "claude") {
		model = openai.GPT4oMini
	}
	return &OpenAIBackend{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (b *OpenAIBackend) Name() string { return "openai" }

// Generate requests a JSON-object completion for p.
func (b *OpenAIBackend) Generate(ctx context.Context, p Prompt) ([]byte, error) {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		MaxTokens:      b.maxTokens,
		Temperature:    0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenAI response: %w", failure.ErrMalformedOutput)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return nil, fmt.Errorf("OpenAI stopped at the token limit: %w", failure.ErrContextExhausted)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty OpenAI response: %w", failure.ErrMalformedOutput)
	}
	return []byte(content), nil
}
