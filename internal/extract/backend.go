// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/pkg/types"
)

// Backend abstracts the text-generation service so tests can supply a mock.
// Generate returns the raw response text for one prompt. Implementations
// wrap failure.ErrContextExhausted when the service stops at its token
// limit and failure.ErrMalformedOutput when the response carries no text.
type Backend interface {
	Name() string
	Generate(ctx context.Context, p Prompt) ([]byte, error)
}

// Retriever supplies read-only context for a window. No implementation is
// bundled; callers plug in their own index.
type Retriever interface {
	Retrieve(ctx context.Context, in types.ExtractionWindowInput) ([]types.RetrievedContext, error)
}

// Sink receives the outcome of every window.
type Sink interface {
	SaveWindow(ctx context.Context, w types.ExtractionWindow, res types.ValidationResult) error
	RecordFailures(ctx context.Context, errs []*failure.ExtractionError) error
}

// NewBackend selects a backend by cfg.Provider.
func NewBackend(cfg types.AIConfig, client *http.Client) (Backend, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch strings.ToLower(cfg.Provider) {
	case "claude", "anthropic", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude backend: API key is required (.secrets/anthropic-api-key or ARGMAP_AI_API_KEY)")
		}
		return &ClaudeBackend{
			APIKey:           cfg.APIKey,
			Model:            cfg.Model,
			MaxTokens:        cfg.MaxTokens,
			RateLimitRetries: cfg.RateLimitRetries,
			BaseURL:          cfg.BaseURL,
			Client:           client,
		}, nil
	case "openai":
		return NewOpenAIBackend(cfg, client)
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: claude, openai)", cfg.Provider)
	}
}
