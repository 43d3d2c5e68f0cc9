package types

import "time"

// WindowConfig controls how paragraphs are grouped into extraction windows.
type WindowConfig struct {
	// MinParagraphs is the smallest standalone window (default 2, >= 1).
	MinParagraphs int `json:"min_paragraphs" yaml:"min_paragraphs" mapstructure:"min_paragraphs"`

	// MaxParagraphs is the largest window (default 6, >= MinParagraphs).
	MaxParagraphs int `json:"max_paragraphs" yaml:"max_paragraphs" mapstructure:"max_paragraphs"`

	// Overlap is how many paragraphs consecutive windows share (default 1, < MaxParagraphs).
	Overlap int `json:"overlap" yaml:"overlap" mapstructure:"overlap"`
}

// RetryConfig holds the per-kind retry table and backoff bounds. Keys of
// MaxRetries are error kind names such as "GROUNDING_FAILURE"; kinds not
// listed keep their defaults.
type RetryConfig struct {
	MaxRetries  map[string]int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	BaseBackoff time.Duration  `json:"base_backoff" yaml:"base_backoff" mapstructure:"base_backoff"`
	MaxBackoff  time.Duration  `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`
}

// AIConfig holds settings for the generation backend.
type AIConfig struct {
	// Provider selects the backend: "claude" or "openai".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier passed to the provider.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates against the provider. Prefer .secrets/ or env.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens bounds the generated response.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds a single generation call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RateLimitRetries is the number of HTTP 429 retries per call.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// ExtractionConfig holds orchestrator settings.
type ExtractionConfig struct {
	// Concurrency is the number of windows processed at once (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// RequestsPerSecond throttles generation calls; 0 disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// Burst is the limiter burst size (default 1).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// CacheTTL keeps generation responses for identical prompts; 0 disables caching.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// CycleThreshold is how many consecutive attempts with an identical
	// failure signature escalate to VALIDATION_CYCLE (default 2).
	CycleThreshold int `json:"cycle_threshold" yaml:"cycle_threshold" mapstructure:"cycle_threshold"`

	// StrictOvergeneration turns overgeneration warnings into retryable failures.
	StrictOvergeneration bool `json:"strict_overgeneration" yaml:"strict_overgeneration" mapstructure:"strict_overgeneration"`
}

// StoreConfig holds graph store settings.
type StoreConfig struct {
	// Dir contains the SQLite database and exports.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig selects the logger mode: "dev" or "prod".
type LogConfig struct {
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`
}

// PipelineConfig groups all configuration for the pipeline.
type PipelineConfig struct {
	Window     WindowConfig     `json:"window" yaml:"window" mapstructure:"window"`
	Retry      RetryConfig      `json:"retry" yaml:"retry" mapstructure:"retry"`
	AI         AIConfig         `json:"ai" yaml:"ai" mapstructure:"ai"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultWindowConfig returns min 2, max 6, overlap 1.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{MinParagraphs: 2, MaxParagraphs: 6, Overlap: 1}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		Window: DefaultWindowConfig(),
		Retry: RetryConfig{
			MaxRetries: map[string]int{
				"GROUNDING_FAILURE":         3,
				"SCHEMA_VIOLATION":          3,
				"CONTEXT_EXHAUSTION":        2,
				"OVERGENERATION":            3,
				"ENTITY_RESOLUTION_FAILURE": 1,
				"RETRIEVAL_POISONING_RISK":  2,
				"VALIDATION_CYCLE":          0,
			},
			BaseBackoff: time.Second,
			MaxBackoff:  60 * time.Second,
		},
		AI: AIConfig{
			Provider:         "claude",
			Model:            "claude-sonnet-4-5-20250929",
			MaxTokens:        8192,
			Timeout:          120 * time.Second,
			RateLimitRetries: 5,
		},
		Extraction: ExtractionConfig{
			Concurrency:       1,
			RequestsPerSecond: 1,
			Burst:             1,
			CacheTTL:          time.Hour,
			CycleThreshold:    2,
		},
		Store: StoreConfig{Dir: "graph"},
		Log:   LogConfig{Mode: "dev"},
	}
}
