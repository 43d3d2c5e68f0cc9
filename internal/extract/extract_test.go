package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/internal/httputil"
	"github.com/pdiddy/argmap/internal/window"
	"github.com/pdiddy/argmap/pkg/types"
)

func TestMain(m *testing.M) {
	// Avoid real sleeps in HTTP retry tests.
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// --- fakes ---

// fakeBackend answers every Generate call through fn and records prompts.
type fakeBackend struct {
	mu      sync.Mutex
	fn      func(call int, p Prompt) ([]byte, error)
	prompts []Prompt
	delay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Generate(_ context.Context, p Prompt) ([]byte, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		cur := b.maxInFlight.Load()
		if n <= cur || b.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if b.delay > 0 {
		time.Sleep(b.delay)
	}

	b.mu.Lock()
	call := len(b.prompts)
	b.prompts = append(b.prompts, p)
	b.mu.Unlock()
	return b.fn(call, p)
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

func (b *fakeBackend) prompt(i int) Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prompts[i]
}

// script returns responses in order, repeating the last one.
func script(responses ...[]byte) func(int, Prompt) ([]byte, error) {
	return func(call int, _ Prompt) ([]byte, error) {
		if call >= len(responses) {
			call = len(responses) - 1
		}
		return responses[call], nil
	}
}

type recordingSink struct {
	mu       sync.Mutex
	saved    []types.ExtractionWindow
	failures [][]*failure.ExtractionError
}

func (s *recordingSink) SaveWindow(_ context.Context, w types.ExtractionWindow, _ types.ValidationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, w)
	return nil
}

func (s *recordingSink) RecordFailures(_ context.Context, errs []*failure.ExtractionError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs)
	return nil
}

type staticRetriever struct {
	rc []types.RetrievedContext
}

func (r staticRetriever) Retrieve(context.Context, types.ExtractionWindowInput) ([]types.RetrievedContext, error) {
	return r.rc, nil
}

// --- helpers ---

func fastPolicy() failure.RetryPolicy {
	p := failure.DefaultPolicy()
	p.BaseBackoff = time.Millisecond
	p.MaxBackoff = 5 * time.Millisecond
	return p
}

func newTestExtractor(t *testing.T, b Backend, sink Sink, opts Options) *Extractor {
	t.Helper()
	builder, err := window.New(types.DefaultWindowConfig())
	require.NoError(t, err)
	if opts.Policy.MaxRetries == nil {
		opts.Policy = fastPolicy()
	}
	return New(b, builder, sink, opts, nil)
}

func makeDoc(id string, n int) types.Document {
	doc := types.Document{DocID: id, EditionID: "ed-1"}
	for i := range n {
		doc.Paragraphs = append(doc.Paragraphs, types.Paragraph{
			ID:       fmt.Sprintf("%s-p%d", id, i),
			Text:     fmt.Sprintf("Paragraph %d. However, value is not price.", i),
			Position: i,
		})
	}
	return doc
}

func goodFragment() types.Fragment {
	return types.Fragment{
		Locutions: []types.Locution{
			{ID: "L1", Text: "value is not price", ParagraphID: "p0"},
			{ID: "L2", Text: "However", ParagraphID: "p0"},
		},
		Transitions: []types.Transition{{Marker: "however", Hint: types.HintContrast}},
		Propositions: []types.Proposition{
			{ID: "P1", SurfaceLocIDs: []string{"L1"}, TextSummary: "Value differs from price", Confidence: 0.7},
		},
		Illocutions: []types.IllocutionaryEdge{
			{ID: "I1", SourceLocID: "L1", TargetPropID: "P1", Force: types.ForceAssert},
		},
		Relations: []types.ArgumentRelation{},
	}
}

func encode(t *testing.T, f types.Fragment) []byte {
	t.Helper()
	raw, err := json.Marshal(f)
	require.NoError(t, err)
	return raw
}

func goodJSON(t *testing.T) []byte { return encode(t, goodFragment()) }

// ungrounded cites a locution that does not exist.
func ungrounded(t *testing.T, locID string) []byte {
	f := goodFragment()
	f.Propositions[0].SurfaceLocIDs = []string{locID}
	return encode(t, f)
}

func singleWindow(t *testing.T) types.ExtractionWindowInput {
	t.Helper()
	builder, err := window.New(types.DefaultWindowConfig())
	require.NoError(t, err)
	windows := builder.Build(makeDoc("capital", 4), nil)
	require.Len(t, windows, 1)
	return windows[0]
}

// --- ExtractWindow ---

func TestExtractWindow_AcceptsValidFragment(t *testing.T) {
	b := &fakeBackend{fn: script(goodJSON(t))}
	sink := &recordingSink{}
	e := newTestExtractor(t, b, sink, Options{})
	in := singleWindow(t)

	out, err := e.ExtractWindow(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, out.Errors)
	assert.True(t, out.Result.IsValid)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, in.WindowID, sink.saved[0].WindowID)
	assert.Equal(t, in.ParagraphIDs, sink.saved[0].ParagraphIDs)
	assert.InDelta(t, 0.7, sink.saved[0].Confidence, 1e-9)
	assert.Empty(t, sink.failures)
}

func TestExtractWindow_BackoffFollowsPerKindRetryCount(t *testing.T) {
	tests := []struct {
		name      string
		responses func(t *testing.T) [][]byte
		want      []time.Duration
	}{
		{
			name: "different kinds each start at zero",
			responses: func(t *testing.T) [][]byte {
				return [][]byte{[]byte("not json"), ungrounded(t, "L90"), goodJSON(t)}
			},
			want: []time.Duration{time.Millisecond, time.Millisecond},
		},
		{
			name: "same kind doubles",
			responses: func(t *testing.T) [][]byte {
				return [][]byte{ungrounded(t, "L90"), ungrounded(t, "L91"), goodJSON(t)}
			},
			want: []time.Duration{time.Millisecond, 2 * time.Millisecond},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{fn: script(tt.responses(t)...)}
			e := newTestExtractor(t, b, &recordingSink{}, Options{})

			var waits []time.Duration
			e.after = func(d time.Duration) <-chan time.Time {
				waits = append(waits, d)
				ch := make(chan time.Time, 1)
				ch <- time.Now()
				return ch
			}

			out, err := e.ExtractWindow(context.Background(), singleWindow(t))
			require.NoError(t, err)
			assert.True(t, out.Accepted)
			assert.Equal(t, 3, out.Attempts)
			assert.Equal(t, tt.want, waits)
		})
	}
}

func TestExtractWindow_GroundingRetriedUntilLimit(t *testing.T) {
	b := &fakeBackend{fn: func(call int, _ Prompt) ([]byte, error) {
		// A different bad id each time so no cycle is detected.
		return ungrounded(t, fmt.Sprintf("L%d", 90+call)), nil
	}}
	sink := &recordingSink{}
	e := newTestExtractor(t, b, sink, Options{})

	out, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	assert.Equal(t, 4, out.Attempts, "one attempt plus three retries")
	require.Len(t, out.Errors, 1)
	assert.Equal(t, failure.GroundingFailure, out.Errors[0].Kind)
	assert.Equal(t, 3, out.Errors[0].RetryCount)
	assert.Empty(t, sink.saved)
	require.Len(t, sink.failures, 1)
	assert.Equal(t, out.Errors, sink.failures[0])
}

func TestExtractWindow_RetryPromptCarriesFeedback(t *testing.T) {
	b := &fakeBackend{fn: script(ungrounded(t, "L9"), goodJSON(t))}
	e := newTestExtractor(t, b, nil, Options{})

	out, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Equal(t, 2, out.Attempts)
	require.Equal(t, 2, b.calls())
	assert.NotContains(t, b.prompt(0).User, "PREVIOUS ATTEMPT REJECTED")
	retry := b.prompt(1).User
	assert.Contains(t, retry, "PREVIOUS ATTEMPT REJECTED")
	assert.Contains(t, retry, "GROUNDING_FAILURE")
	assert.Contains(t, retry, "cites non-existent locution: L9")
}

func TestExtractWindow_IdenticalFailureIsCycle(t *testing.T) {
	b := &fakeBackend{fn: script(ungrounded(t, "L9"))}
	sink := &recordingSink{}
	e := newTestExtractor(t, b, sink, Options{})

	out, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	assert.Equal(t, 2, out.Attempts)
	require.Len(t, out.Errors, 2)
	assert.Equal(t, failure.GroundingFailure, out.Errors[0].Kind)
	assert.Equal(t, failure.ValidationCycle, out.Errors[1].Kind)
	assert.Equal(t, failure.StageRetry, out.Errors[1].Stage)
	assert.Equal(t, types.IntValue(2), out.Errors[1].Detail["repeats"])
	require.Len(t, sink.failures, 1)
}

func TestExtractWindow_CycleThresholdConfigurable(t *testing.T) {
	b := &fakeBackend{fn: script(ungrounded(t, "L9"))}
	e := newTestExtractor(t, b, nil, Options{CycleThreshold: 3})

	out, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, failure.ValidationCycle, out.Errors[len(out.Errors)-1].Kind)
}

func TestExtractWindow_MalformedOutputIsSchemaViolation(t *testing.T) {
	b := &fakeBackend{fn: script([]byte("I could not find any arguments."), goodJSON(t))}
	e := newTestExtractor(t, b, nil, Options{})

	out, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Equal(t, 2, out.Attempts)
	retry := b.prompt(1).User
	assert.Contains(t, retry, "SCHEMA_VIOLATION")
}

func TestExtractWindow_ContextExhaustion(t *testing.T) {
	b := &fakeBackend{fn: func(int, Prompt) ([]byte, error) {
		return nil, fmt.Errorf("stopped after 8192 tokens: %w", failure.ErrContextExhausted)
	}}
	e := newTestExtractor(t, b, nil, Options{})

	out, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)

	assert.False(t, out.Accepted)
	assert.Equal(t, 3, out.Attempts, "context exhaustion allows two retries")
	require.Len(t, out.Errors, 1)
	assert.Equal(t, failure.ContextExhaustion, out.Errors[0].Kind)
	assert.Equal(t, failure.StageCall, out.Errors[0].Stage)
	assert.Equal(t, 2, out.Errors[0].RetryCount)
}

func TestExtractWindow_TransportErrorIsFatal(t *testing.T) {
	b := &fakeBackend{fn: func(int, Prompt) ([]byte, error) {
		return nil, errors.New("connection refused")
	}}
	e := newTestExtractor(t, b, nil, Options{})

	_, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, b.calls())
}

func TestExtractWindow_RetrievalPoisoning(t *testing.T) {
	in := singleWindow(t)
	in.RetrievedContext = []types.RetrievedContext{
		{PropID: "R-7", TextSummary: "Labour creates value", SourceDocID: "grundrisse"},
	}
	b := &fakeBackend{fn: script(ungrounded(t, "R-7"), goodJSON(t))}
	sink := &recordingSink{}
	e := newTestExtractor(t, b, sink, Options{})

	out, err := e.ExtractWindow(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, out.Accepted)
	assert.Contains(t, b.prompt(1).User, "RETRIEVAL_POISONING_RISK")
	require.Len(t, sink.saved, 1)
	assert.Equal(t, []string{"R-7"}, sink.saved[0].RetrievedPropIDs)
}

func TestExtractWindow_UsesRetriever(t *testing.T) {
	b := &fakeBackend{fn: script(goodJSON(t))}
	e := newTestExtractor(t, b, nil, Options{}).WithRetriever(staticRetriever{rc: []types.RetrievedContext{
		{PropID: "R-1", TextSummary: "Money is a measure of value", SourceDocID: "contribution"},
	}})

	_, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)
	assert.Contains(t, b.prompt(0).User, "R-1: \"Money is a measure of value\"")
}

func TestExtractWindow_CachedResponseSkipsBackend(t *testing.T) {
	b := &fakeBackend{fn: script(goodJSON(t))}
	e := newTestExtractor(t, b, nil, Options{CacheTTL: time.Minute})
	in := singleWindow(t)

	first, err := e.ExtractWindow(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.ExtractWindow(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.Accepted)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, b.calls())
}

func TestExtractWindow_RejectedResponsesAreNotCached(t *testing.T) {
	b := &fakeBackend{fn: script(ungrounded(t, "L9"), goodJSON(t))}
	e := newTestExtractor(t, b, nil, Options{CacheTTL: time.Minute})

	out, err := e.ExtractWindow(context.Background(), singleWindow(t))
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.False(t, out.Cached)
	assert.Equal(t, 2, b.calls())
}

func TestExtractWindow_CancelledDuringBackoff(t *testing.T) {
	policy := failure.DefaultPolicy()
	policy.BaseBackoff = time.Hour
	policy.MaxBackoff = time.Hour
	b := &fakeBackend{fn: func(call int, _ Prompt) ([]byte, error) {
		return ungrounded(t, fmt.Sprintf("L%d", 90+call)), nil
	}}
	e := newTestExtractor(t, b, nil, Options{Policy: policy})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.ExtractWindow(ctx, singleWindow(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, b.calls())
}

// --- ExtractDocument / ExtractAll ---

func TestExtractDocument_Concurrency(t *testing.T) {
	b := &fakeBackend{fn: script(goodJSON(t)), delay: 10 * time.Millisecond}
	sink := &recordingSink{}
	e := newTestExtractor(t, b, sink, Options{Concurrency: 2})

	res, err := e.ExtractDocument(context.Background(), makeDoc("capital", 20), nil)
	require.NoError(t, err)

	require.Len(t, res.Windows, 4)
	for i, w := range res.Windows {
		assert.Equal(t, i, w.WindowIndex)
		assert.True(t, w.Accepted)
	}
	assert.Equal(t, 4, res.Accepted())
	assert.Equal(t, 0, res.Failed())
	assert.LessOrEqual(t, b.maxInFlight.Load(), int32(2))
	assert.Len(t, sink.saved, 4)
}

func TestExtractDocument_TransportErrorAbortsDocument(t *testing.T) {
	b := &fakeBackend{fn: func(int, Prompt) ([]byte, error) {
		return nil, errors.New("connection reset")
	}}
	e := newTestExtractor(t, b, nil, Options{})

	_, err := e.ExtractDocument(context.Background(), makeDoc("capital", 4), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document capital")
}

func TestExtractAll(t *testing.T) {
	bad := ungrounded(t, "L9")
	good := goodJSON(t)
	b := &fakeBackend{fn: func(_ int, p Prompt) ([]byte, error) {
		if strings.Contains(p.User, "Document broken,") {
			return bad, nil
		}
		return good, nil
	}}
	e := newTestExtractor(t, b, nil, Options{})

	docs := []types.Document{
		makeDoc("capital", 4),
		makeDoc("fragment", 1),
		makeDoc("broken", 3),
	}
	var out bytes.Buffer
	summary, err := e.ExtractAll(context.Background(), docs, nil, &out)
	require.NoError(t, err)

	assert.Equal(t, BatchSummary{Extracted: 1, Skipped: 1, Failed: 1}, summary)
	assert.Equal(t, 3, summary.Total())
	assert.True(t, summary.HasFailures())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"extracting capital",
		"extracted capital (1 windows, 0 warnings)",
		"extracting fragment",
		"skipped fragment (fewer paragraphs than one window)",
		"extracting broken",
		"failed  broken: 1 of 1 windows rejected",
	}, lines)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Extraction.StrictOvergeneration = true
	cfg.Retry.MaxRetries = map[string]int{"GROUNDING_FAILURE": 5}

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, opts.Policy.MaxRetries[failure.GroundingFailure])
	assert.Equal(t, 2, opts.Policy.MaxRetries[failure.ContextExhaustion])
	assert.True(t, opts.Classify.StrictOvergeneration)
	assert.Equal(t, time.Hour, opts.CacheTTL)

	cfg.Retry.MaxRetries = map[string]int{"NOT_A_KIND": 1}
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

// --- prompt ---

func TestRenderPrompt_LocalWindowBeforeRetrievedContext(t *testing.T) {
	in := singleWindow(t)
	in.RetrievedContext = []types.RetrievedContext{
		{PropID: "R-1", TextSummary: "Money is a measure of value", SourceDocID: "contribution"},
	}

	p, err := RenderPrompt(in, nil)
	require.NoError(t, err)

	local := strings.Index(p.User, "--- LOCAL WINDOW (extractable) ---")
	retrieved := strings.Index(p.User, "--- RETRIEVED CONTEXT (read-only, non-extractable) ---")
	require.GreaterOrEqual(t, local, 0)
	require.GreaterOrEqual(t, retrieved, 0)
	assert.Less(t, local, retrieved)

	assert.Contains(t, p.User, "[Paragraph 1 id=capital-p0]")
	assert.Contains(t, p.User, "Detected discourse markers")
	assert.Contains(t, p.User, "However (contrast) in paragraph 1")
	assert.NotContains(t, p.User, "PREVIOUS ATTEMPT REJECTED")
}

func TestRenderPrompt_NoRetrievedSection(t *testing.T) {
	p, err := RenderPrompt(singleWindow(t), nil)
	require.NoError(t, err)
	assert.NotContains(t, p.User, "RETRIEVED CONTEXT")
}

func TestRenderPrompt_SystemPrompt(t *testing.T) {
	p, err := RenderPrompt(singleWindow(t), nil)
	require.NoError(t, err)
	assert.Contains(t, p.System, "RETRIEVED CONTEXT is read-only")
	assert.Contains(t, p.System, "- contrast: ")
	assert.Contains(t, p.System, "however")
}

func TestRenderPrompt_Feedback(t *testing.T) {
	in := singleWindow(t)
	fb := []*failure.ExtractionError{
		failure.NewError(failure.GroundingFailure, failure.StageValidation, in, "Proposition 0 missing surface_loc_ids", nil),
	}
	p, err := RenderPrompt(in, fb)
	require.NoError(t, err)
	assert.Contains(t, p.User, "- GROUNDING_FAILURE: Proposition 0 missing surface_loc_ids")
	assert.Contains(t, p.User, "Recovery: "+failure.GroundingFailure.SuggestedRecovery())
}

// --- decode ---

func TestDecodeFragment(t *testing.T) {
	good := string(goodJSON(t))
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"bare object", good, false},
		{"code fence", "```json\n" + good + "\n```", false},
		{"surrounding prose", "Here is the graph:\n" + good + "\nDone.", false},
		{"no object", "nothing to see", true},
		{"truncated", good[:len(good)/2], true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFragment([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, failure.ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Len(t, f.Propositions, 1)
			assert.Equal(t, "P1", f.Propositions[0].ID)
		})
	}
}

// --- backends ---

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(types.AIConfig{Provider: "claude", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude", b.Name())

	b, err = NewBackend(types.AIConfig{Provider: "OpenAI", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())

	_, err = NewBackend(types.AIConfig{Provider: "claude"}, nil)
	assert.ErrorContains(t, err, "API key is required")

	_, err = NewBackend(types.AIConfig{Provider: "llama", APIKey: "k"}, nil)
	assert.ErrorContains(t, err, "unknown provider")
}

func claudeReply(text, stop string) string {
	raw, _ := json.Marshal(claudeResponse{
		Content:    []claudeContent{{Type: "text", Text: text}},
		StopReason: stop,
	})
	return string(raw)
}

func TestClaudeBackend_Generate(t *testing.T) {
	var got claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, claudeReply(`{"locutions": []}`, "end_turn"))
	}))
	defer srv.Close()

	b := &ClaudeBackend{APIKey: "test-key", Model: "claude-test", BaseURL: srv.URL, Client: srv.Client()}
	raw, err := b.Generate(context.Background(), Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, `{"locutions": []}`, string(raw))
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, defaultClaudeMaxTokens, got.MaxTokens)
	assert.Equal(t, "sys", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "usr", got.Messages[0].Content)
}

func TestClaudeBackend_MaxTokensIsContextExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, claudeReply(`{"locutions": [`, "max_tokens"))
	}))
	defer srv.Close()

	b := &ClaudeBackend{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()}
	_, err := b.Generate(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, failure.ErrContextExhausted)
}

func TestClaudeBackend_NoTextIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"content": [], "stop_reason": "end_turn"}`)
	}))
	defer srv.Close()

	b := &ClaudeBackend{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()}
	_, err := b.Generate(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, failure.ErrMalformedOutput)
}

func TestClaudeBackend_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, claudeReply("{}", "end_turn"))
	}))
	defer srv.Close()

	b := &ClaudeBackend{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()}
	raw, err := b.Generate(context.Background(), Prompt{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClaudeBackend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "invalid x-api-key"}`)
	}))
	defer srv.Close()

	b := &ClaudeBackend{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()}
	_, err := b.Generate(context.Background(), Prompt{User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Nil(t, failure.FromCallError(err, types.ExtractionWindowInput{}), "auth failures are not retryable kinds")
}

func openAIServer(t *testing.T, content, finish string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":%q}]}`, content, finish)
	}))
}

func TestOpenAIBackend_Generate(t *testing.T) {
	srv := openAIServer(t, `{"locutions": []}`, "stop")
	defer srv.Close()

	b, err := NewOpenAIBackend(types.AIConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-sonnet"}, srv.Client())
	require.NoError(t, err)
	raw, err := b.Generate(context.Background(), Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, `{"locutions": []}`, string(raw))
}

func TestOpenAIBackend_LengthIsContextExhaustion(t *testing.T) {
	srv := openAIServer(t, `{"locutions": [`, "length")
	defer srv.Close()

	b, err := NewOpenAIBackend(types.AIConfig{APIKey: "test-key", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	_, err = b.Generate(context.Background(), Prompt{User: "usr"})
	assert.ErrorIs(t, err, failure.ErrContextExhausted)
}

func TestOpenAIBackend_EmptyContentIsMalformed(t *testing.T) {
	srv := openAIServer(t, "  ", "stop")
	defer srv.Close()

	b, err := NewOpenAIBackend(types.AIConfig{APIKey: "test-key", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	_, err = b.Generate(context.Background(), Prompt{User: "usr"})
	assert.ErrorIs(t, err, failure.ErrMalformedOutput)
}
