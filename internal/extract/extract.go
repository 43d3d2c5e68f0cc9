// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract drives the generation backend over extraction windows:
// it renders prompts, validates each returned fragment, classifies failures
// and retries them under the retry policy, and hands accepted windows and
// failure records to a Sink.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/argmap/internal/failure"
	"github.com/pdiddy/argmap/internal/logging"
	"github.com/pdiddy/argmap/internal/validate"
	"github.com/pdiddy/argmap/internal/window"
	"github.com/pdiddy/argmap/pkg/types"
)

// Options configures an Extractor.
type Options struct {
	Policy   failure.RetryPolicy
	Classify failure.ClassifyOptions

	// Concurrency is the number of windows of one document processed at once.
	Concurrency int

	// RequestsPerSecond throttles Generate calls; 0 means unlimited.
	RequestsPerSecond float64
	Burst             int

	// CacheTTL keeps accepted responses keyed by prompt; 0 disables the cache.
	CacheTTL time.Duration

	// CycleThreshold is the number of consecutive attempts with an identical
	// failure signature that ends a window with ValidationCycle.
	CycleThreshold int
}

// OptionsFromConfig derives Options from the pipeline configuration.
func OptionsFromConfig(cfg types.PipelineConfig) (Options, error) {
	policy, err := failure.PolicyFromConfig(cfg.Retry)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Policy:            policy,
		Classify:          failure.ClassifyOptions{StrictOvergeneration: cfg.Extraction.StrictOvergeneration},
		Concurrency:       cfg.Extraction.Concurrency,
		RequestsPerSecond: cfg.Extraction.RequestsPerSecond,
		Burst:             cfg.Extraction.Burst,
		CacheTTL:          cfg.Extraction.CacheTTL,
		CycleThreshold:    cfg.Extraction.CycleThreshold,
	}, nil
}

// Extractor runs windows through a backend. It is safe for concurrent use.
type Extractor struct {
	backend   Backend
	builder   *window.Builder
	sink      Sink
	retriever Retriever
	log       *logging.Logger
	opts      Options
	limiter   *rate.Limiter
	cache     *gocache.Cache
	after     func(time.Duration) <-chan time.Time
}

// New returns an Extractor. sink and log may be nil.
func New(backend Backend, builder *window.Builder, sink Sink, opts Options, log *logging.Logger) *Extractor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.CycleThreshold <= 0 {
		opts.CycleThreshold = 2
	}
	if opts.Policy.MaxRetries == nil {
		opts.Policy = failure.DefaultPolicy()
	}
	if log == nil {
		log = logging.Nop()
	}
	if sink == nil {
		sink = discardSink{}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	e := &Extractor{
		backend: backend,
		builder: builder,
		sink:    sink,
		log:     log.With("backend", backend.Name()),
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		after:   time.After,
	}
	if opts.CacheTTL > 0 {
		e.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return e
}

// WithRetriever makes the Extractor fetch retrieved context for windows
// that arrive without any.
func (e *Extractor) WithRetriever(r Retriever) *Extractor {
	e.retriever = r
	return e
}

// WindowOutcome reports how one window ended.
type WindowOutcome struct {
	WindowID    string
	WindowIndex int
	Accepted    bool
	Attempts    int
	Cached      bool
	Result      types.ValidationResult
	Errors      []*failure.ExtractionError
}

// DocumentResult collects the outcomes of one document's windows in window
// order.
type DocumentResult struct {
	DocID   string
	Windows []WindowOutcome
}

// Accepted returns the number of accepted windows.
func (r DocumentResult) Accepted() int {
	n := 0
	for _, w := range r.Windows {
		if w.Accepted {
			n++
		}
	}
	return n
}

// Failed returns the number of windows that exhausted their retries.
func (r DocumentResult) Failed() int { return len(r.Windows) - r.Accepted() }

// Warnings returns the number of soft warnings on accepted windows.
func (r DocumentResult) Warnings() int {
	n := 0
	for _, w := range r.Windows {
		if w.Accepted {
			n += len(w.Result.SoftWarnings)
		}
	}
	return n
}

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any document had a failed window.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// ExtractAll runs every document and reports one line per document to w.
// A document is extracted when all its windows are accepted, skipped when
// it yields no windows, and failed otherwise. Only context cancellation
// aborts the batch.
func (e *Extractor) ExtractAll(ctx context.Context, docs []types.Document, retrieved []types.RetrievedContext, w io.Writer) (BatchSummary, error) {
	var summary BatchSummary
	for _, doc := range docs {
		fmt.Fprintf(w, "extracting %s\n", doc.DocID)

		res, err := e.ExtractDocument(ctx, doc, retrieved)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			fmt.Fprintf(w, "failed  %s: %v\n", doc.DocID, err)
			summary.Failed++
			continue
		}
		switch {
		case len(res.Windows) == 0:
			fmt.Fprintf(w, "skipped %s (fewer paragraphs than one window)\n", doc.DocID)
			summary.Skipped++
		case res.Failed() > 0:
			fmt.Fprintf(w, "failed  %s: %d of %d windows rejected\n", doc.DocID, res.Failed(), len(res.Windows))
			summary.Failed++
		default:
			fmt.Fprintf(w, "extracted %s (%d windows, %d warnings)\n", doc.DocID, len(res.Windows), res.Warnings())
			summary.Extracted++
		}
	}
	return summary, nil
}

// ExtractDocument segments doc into windows and extracts them with up to
// Options.Concurrency windows in flight. Window failures are reported in
// the result; transport and sink errors abort the document.
func (e *Extractor) ExtractDocument(ctx context.Context, doc types.Document, retrieved []types.RetrievedContext) (DocumentResult, error) {
	windows := e.builder.Build(doc, retrieved)
	result := DocumentResult{DocID: doc.DocID, Windows: make([]WindowOutcome, len(windows))}
	log := e.log.With("doc_id", doc.DocID)
	log.Info("extracting document", "paragraphs", len(doc.Paragraphs), "windows", len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i := range windows {
		g.Go(func() error {
			out, err := e.ExtractWindow(gctx, windows[i])
			result.Windows[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("document %s: %w", doc.DocID, err)
	}

	log.Info("document done", "accepted", result.Accepted(), "failed", result.Failed())
	return result, nil
}

// ExtractWindow runs the generate, validate, classify loop for one window
// until the fragment is accepted, the policy refuses a retry, or the same
// failure repeats CycleThreshold times. Retry counts are kept per kind for
// this window only.
func (e *Extractor) ExtractWindow(ctx context.Context, in types.ExtractionWindowInput) (WindowOutcome, error) {
	out := WindowOutcome{WindowID: in.WindowID, WindowIndex: in.WindowIndex}
	log := e.log.With("doc_id", in.DocID, "window_index", in.WindowIndex)

	if e.retriever != nil && len(in.RetrievedContext) == 0 {
		rc, err := e.retriever.Retrieve(ctx, in)
		if err != nil {
			return out, fmt.Errorf("retrieving context for window %d: %w", in.WindowIndex, err)
		}
		in.RetrievedContext = rc
	}

	retries := make(map[failure.Kind]int)
	var feedback []*failure.ExtractionError
	var lastSig string
	repeats := 0

	for attempt := 0; ; attempt++ {
		out.Attempts = attempt + 1

		prompt, err := RenderPrompt(in, feedback)
		if err != nil {
			return out, fmt.Errorf("rendering prompt: %w", err)
		}

		raw, cached, err := e.generate(ctx, prompt)
		out.Cached = cached
		var errs []*failure.ExtractionError
		var frag *types.Fragment

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			xe := failure.FromCallError(err, in)
			if xe == nil {
				return out, fmt.Errorf("window %d: %w", in.WindowIndex, err)
			}
			errs = []*failure.ExtractionError{xe}
		default:
			frag, err = DecodeFragment(raw)
			if err != nil {
				errs = []*failure.ExtractionError{failure.FromCallError(err, in)}
				break
			}
			out.Result = validate.Validate(frag)
			errs = failure.Classify(out.Result, in, e.opts.Classify)
		}

		if len(errs) == 0 {
			accepted := types.NewExtractionWindow(in, *frag)
			if err := e.sink.SaveWindow(ctx, accepted, out.Result); err != nil {
				return out, fmt.Errorf("saving window %d: %w", in.WindowIndex, err)
			}
			if !cached {
				e.remember(prompt, raw)
			}
			out.Accepted = true
			log.Info("window accepted", "attempts", out.Attempts, "warnings", len(out.Result.SoftWarnings), "cached", cached)
			return out, nil
		}

		for _, xe := range errs {
			xe.RetryCount = retries[xe.Kind]
		}
		out.Errors = errs

		// Only validation failures count towards a cycle.
		switch sig := failure.Signature(errs); {
		case !validationOnly(errs):
			lastSig, repeats = "", 0
		case sig == lastSig:
			repeats++
		default:
			lastSig, repeats = sig, 1
		}
		if repeats >= e.opts.CycleThreshold {
			cycle := failure.NewError(failure.ValidationCycle, failure.StageRetry, in,
				fmt.Sprintf("identical failure on %d consecutive attempts", repeats),
				types.Detail{
					"repeats": types.IntValue(repeats),
					"kinds":   kindNames(errs),
				})
			out.Errors = append(errs, cycle)
			return out, e.reject(ctx, log, out)
		}

		if !e.retryable(errs, retries) {
			return out, e.reject(ctx, log, out)
		}
		// The wait follows the most-retried failing kind.
		wait := e.opts.Policy.Backoff(maxRetryCount(errs))
		for _, k := range failure.KindsOf(errs) {
			retries[k]++
		}

		log.Warn("window rejected, retrying", "attempt", out.Attempts, "kinds", kindNames(errs).String(), "backoff", wait)
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-e.after(wait):
		}
		feedback = errs
	}
}

func maxRetryCount(errs []*failure.ExtractionError) int {
	n := 0
	for _, xe := range errs {
		n = max(n, xe.RetryCount)
	}
	return n
}

func validationOnly(errs []*failure.ExtractionError) bool {
	for _, xe := range errs {
		if xe.Stage != failure.StageValidation {
			return false
		}
	}
	return true
}

// retryable reports whether the policy allows another attempt for every
// kind in errs.
func (e *Extractor) retryable(errs []*failure.ExtractionError, retries map[failure.Kind]int) bool {
	for _, xe := range errs {
		if !e.opts.Policy.CanRetry(xe.Kind, retries[xe.Kind]) {
			return false
		}
	}
	return true
}

func (e *Extractor) reject(ctx context.Context, log *logging.Logger, out WindowOutcome) error {
	for _, xe := range out.Errors {
		log.Error("window rejected", "kind", string(xe.Kind), "retry_count", xe.RetryCount, "message", xe.Message)
	}
	if err := e.sink.RecordFailures(ctx, out.Errors); err != nil {
		return fmt.Errorf("recording failures for window %d: %w", out.WindowIndex, err)
	}
	return nil
}

// generate answers from the cache or calls the backend under the limiter.
func (e *Extractor) generate(ctx context.Context, p Prompt) ([]byte, bool, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(cacheKey(p)); ok {
			return v.([]byte), true, nil
		}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	raw, err := e.backend.Generate(ctx, p)
	return raw, false, err
}

// remember caches an accepted response.
func (e *Extractor) remember(p Prompt, raw []byte) {
	if e.cache != nil {
		e.cache.SetDefault(cacheKey(p), raw)
	}
}

func cacheKey(p Prompt) string {
	h := sha256.New()
	h.Write([]byte(p.System))
	h.Write([]byte{0})
	h.Write([]byte(p.User))
	return hex.EncodeToString(h.Sum(nil))
}

func kindNames(errs []*failure.ExtractionError) types.StringsValue {
	var names types.StringsValue
	for _, k := range failure.KindsOf(errs) {
		names = append(names, string(k))
	}
	return names
}

type discardSink struct{}

func (discardSink) SaveWindow(context.Context, types.ExtractionWindow, types.ValidationResult) error {
	return nil
}

func (discardSink) RecordFailures(context.Context, []*failure.ExtractionError) error { return nil }
