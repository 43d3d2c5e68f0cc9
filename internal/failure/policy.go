// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package failure

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/argmap/pkg/types"
)

// RetryPolicy holds the per-kind retry limits and backoff bounds.
type RetryPolicy struct {
	MaxRetries  map[Kind]int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultPolicy returns the built-in limits: ValidationCycle is never
// retried, EntityResolutionFailure once, the rest two or three times.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: map[Kind]int{
			GroundingFailure:        3,
			SchemaViolation:         3,
			ContextExhaustion:       2,
			Overgeneration:          3,
			EntityResolutionFailure: 1,
			RetrievalPoisoningRisk:  2,
			ValidationCycle:         0,
		},
		BaseBackoff: time.Second,
		MaxBackoff:  60 * time.Second,
	}
}

// PolicyFromConfig overlays cfg on DefaultPolicy. Kind names match
// case-insensitively, since config loaders may lowercase map keys. Unknown
// kind names are rejected; zero durations keep the defaults.
func PolicyFromConfig(cfg types.RetryConfig) (RetryPolicy, error) {
	p := DefaultPolicy()
	for name, n := range cfg.MaxRetries {
		k := Kind(strings.ToUpper(name))
		if !k.Valid() {
			return RetryPolicy{}, fmt.Errorf("retry config: unknown error kind %q", name)
		}
		if n < 0 {
			return RetryPolicy{}, fmt.Errorf("retry config: negative max retries for %s", name)
		}
		p.MaxRetries[k] = n
	}
	if cfg.BaseBackoff > 0 {
		p.BaseBackoff = cfg.BaseBackoff
	}
	if cfg.MaxBackoff > 0 {
		p.MaxBackoff = cfg.MaxBackoff
	}
	return p, nil
}

// CanRetry reports whether a window that has already been retried
// retryCount times for kind may be retried again. Kinds missing from the
// table are never retried.
func (p RetryPolicy) CanRetry(kind Kind, retryCount int) bool {
	return retryCount < p.MaxRetries[kind]
}

// Backoff returns min(BaseBackoff * 2^retryCount, MaxBackoff) without
// overflowing for large counts.
func (p RetryPolicy) Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := p.BaseBackoff
	if d <= 0 {
		return 0
	}
	for i := 0; i < retryCount; i++ {
		if d >= p.MaxBackoff/2+1 {
			return p.MaxBackoff
		}
		d *= 2
	}
	return min(d, p.MaxBackoff)
}
