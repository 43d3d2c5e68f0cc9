// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package failure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/argmap/pkg/types"
)

// Sentinel errors returned by generation backends.
var (
	// ErrContextExhausted means the backend stopped at its token limit.
	ErrContextExhausted = errors.New("generation context exhausted")
	// ErrMalformedOutput means the response could not be decoded as a fragment.
	ErrMalformedOutput = errors.New("malformed generation output")
)

// Pipeline stages recorded on errors.
const (
	StageValidation = "validation"
	StageCall       = "generation_call"
	StageDecode     = "json_parse"
	StageRetry      = "retry"
)

// ExtractionError is the structured record of one failed window attempt.
type ExtractionError struct {
	Kind              Kind         `json:"kind" yaml:"kind"`
	Stage             string       `json:"stage" yaml:"stage"`
	DocID             string       `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
	WindowID          string       `json:"window_id,omitempty" yaml:"window_id,omitempty"`
	Message           string       `json:"message" yaml:"message"`
	Detail            types.Detail `json:"detail,omitempty" yaml:"detail,omitempty"`
	RetryCount        int          `json:"retry_count" yaml:"retry_count"`
	SuggestedRecovery string       `json:"suggested_recovery" yaml:"suggested_recovery"`
}

// Error formats the record as "[KIND] stage @ doc:id: message".
func (e *ExtractionError) Error() string {
	loc := "window:" + e.WindowID
	if e.DocID != "" {
		loc = "doc:" + e.DocID
	}
	return fmt.Sprintf("[%s] %s @ %s: %s", e.Kind, e.Stage, loc, e.Message)
}

// NewError builds an ExtractionError for window in with the kind's
// suggested recovery filled in.
func NewError(kind Kind, stage string, in types.ExtractionWindowInput, message string, detail types.Detail) *ExtractionError {
	return &ExtractionError{
		Kind:              kind,
		Stage:             stage,
		DocID:             in.DocID,
		WindowID:          in.WindowID,
		Message:           message,
		Detail:            detail,
		SuggestedRecovery: kind.SuggestedRecovery(),
	}
}

// FromCallError classifies an error returned by a generation call. It
// returns nil when err does not belong to the taxonomy (for example a
// transport failure), which the caller should treat as fatal.
func FromCallError(err error, in types.ExtractionWindowInput) *ExtractionError {
	if err == nil {
		return nil
	}
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return xe
	}
	switch {
	case errors.Is(err, ErrContextExhausted):
		return NewError(ContextExhaustion, StageCall, in, err.Error(), nil)
	case errors.Is(err, ErrMalformedOutput):
		return NewError(SchemaViolation, StageDecode, in, err.Error(), nil)
	}
	return nil
}

// Signature summarises errs so that two attempts failing identically can be
// recognised. Retry counts are excluded.
func Signature(errs []*ExtractionError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s|%s|%s", e.Kind, e.Message, e.Detail))
	}
	return strings.Join(parts, "\n")
}

// KindsOf returns the distinct kinds in errs, in order.
func KindsOf(errs []*ExtractionError) []Kind {
	var out []Kind
	seen := make(map[Kind]bool)
	for _, e := range errs {
		if !seen[e.Kind] {
			seen[e.Kind] = true
			out = append(out, e.Kind)
		}
	}
	return out
}
