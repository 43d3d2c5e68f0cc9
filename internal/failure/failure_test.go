// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package failure

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/argmap/pkg/types"
)

func TestCanRetry(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		kind  Kind
		count int
		want  bool
	}{
		{GroundingFailure, 0, true},
		{GroundingFailure, 2, true},
		{GroundingFailure, 3, false},
		{SchemaViolation, 2, true},
		{ContextExhaustion, 2, false},
		{EntityResolutionFailure, 0, true},
		{EntityResolutionFailure, 1, false},
		{RetrievalPoisoningRisk, 1, true},
		{ValidationCycle, 0, false},
		{Kind("UNKNOWN"), 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.kind, tt.count), func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanRetry(tt.kind, tt.count))
		})
	}
}

func TestBackoff(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		count int
		want  time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},
		{10, 60 * time.Second},
		{200, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.count), "count %d", tt.count)
	}
}

func TestBackoff_NoOverflow(t *testing.T) {
	p := RetryPolicy{BaseBackoff: time.Hour, MaxBackoff: time.Duration(1<<63 - 1)}
	for n := 0; n < 128; n++ {
		d := p.Backoff(n)
		assert.Positive(t, d, "n=%d", n)
		assert.LessOrEqual(t, d, p.MaxBackoff)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p, err := PolicyFromConfig(types.DefaultConfig().Retry)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	p, err = PolicyFromConfig(types.RetryConfig{
		MaxRetries:  map[string]int{"GROUNDING_FAILURE": 5},
		BaseBackoff: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, p.MaxRetries[GroundingFailure])
	assert.Equal(t, 3, p.MaxRetries[SchemaViolation])
	assert.Equal(t, 10*time.Millisecond, p.BaseBackoff)
	assert.Equal(t, 60*time.Second, p.MaxBackoff)

	p, err = PolicyFromConfig(types.RetryConfig{MaxRetries: map[string]int{"retrieval_poisoning_risk": 0}})
	require.NoError(t, err)
	assert.Equal(t, 0, p.MaxRetries[RetrievalPoisoningRisk])

	_, err = PolicyFromConfig(types.RetryConfig{MaxRetries: map[string]int{"TIMEOUT": 1}})
	assert.Error(t, err)
	_, err = PolicyFromConfig(types.RetryConfig{MaxRetries: map[string]int{"OVERGENERATION": -1}})
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	require.Len(t, Kinds, 7)
	for _, k := range Kinds {
		assert.True(t, k.Valid(), k)
		assert.NotEmpty(t, k.SuggestedRecovery(), k)
		_, ok := DefaultPolicy().MaxRetries[k]
		assert.True(t, ok, "default policy lists %s", k)
	}
	assert.False(t, Kind("grounding_failure").Valid())
}

func testWindow() types.ExtractionWindowInput {
	return types.ExtractionWindowInput{
		WindowID: "w-1",
		DocID:    "doc-1",
		RetrievedContext: []types.RetrievedContext{
			{PropID: "ctx-P1", TextSummary: "earlier claim", RetrievalMethod: types.RetrievalVector},
		},
	}
}

func TestClassify(t *testing.T) {
	res := types.NewValidationResult()
	res.AddHardError(types.CheckSchema, "transitions[0] missing required field: hint",
		types.Detail{"array": types.StringValue("transitions"), "field": types.StringValue("hint")})
	res.AddHardError(types.CheckGrounding, "Proposition 0 cites non-existent locution: L9",
		types.Detail{"proposition_index": types.IntValue(0), "locution_id": types.StringValue("L9")})
	res.AddHardError(types.CheckEvidence, "Relation 0 cites non-existent evidence locution: L8",
		types.Detail{"relation_index": types.IntValue(0), "locution_id": types.StringValue("L8")})
	res.AddHardError(types.CheckSchema, "relations[0] missing required field: rel_id", nil)

	errs := Classify(res, testWindow(), ClassifyOptions{})
	require.Len(t, errs, 2)

	assert.Equal(t, SchemaViolation, errs[0].Kind)
	assert.Equal(t, types.IntValue(2), errs[0].Detail["issue_count"])
	assert.Equal(t, "transitions[0] missing required field: hint (and 1 more)", errs[0].Message)

	assert.Equal(t, GroundingFailure, errs[1].Kind)
	assert.Equal(t, types.StringsValue{"grounding", "evidence"}, errs[1].Detail["checks"])
	for _, e := range errs {
		assert.Equal(t, "doc-1", e.DocID)
		assert.Equal(t, "w-1", e.WindowID)
		assert.Equal(t, StageValidation, e.Stage)
		assert.Equal(t, e.Kind.SuggestedRecovery(), e.SuggestedRecovery)
		assert.Zero(t, e.RetryCount)
	}
}

func TestClassify_RetrievalPoisoning(t *testing.T) {
	res := types.NewValidationResult()
	res.AddHardError(types.CheckGrounding, "Proposition 2 cites non-existent locution: ctx-P1",
		types.Detail{"proposition_index": types.IntValue(2), "locution_id": types.StringValue("ctx-P1")})

	errs := Classify(res, testWindow(), ClassifyOptions{})
	require.Len(t, errs, 1)
	assert.Equal(t, RetrievalPoisoningRisk, errs[0].Kind)
}

func TestClassify_EntityResolution(t *testing.T) {
	res := types.NewValidationResult()
	res.AddHardError(types.CheckSchema, "propositions[0] has invalid entity_bindings[0].entity_type: god",
		types.Detail{"field": types.StringValue("entity_bindings[0].entity_type")})

	errs := Classify(res, testWindow(), ClassifyOptions{})
	require.Len(t, errs, 1)
	assert.Equal(t, EntityResolutionFailure, errs[0].Kind)
}

func TestClassify_Overgeneration(t *testing.T) {
	res := types.NewValidationResult()
	res.AddSoftWarning(types.CheckOvergeneration, "Too many propositions (9) relative to locutions (2)", nil)
	res.AddSoftWarning(types.CheckCycles, "Cyclic support detected", nil)

	assert.Nil(t, Classify(res, testWindow(), ClassifyOptions{}))

	errs := Classify(res, testWindow(), ClassifyOptions{StrictOvergeneration: true})
	require.Len(t, errs, 1)
	assert.Equal(t, Overgeneration, errs[0].Kind)
}

func TestFromCallError(t *testing.T) {
	in := testWindow()

	e := FromCallError(fmt.Errorf("claude: %w", ErrContextExhausted), in)
	require.NotNil(t, e)
	assert.Equal(t, ContextExhaustion, e.Kind)
	assert.Equal(t, StageCall, e.Stage)

	e = FromCallError(fmt.Errorf("decoding: %w", ErrMalformedOutput), in)
	require.NotNil(t, e)
	assert.Equal(t, SchemaViolation, e.Kind)

	orig := NewError(ValidationCycle, StageRetry, in, "same failure twice", nil)
	assert.Same(t, orig, FromCallError(fmt.Errorf("wrapped: %w", orig), in))

	assert.Nil(t, FromCallError(errors.New("connection refused"), in))
	assert.Nil(t, FromCallError(nil, in))
}

func TestExtractionError_Error(t *testing.T) {
	e := NewError(GroundingFailure, StageValidation, testWindow(), "Proposition 0 missing surface_loc_ids", nil)
	assert.Equal(t, "[GROUNDING_FAILURE] validation @ doc:doc-1: Proposition 0 missing surface_loc_ids", e.Error())

	var target *ExtractionError
	assert.True(t, errors.As(fmt.Errorf("window: %w", e), &target))

	e.DocID = ""
	assert.Equal(t, "[GROUNDING_FAILURE] validation @ window:w-1: Proposition 0 missing surface_loc_ids", e.Error())
}

func TestSignature(t *testing.T) {
	in := testWindow()
	a := []*ExtractionError{NewError(GroundingFailure, StageValidation, in, "m", types.Detail{"k": types.IntValue(1)})}
	b := []*ExtractionError{NewError(GroundingFailure, StageValidation, in, "m", types.Detail{"k": types.IntValue(1)})}
	b[0].RetryCount = 2
	assert.Equal(t, Signature(a), Signature(b))

	c := []*ExtractionError{NewError(GroundingFailure, StageValidation, in, "other", nil)}
	assert.NotEqual(t, Signature(a), Signature(c))

	assert.Equal(t, []Kind{GroundingFailure}, KindsOf(append(a, b...)))
}
