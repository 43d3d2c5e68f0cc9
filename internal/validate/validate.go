// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks one window's graph fragment for structural
// soundness. Hard checks (schema, grounding, evidence, aif_validity)
// invalidate the fragment; soft checks (overgeneration, cycles,
// unrelated_conflict) only add audit warnings.
package validate

import (
	"github.com/pdiddy/argmap/pkg/types"
)

// check appends its findings to res.
type check func(f *types.Fragment, res *types.ValidationResult)

// checks run in this order on every call; none short-circuits another.
var checks = []check{
	checkSchema,
	checkGrounding,
	checkEvidence,
	checkAIFValidity,
	checkOvergeneration,
	checkCycles,
	checkUnrelatedConflict,
}

// Validate runs every check against f and returns the accumulated result.
// A nil fragment yields a single schema error.
func Validate(f *types.Fragment) types.ValidationResult {
	res := types.NewValidationResult()
	if f == nil {
		res.AddHardError(types.CheckSchema, "fragment is empty", nil)
		return res
	}
	for _, c := range checks {
		c(f, &res)
	}
	return res
}
