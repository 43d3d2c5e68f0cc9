// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package failure

import (
	"fmt"
	"strings"

	"github.com/pdiddy/argmap/pkg/types"
)

// ClassifyOptions tunes Classify.
type ClassifyOptions struct {
	// StrictOvergeneration turns overgeneration warnings into
	// Overgeneration errors.
	StrictOvergeneration bool
}

// Classify converts a validation result for window in into one
// ExtractionError per distinct kind, in the order the kinds first occur.
// It returns nil when nothing is actionable.
//
// Schema issues map to SchemaViolation, except invalid entity bindings which
// map to EntityResolutionFailure. Grounding, evidence and aif_validity issues
// map to GroundingFailure, except when the offending locution id is a
// retrieved proposition id, which maps to RetrievalPoisoningRisk.
func Classify(res types.ValidationResult, in types.ExtractionWindowInput, opts ClassifyOptions) []*ExtractionError {
	retrieved := in.RetrievedPropIDs()

	var order []Kind
	grouped := make(map[Kind][]types.Issue)
	add := func(k Kind, issue types.Issue) {
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], issue)
	}

	for _, issue := range res.HardErrors {
		add(kindOf(issue, retrieved), issue)
	}
	if opts.StrictOvergeneration {
		for _, w := range res.SoftWarnings {
			if w.Check == types.CheckOvergeneration {
				add(Overgeneration, w)
			}
		}
	}

	if len(order) == 0 {
		return nil
	}
	errs := make([]*ExtractionError, 0, len(order))
	for _, k := range order {
		issues := grouped[k]
		lines := make([]string, len(issues))
		checks := make([]string, 0, 2)
		seen := make(map[types.CheckName]bool)
		for i, is := range issues {
			lines[i] = is.String()
			if !seen[is.Check] {
				seen[is.Check] = true
				checks = append(checks, string(is.Check))
			}
		}
		msg := issues[0].Message
		if len(issues) > 1 {
			msg = fmt.Sprintf("%s (and %d more)", msg, len(issues)-1)
		}
		errs = append(errs, NewError(k, StageValidation, in, msg, types.Detail{
			"checks":      types.StringsValue(checks),
			"issues":      types.StringsValue(lines),
			"issue_count": types.IntValue(len(issues)),
		}))
	}
	return errs
}

func kindOf(issue types.Issue, retrieved map[string]bool) Kind {
	switch issue.Check {
	case types.CheckSchema:
		if field, ok := issue.Detail["field"]; ok && strings.HasPrefix(field.String(), "entity_bindings") {
			return EntityResolutionFailure
		}
		return SchemaViolation
	case types.CheckGrounding, types.CheckEvidence, types.CheckAIFValidity:
		if lid, ok := issue.Detail["locution_id"]; ok && retrieved[lid.String()] {
			return RetrievalPoisoningRisk
		}
		return GroundingFailure
	case types.CheckOvergeneration:
		return Overgeneration
	case types.CheckCycles, types.CheckUnrelatedConflict:
		return GroundingFailure
	}
	return SchemaViolation
}
