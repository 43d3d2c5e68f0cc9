// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"fmt"

	"github.com/pdiddy/argmap/pkg/types"
)

const (
	arrLocutions    = "locutions"
	arrTransitions  = "transitions"
	arrPropositions = "propositions"
	arrIllocutions  = "illocutions"
	arrRelations    = "relations"
)

func checkSchema(f *types.Fragment, res *types.ValidationResult) {
	present := []struct {
		name string
		ok   bool
	}{
		{arrLocutions, f.Locutions != nil},
		{arrTransitions, f.Transitions != nil},
		{arrPropositions, f.Propositions != nil},
		{arrIllocutions, f.Illocutions != nil},
		{arrRelations, f.Relations != nil},
	}
	for _, p := range present {
		if !p.ok {
			res.AddHardError(types.CheckSchema,
				fmt.Sprintf("missing required array: %s", p.name),
				types.Detail{"array": types.StringValue(p.name)})
		}
	}

	for i, l := range f.Locutions {
		requireString(res, arrLocutions, i, "loc_id", l.ID)
		requireString(res, arrLocutions, i, "text", l.Text)
		requireString(res, arrLocutions, i, "paragraph_id", l.ParagraphID)
	}

	for i, t := range f.Transitions {
		requireString(res, arrTransitions, i, "marker", t.Marker)
		if requireString(res, arrTransitions, i, "hint", string(t.Hint)) && !t.Hint.Valid() {
			invalidEnum(res, arrTransitions, i, "hint", string(t.Hint))
		}
	}

	for i, p := range f.Propositions {
		requireString(res, arrPropositions, i, "prop_id", p.ID)
		requireList(res, arrPropositions, i, "surface_loc_ids", p.SurfaceLocIDs)
		requireString(res, arrPropositions, i, "text_summary", p.TextSummary)
		for j, eb := range p.EntityBindings {
			if eb.EntityType != "" && !eb.EntityType.Valid() {
				invalidEnum(res, arrPropositions, i, fmt.Sprintf("entity_bindings[%d].entity_type", j), string(eb.EntityType))
			}
		}
	}

	for i, il := range f.Illocutions {
		requireString(res, arrIllocutions, i, "illoc_id", il.ID)
		requireString(res, arrIllocutions, i, "source_loc_id", il.SourceLocID)
		requireString(res, arrIllocutions, i, "target_prop_id", il.TargetPropID)
		if requireString(res, arrIllocutions, i, "force", string(il.Force)) && !il.Force.Valid() {
			invalidEnum(res, arrIllocutions, i, "force", string(il.Force))
		}
	}

	for i, r := range f.Relations {
		requireString(res, arrRelations, i, "rel_id", r.ID)
		if requireString(res, arrRelations, i, "relation_type", string(r.Type)) && !r.Type.Valid() {
			invalidEnum(res, arrRelations, i, "relation_type", string(r.Type))
		}
		requireList(res, arrRelations, i, "source_prop_ids", r.SourcePropIDs)
		requireString(res, arrRelations, i, "target_prop_id", r.TargetPropID)
		requireList(res, arrRelations, i, "evidence_loc_ids", r.EvidenceLocIDs)
		if r.Type == types.RelationConflict && r.ConflictDetail != "" && !r.ConflictDetail.Valid() {
			invalidEnum(res, arrRelations, i, "conflict_detail", string(r.ConflictDetail))
		}
	}
}

// requireString reports a missing field and returns whether v is set.
func requireString(res *types.ValidationResult, array string, index int, field, v string) bool {
	if v != "" {
		return true
	}
	missingField(res, array, index, field)
	return false
}

// requireList treats a nil list as absent. An empty list is present; the
// grounding and evidence checks decide whether it is acceptable.
func requireList(res *types.ValidationResult, array string, index int, field string, v []string) {
	if v == nil {
		missingField(res, array, index, field)
	}
}

func missingField(res *types.ValidationResult, array string, index int, field string) {
	res.AddHardError(types.CheckSchema,
		fmt.Sprintf("%s[%d] missing required field: %s", array, index, field),
		types.Detail{
			"array": types.StringValue(array),
			"index": types.IntValue(index),
			"field": types.StringValue(field),
		})
}

func invalidEnum(res *types.ValidationResult, array string, index int, field, value string) {
	res.AddHardError(types.CheckSchema,
		fmt.Sprintf("%s[%d] has invalid %s: %s", array, index, field, value),
		types.Detail{
			"array": types.StringValue(array),
			"index": types.IntValue(index),
			"field": types.StringValue(field),
			"value": types.StringValue(value),
		})
}
