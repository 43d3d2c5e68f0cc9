// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"fmt"

	"github.com/pdiddy/argmap/pkg/types"
)

// checkGrounding requires every proposition to cite at least one locution of
// the window. Retrieved-context ids are not locutions and never resolve.
func checkGrounding(f *types.Fragment, res *types.ValidationResult) {
	locIDs := f.LocutionIDs()
	for i, p := range f.Propositions {
		if len(p.SurfaceLocIDs) == 0 {
			res.AddHardError(types.CheckGrounding,
				fmt.Sprintf("Proposition %d missing surface_loc_ids", i),
				types.Detail{
					"proposition_index": types.IntValue(i),
					"prop_id":           types.StringValue(p.ID),
				})
			continue
		}
		for _, lid := range p.SurfaceLocIDs {
			if !locIDs[lid] {
				res.AddHardError(types.CheckGrounding,
					fmt.Sprintf("Proposition %d cites non-existent locution: %s", i, lid),
					types.Detail{
						"proposition_index": types.IntValue(i),
						"prop_id":           types.StringValue(p.ID),
						"locution_id":       types.StringValue(lid),
					})
			}
		}
	}
}

func checkEvidence(f *types.Fragment, res *types.ValidationResult) {
	locIDs := f.LocutionIDs()
	for i, r := range f.Relations {
		if len(r.EvidenceLocIDs) == 0 {
			res.AddHardError(types.CheckEvidence,
				fmt.Sprintf("Relation %d missing evidence_loc_ids", i),
				types.Detail{
					"relation_index": types.IntValue(i),
					"rel_id":         types.StringValue(r.ID),
				})
			continue
		}
		for _, lid := range r.EvidenceLocIDs {
			if !locIDs[lid] {
				res.AddHardError(types.CheckEvidence,
					fmt.Sprintf("Relation %d cites non-existent evidence locution: %s", i, lid),
					types.Detail{
						"relation_index": types.IntValue(i),
						"rel_id":         types.StringValue(r.ID),
						"locution_id":    types.StringValue(lid),
					})
			}
		}
	}
}

// checkAIFValidity resolves illocution and relation endpoints against the
// window's own locutions and propositions.
func checkAIFValidity(f *types.Fragment, res *types.ValidationResult) {
	locIDs := f.LocutionIDs()
	propIDs := f.PropositionIDs()

	for i, il := range f.Illocutions {
		if !locIDs[il.SourceLocID] {
			res.AddHardError(types.CheckAIFValidity,
				fmt.Sprintf("Illocution %d source_loc_id not found: %s", i, il.SourceLocID),
				types.Detail{
					"illocution_index": types.IntValue(i),
					"locution_id":      types.StringValue(il.SourceLocID),
				})
		}
		if !propIDs[il.TargetPropID] {
			res.AddHardError(types.CheckAIFValidity,
				fmt.Sprintf("Illocution %d target_prop_id not found: %s", i, il.TargetPropID),
				types.Detail{
					"illocution_index": types.IntValue(i),
					"proposition_id":   types.StringValue(il.TargetPropID),
				})
		}
	}

	for i, r := range f.Relations {
		for _, sid := range r.SourcePropIDs {
			if !propIDs[sid] {
				res.AddHardError(types.CheckAIFValidity,
					fmt.Sprintf("Relation %d source_prop_id not found: %s", i, sid),
					types.Detail{
						"relation_index": types.IntValue(i),
						"proposition_id": types.StringValue(sid),
					})
			}
		}
		if !propIDs[r.TargetPropID] {
			res.AddHardError(types.CheckAIFValidity,
				fmt.Sprintf("Relation %d target_prop_id not found: %s", i, r.TargetPropID),
				types.Detail{
					"relation_index": types.IntValue(i),
					"proposition_id": types.StringValue(r.TargetPropID),
				})
		}
	}
}
