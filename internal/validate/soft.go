// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"fmt"

	"github.com/pdiddy/argmap/pkg/types"
)

// Overgeneration ratios.
const (
	maxPropsPerLocution = 2
	maxRelationsPerProp = 3
)

func checkOvergeneration(f *types.Fragment, res *types.ValidationResult) {
	locs, props, rels := len(f.Locutions), len(f.Propositions), len(f.Relations)

	if props > locs*maxPropsPerLocution {
		res.AddSoftWarning(types.CheckOvergeneration,
			fmt.Sprintf("Too many propositions (%d) relative to locutions (%d)", props, locs),
			types.Detail{
				"proposition_count": types.IntValue(props),
				"locution_count":    types.IntValue(locs),
			})
	}
	if rels > props*maxRelationsPerProp {
		res.AddSoftWarning(types.CheckOvergeneration,
			fmt.Sprintf("Too many relations (%d) relative to propositions (%d)", rels, props),
			types.Detail{
				"relation_count":    types.IntValue(rels),
				"proposition_count": types.IntValue(props),
			})
	}
}

// checkUnrelatedConflict warns when the propositions named by a conflict
// relation share no concept label and no entity id pairwise.
func checkUnrelatedConflict(f *types.Fragment, res *types.ValidationResult) {
	concepts := make(map[string]map[string]bool, len(f.Propositions))
	entities := make(map[string]map[string]bool, len(f.Propositions))
	for _, p := range f.Propositions {
		if p.ID == "" {
			continue
		}
		cs, es := make(map[string]bool), make(map[string]bool)
		for _, cb := range p.ConceptBindings {
			if cb.Label != "" {
				cs[cb.Label] = true
			}
		}
		for _, eb := range p.EntityBindings {
			if eb.EntityID != "" {
				es[eb.EntityID] = true
			}
		}
		concepts[p.ID], entities[p.ID] = cs, es
	}

	for i, r := range f.Relations {
		if r.Type != types.RelationConflict {
			continue
		}
		involved := distinct(append(append([]string(nil), r.SourcePropIDs...), r.TargetPropID))
		if relatedPair(involved, concepts, entities) {
			continue
		}
		res.AddSoftWarning(types.CheckUnrelatedConflict,
			fmt.Sprintf("Relation %d is a conflict but propositions share no concepts or entities", i),
			types.Detail{
				"relation_index":  types.IntValue(i),
				"rel_id":          types.StringValue(r.ID),
				"proposition_ids": types.StringsValue(involved),
			})
	}
}

// relatedPair reports whether two distinct ids share a concept or an entity.
func relatedPair(ids []string, concepts, entities map[string]map[string]bool) bool {
	for a := 0; a < len(ids); a++ {
		for b := a + 1; b < len(ids); b++ {
			if intersects(concepts[ids[a]], concepts[ids[b]]) || intersects(entities[ids[a]], entities[ids[b]]) {
				return true
			}
		}
	}
	return false
}

func intersects(x, y map[string]bool) bool {
	if len(x) > len(y) {
		x, y = y, x
	}
	for k := range x {
		if y[k] {
			return true
		}
	}
	return false
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
