// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"strings"

	"github.com/pdiddy/argmap/pkg/types"
)

// checkCycles looks for circular support among the window's propositions.
// Only the first cycle found is reported.
func checkCycles(f *types.Fragment, res *types.ValidationResult) {
	cycle := findSupportCycle(f)
	if cycle == nil {
		return
	}
	res.AddSoftWarning(types.CheckCycles,
		"Cyclic support detected in extraction window: "+strings.Join(cycle, " -> "),
		types.Detail{"cycle": types.StringsValue(cycle)})
}

// findSupportCycle runs a depth-first search over support edges whose
// endpoints are both propositions of the fragment. Roots are visited in
// proposition order and edges in relation order, so the result is
// deterministic. The returned path starts and ends at the same id.
func findSupportCycle(f *types.Fragment) []string {
	propIDs := f.PropositionIDs()
	adj := make(map[string][]string)
	for _, r := range f.Relations {
		if r.Type != types.RelationSupport || !propIDs[r.TargetPropID] {
			continue
		}
		for _, src := range r.SourcePropIDs {
			if propIDs[src] {
				adj[src] = append(adj[src], r.TargetPropID)
			}
		}
	}
	if len(adj) == 0 {
		return nil
	}

	// done: fully explored and not on a cycle. onStack: on the current path.
	done := make(map[string]bool)
	onStack := make(map[string]int)
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		if done[id] {
			return nil
		}
		if at, ok := onStack[id]; ok {
			cycle := append([]string(nil), path[at:]...)
			return append(cycle, id)
		}
		onStack[id] = len(path)
		path = append(path, id)
		for _, next := range adj[id] {
			if c := visit(next); c != nil {
				return c
			}
		}
		path = path[:len(path)-1]
		delete(onStack, id)
		done[id] = true
		return nil
	}

	for _, p := range f.Propositions {
		if p.ID == "" || done[p.ID] {
			continue
		}
		if c := visit(p.ID); c != nil {
			return c
		}
	}
	return nil
}
