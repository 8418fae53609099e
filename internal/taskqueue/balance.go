package taskqueue

import (
	"slices"
)

// candidate is an eligible member with its current workload.
type candidate struct {
	id      string
	pending int
}

// uniqueIDs flattens members of several roles into distinct ids, keeping
// the first occurrence of each.
func uniqueIDs(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, id := range g {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// leastLoaded returns up to n of ids with the fewest pending tasks. Ties
// keep the order of ids. When there are no more than n candidates all of
// them are returned in their original order.
func leastLoaded(ids []string, pending map[string]int, n int) []string {
	if n < 1 {
		n = 1
	}
	if len(ids) <= n {
		return append([]string(nil), ids...)
	}

	cands := make([]candidate, len(ids))
	for i, id := range ids {
		cands[i] = candidate{id: id, pending: pending[id]}
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return a.pending - b.pending
	})

	out := make([]string, n)
	for i := range out {
		out[i] = cands[i].id
	}
	return out
}
