// Package graph implements the dependency graph cache (C6) and the
// topological sort shared by the dependency graph cache and the subsystem
// builder (C7), grounded on the teacher's
// registry.ModuleRegistry.GetDependencyOrder Kahn's-algorithm
// implementation.
package graph

import (
	"fmt"
	"sort"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

// TopoSort computes a topological order over nodes given a set of "dep ->
// dependent" edges (edges[d] lists every node that depends on d). Ties are
// broken by ascending lexicographic node name, for determinism across runs.
// Returns foundation.ErrCycle (with the unresolved node names) if the graph
// is not acyclic.
func TopoSort(nodes []string, edges map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n] = 0
	}
	for dep, dependents := range edges {
		if _, ok := inDegree[dep]; !ok {
			continue
		}
		for _, d := range dependents {
			if _, ok := inDegree[d]; ok {
				inDegree[d]++
			}
		}
	}

	ready := make([]string, 0, len(nodes))
	for n, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var newlyReady []string
		for _, d := range edges[n] {
			if _, ok := inDegree[d]; !ok {
				continue
			}
			inDegree[d]--
			if inDegree[d] == 0 {
				newlyReady = append(newlyReady, d)
			}
		}
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(nodes) {
		var stuck []string
		resolved := make(map[string]bool, len(order))
		for _, n := range order {
			resolved[n] = true
		}
		for _, n := range nodes {
			if !resolved[n] {
				stuck = append(stuck, n)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %v", foundation.ErrCycle, stuck)
	}

	return order, nil
}

// SortedKey joins a set of facet kinds into the canonical cache key: sorted
// ascending, comma-joined. The builder uses it as the dependency graph
// cache (C6) key.
func SortedKey(kinds []string) string {
	cp := append([]string(nil), kinds...)
	sort.Strings(cp)
	out := ""
	for i, k := range cp {
		if i > 0 {
			out += ","
		}
		out += k
	}
	return out
}
