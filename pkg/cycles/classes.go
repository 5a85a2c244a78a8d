package cycles

import (
	"sort"

	"github.com/ritzau/hopgraph/pkg/graph"
)

// Class is a strongly connected component of a walk graph
type Class struct {
	Nodes []int // ascending
	// Closed classes have no edge leaving them. A walk that enters one
	// stays there forever, so targets outside it become unreachable.
	Closed bool
}

// Contains reports whether node belongs to the class.
func (c Class) Contains(node int) bool {
	i := sort.SearchInts(c.Nodes, node)
	return i < len(c.Nodes) && c.Nodes[i] == node
}

// FindClasses partitions the walk graph into strongly connected components,
// ordered by their smallest node.
func FindClasses(wg *graph.WalkGraph) []Class {
	tarjan := NewTarjanSCC(wg.Graph(), 1)
	sccs := tarjan.FindSCCs()

	classes := make([]Class, 0, len(sccs))
	for _, scc := range sccs {
		nodes := make([]int, len(scc))
		member := make(map[int]bool, len(scc))
		for i, id := range scc {
			nodes[i] = int(id)
			member[int(id)] = true
		}
		sort.Ints(nodes)

		closed := true
		for _, node := range nodes {
			for _, next := range wg.Successors(node) {
				if !member[next] {
					closed = false
					break
				}
			}
			if !closed {
				break
			}
		}

		classes = append(classes, Class{Nodes: nodes, Closed: closed})
	}

	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Nodes[0] < classes[j].Nodes[0]
	})
	return classes
}

// RecurrentClasses returns the closed classes of the walk graph. Every
// sufficiently long walk ends up cycling inside one of them.
func RecurrentClasses(wg *graph.WalkGraph) []Class {
	var closed []Class
	for _, c := range FindClasses(wg) {
		if c.Closed {
			closed = append(closed, c)
		}
	}
	return closed
}

// FindCycles returns the components that contain at least one cycle.
func FindCycles(wg *graph.WalkGraph) []Class {
	var cyclic []Class
	for _, c := range FindClasses(wg) {
		if len(c.Nodes) > 1 {
			cyclic = append(cyclic, c)
		}
	}
	return cyclic
}
