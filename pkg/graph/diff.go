package graph

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"

	"github.com/ritzau/hopgraph/pkg/model"
)

// Diff represents the difference between two graph states. Parallel edges
// between the same pair of nodes are compared by their total weight.
type Diff struct {
	AddedNodes   []int        `json:"addedNodes"`
	RemovedNodes []int        `json:"removedNodes"`
	AddedEdges   []model.Edge `json:"addedEdges"`
	RemovedEdges []model.Edge `json:"removedEdges"`
	Reweighted   []model.Edge `json:"reweighted"` // New weights
}

// Empty reports whether the two graphs were structurally identical
func (d *Diff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 && len(d.Reweighted) == 0
}

type edgeKey struct{ from, to int }

func edgeWeights(g *model.Graph) map[edgeKey]float64 {
	weights := make(map[edgeKey]float64)
	for _, e := range g.Edges() {
		weights[edgeKey{e.From, e.To}] += e.Weight
	}
	return weights
}

// Fingerprint hashes the node count and every edge in order. Equal graphs
// have equal fingerprints.
func Fingerprint(g *model.Graph) string {
	h := sha256.New()
	fmt.Fprintf(h, "n=%d\n", g.NodeCount)
	for _, node := range g.Nodes() {
		fmt.Fprintf(h, "%d:", node)
		for _, e := range g.EdgesFrom(node) {
			fmt.Fprintf(h, " %d/%s", e.To, strconv.FormatFloat(e.Weight, 'g', -1, 64))
		}
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Compare computes the difference from old to updated
func Compare(old, updated *model.Graph) *Diff {
	diff := &Diff{
		AddedNodes:   make([]int, 0),
		RemovedNodes: make([]int, 0),
		AddedEdges:   make([]model.Edge, 0),
		RemovedEdges: make([]model.Edge, 0),
		Reweighted:   make([]model.Edge, 0),
	}

	for _, node := range updated.Nodes() {
		if !old.HasNode(node) {
			diff.AddedNodes = append(diff.AddedNodes, node)
		}
	}
	for _, node := range old.Nodes() {
		if !updated.HasNode(node) {
			diff.RemovedNodes = append(diff.RemovedNodes, node)
		}
	}

	oldWeights := edgeWeights(old)
	newWeights := edgeWeights(updated)

	for key, w := range newWeights {
		prev, existed := oldWeights[key]
		switch {
		case !existed:
			diff.AddedEdges = append(diff.AddedEdges, model.Edge{From: key.from, To: key.to, Weight: w})
		case prev != w:
			diff.Reweighted = append(diff.Reweighted, model.Edge{From: key.from, To: key.to, Weight: w})
		}
	}
	for key, w := range oldWeights {
		if _, exists := newWeights[key]; !exists {
			diff.RemovedEdges = append(diff.RemovedEdges, model.Edge{From: key.from, To: key.to, Weight: w})
		}
	}

	sortEdges(diff.AddedEdges)
	sortEdges(diff.RemovedEdges)
	sortEdges(diff.Reweighted)
	return diff
}

func sortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}
