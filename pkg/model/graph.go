package model

import "sort"

// Edge is a directed, weighted connection between two nodes.
// Weight is unnormalized selection mass; it is only normalized when a walk
// picks among a node's outgoing edges.
type Edge struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

// Graph maps every node in [0, NodeCount) to its ordered outgoing edges.
// It serves as the common data model for the builder, the simulator, the
// codecs and the inspection tooling. A Graph is not mutated after it has
// been built and validated.
type Graph struct {
	NodeCount int            `json:"node_count"`
	Adjacency map[int][]Edge `json:"adjacency"`
}

// NewGraph creates an empty graph sized for nodeCount nodes.
func NewGraph(nodeCount int) *Graph {
	return &Graph{
		NodeCount: nodeCount,
		Adjacency: make(map[int][]Edge, nodeCount),
	}
}

// AddNode registers a node without edges. Adding an existing node is a no-op.
func (g *Graph) AddNode(node int) {
	if _, exists := g.Adjacency[node]; !exists {
		g.Adjacency[node] = nil
	}
}

// AddEdge appends an outgoing edge to from, registering from as a node.
func (g *Graph) AddEdge(from, to int, weight float64) {
	g.Adjacency[from] = append(g.Adjacency[from], Edge{From: from, To: to, Weight: weight})
}

// EdgesFrom returns the outgoing edges of node in insertion order.
func (g *Graph) EdgesFrom(node int) []Edge {
	return g.Adjacency[node]
}

// HasNode reports whether node appears as a key in the adjacency map.
func (g *Graph) HasNode(node int) bool {
	_, exists := g.Adjacency[node]
	return exists
}

// EdgeCount returns the total number of edges in the graph.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.Adjacency {
		total += len(edges)
	}
	return total
}

// Nodes returns all node ids in ascending order
func (g *Graph) Nodes() []int {
	nodes := make([]int, 0, len(g.Adjacency))
	for node := range g.Adjacency {
		nodes = append(nodes, node)
	}
	sort.Ints(nodes)
	return nodes
}

// Edges returns every edge ordered by source node, then insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.EdgeCount())
	for _, node := range g.Nodes() {
		edges = append(edges, g.Adjacency[node]...)
	}
	return edges
}
