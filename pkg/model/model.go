package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Query is a single (start, target) pair of a workload.
type Query struct {
	Start  int `json:"start"`
	Target int `json:"target"`
}

// MarshalJSON encodes a query as a two element array [start, target]
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{q.Start, q.Target})
}

// UnmarshalJSON accepts the [start, target] array form. Pairs with any
// other number of elements are rejected.
func (q *Query) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("query must be a [start, target] pair, got %d elements", len(pair))
	}
	q.Start, q.Target = pair[0], pair[1]
	return nil
}

// WalkResult is the outcome of simulating one query.
type WalkResult struct {
	Query   Query `json:"query"`
	Path    []int `json:"path"`    // Visited nodes, starting with Query.Start
	Success bool  `json:"success"` // Target reached within the depth limit
	Hops    int   `json:"hops"`    // Steps taken; MaxDepth+1 on failure
}

// Measure is a statistic that may be undefined (NaN), e.g. the median path
// length of a run without successful walks. It encodes to JSON null when
// undefined.
type Measure float64

// Undefined is the Measure value for statistics with no samples.
var Undefined = Measure(math.NaN())

// Defined reports whether the measure carries a value
func (m Measure) Defined() bool {
	return !math.IsNaN(float64(m))
}

// String renders the measure, or "undefined".
func (m Measure) String() string {
	if !m.Defined() {
		return "undefined"
	}
	return strconv.FormatFloat(float64(m), 'f', 2, 64)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Measure(f)
	return nil
}

// Report aggregates the results of one evaluation run.
type Report struct {
	RunID       string  `json:"run_id,omitempty"`
	Seed        uint64  `json:"seed"`
	GraphHash   string  `json:"graph_hash"`
	Nodes       int     `json:"nodes"`
	EdgeCount   int     `json:"edge_count"`
	MaxDepth    int     `json:"max_depth"`
	Total       int     `json:"total"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
	MedianHops  Measure `json:"median_hops"`
	MeanHops    Measure `json:"mean_hops"`
	P90Hops     Measure `json:"p90_hops"`
	P99Hops     Measure `json:"p99_hops"`
	// ShortestHops is the mean shortest-path length over the workload,
	// a lower bound for MeanHops.
	ShortestHops Measure `json:"shortest_hops"`
	Score        float64 `json:"score"`
}

// Failures returns the number of walks that did not reach their target
func (r *Report) Failures() int {
	return r.Total - r.Successes
}
