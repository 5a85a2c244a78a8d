package workload

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Bin is a contiguous range of nodes with the expected number of queries
// targeting it.
type Bin struct {
	From, To int // inclusive
	Expected float64
}

// Distribution is the exact target distribution of a workload.
type Distribution struct {
	Probabilities []float64 // per node
	MostLikely    int
	First10       float64 // cumulative mass of nodes 0-9
	First50       float64
	First100      float64
	Bins          []Bin
}

// TargetDistribution computes the probability that a generated query
// targets each node: the mass of [k, k+1) under the exponential, summed over
// every k that wraps onto the node. binSize groups nodes for the expected
// query counts.
func TargetDistribution(opts Options, binSize int) Distribution {
	exp := distuv.Exponential{Rate: opts.Lambda}
	// Each lap around the index space scales the mass by exp(-λN).
	wrap := 1 / -math.Expm1(-opts.Lambda*float64(opts.Nodes))

	probs := make([]float64, opts.Nodes)
	for i := range probs {
		probs[i] = (exp.CDF(float64(i+1)) - exp.CDF(float64(i))) * wrap
	}

	d := Distribution{
		Probabilities: probs,
		MostLikely:    floats.MaxIdx(probs),
		First10:       prefixMass(probs, 10),
		First50:       prefixMass(probs, 50),
		First100:      prefixMass(probs, 100),
	}

	if binSize > 0 {
		for from := 0; from < opts.Nodes; from += binSize {
			to := min(from+binSize, opts.Nodes)
			d.Bins = append(d.Bins, Bin{
				From:     from,
				To:       to - 1,
				Expected: floats.Sum(probs[from:to]) * float64(opts.Queries),
			})
		}
	}
	return d
}

func prefixMass(probs []float64, n int) float64 {
	return floats.Sum(probs[:min(n, len(probs))])
}
