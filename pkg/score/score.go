// Package score aggregates walk results into a report.
package score

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ritzau/hopgraph/pkg/model"
)

// Func combines the success rate and the median successful path length
// into a single ranking value. The evaluation harness decides the formula;
// Default is used when none is supplied.
type Func func(successRate float64, medianHops model.Measure) float64

// Default rewards success and penalizes long paths: rate / (1 + median).
// A run without successes scores 0.
func Default(successRate float64, medianHops model.Measure) float64 {
	if !medianHops.Defined() {
		return 0
	}
	return successRate / (1 + float64(medianHops))
}

// Aggregate computes success rate and path length statistics over results.
// Path length statistics only consider successful walks and are undefined
// when there are none.
func Aggregate(results []model.WalkResult, fn Func) model.Report {
	if fn == nil {
		fn = Default
	}

	report := model.Report{
		Total:      len(results),
		MedianHops: model.Undefined,
		MeanHops:   model.Undefined,
		P90Hops:    model.Undefined,
		P99Hops:    model.Undefined,
	}

	hops := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Success {
			report.Successes++
			hops = append(hops, float64(r.Hops))
		}
	}

	if report.Total > 0 {
		report.SuccessRate = float64(report.Successes) / float64(report.Total)
	}

	if len(hops) > 0 {
		sort.Float64s(hops)
		report.MedianHops = model.Measure(Median(hops))
		report.MeanHops = model.Measure(stat.Mean(hops, nil))
		report.P90Hops = model.Measure(stat.Quantile(0.9, stat.Empirical, hops, nil))
		report.P99Hops = model.Measure(stat.Quantile(0.99, stat.Empirical, hops, nil))
	}

	report.Score = fn(report.SuccessRate, report.MedianHops)
	return report
}

// Median of an ascending slice; the mean of the two middle values for even
// lengths.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
