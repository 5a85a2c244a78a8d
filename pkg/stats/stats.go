// Package stats records evaluation metrics in a go-metrics registry.
package stats

import (
	"encoding/json"
	"io"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/ritzau/hopgraph/pkg/model"
)

// Stats is a metrics registry with nil fallbacks: a zero Stats hands out
// metrics that discard every update.
type Stats struct {
	metrics.Registry
}

// New creates a stats registry whose metric names start with name.
func New(name string) Stats {
	return Stats{metrics.NewPrefixedRegistry(name + ".")}
}

// Sub creates a child registry sharing the parent's storage
func (s Stats) Sub(name string) Stats {
	if s.Registry == nil {
		return Stats{metrics.NewPrefixedRegistry(name + ".")} // For testing
	}
	return Stats{metrics.NewPrefixedChildRegistry(s.Registry, name+".")}
}

// Counter creates a counter
func (s Stats) Counter(name string) metrics.Counter {
	if s.Registry == nil {
		return metrics.NilCounter{}
	}
	return metrics.GetOrRegisterCounter(name, s.Registry)
}

// GaugeFloat64 creates a gauge
func (s Stats) GaugeFloat64(name string) metrics.GaugeFloat64 {
	if s.Registry == nil {
		return metrics.NilGaugeFloat64{}
	}
	return metrics.GetOrRegisterGaugeFloat64(name, s.Registry)
}

// Histogram creates a histogram
func (s Stats) Histogram(name string, sample metrics.Sample) metrics.Histogram {
	if s.Registry == nil {
		return metrics.NilHistogram{}
	}
	return metrics.GetOrRegisterHistogram(name, s.Registry, sample)
}

// Timer creates a timer
func (s Stats) Timer(name string) metrics.Timer {
	if s.Registry == nil {
		return metrics.NilTimer{}
	}
	return metrics.GetOrRegisterTimer(name, s.Registry)
}

// Snapshot returns the current value of every metric keyed by full name.
func (s Stats) Snapshot() map[string]map[string]interface{} {
	if s.Registry == nil {
		return map[string]map[string]interface{}{}
	}
	return s.GetAll()
}

// WriteJSON writes the snapshot to w.
func (s Stats) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(s.Snapshot())
}

// hopsReservoir bounds the memory of the hops histogram across runs.
const hopsReservoir = 4096

// Recorder accumulates evaluation metrics over successive runs.
type Recorder struct {
	runs        metrics.Counter
	successes   metrics.Counter
	failures    metrics.Counter
	hops        metrics.Histogram
	duration    metrics.Timer
	successRate metrics.GaugeFloat64
	medianHops  metrics.GaugeFloat64
	score       metrics.GaugeFloat64
}

// NewRecorder registers the evaluation metrics under s.
func NewRecorder(s Stats) *Recorder {
	walks := s.Sub("walks")
	return &Recorder{
		runs:        s.Counter("runs"),
		successes:   walks.Counter("success"),
		failures:    walks.Counter("failure"),
		hops:        walks.Histogram("hops", metrics.NewUniformSample(hopsReservoir)),
		duration:    s.Timer("duration"),
		successRate: s.GaugeFloat64("success_rate"),
		medianHops:  s.GaugeFloat64("median_hops"),
		score:       s.GaugeFloat64("score"),
	}
}

// Record adds one evaluation run. Only successful walks contribute hops.
// The gauges hold the latest report; an undefined median is stored as -1.
func (r *Recorder) Record(results []model.WalkResult, report model.Report, elapsed time.Duration) {
	r.runs.Inc(1)
	for _, res := range results {
		if !res.Success {
			r.failures.Inc(1)
			continue
		}
		r.successes.Inc(1)
		r.hops.Update(int64(res.Hops))
	}

	r.duration.Update(elapsed)
	r.successRate.Update(report.SuccessRate)
	if report.MedianHops.Defined() {
		r.medianHops.Update(float64(report.MedianHops))
	} else {
		r.medianHops.Update(-1)
	}
	r.score.Update(report.Score)
}
