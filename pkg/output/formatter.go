package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/hopgraph/pkg/analysis"
	"github.com/ritzau/hopgraph/pkg/model"
)

// Text and JSON are the supported report formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// binBarWidth is the number of characters of the largest distribution bar.
const binBarWidth = 40

// WriteReport writes the report in the requested format.
func WriteReport(w io.Writer, format string, report model.Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatText, "":
		PrintReport(w, report)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// PrintReport prints a nicely formatted evaluation report with colors
func PrintReport(w io.Writer, report model.Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Walk Evaluation Report")
	bold.Fprintln(w, "======================")
	if report.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}
	fmt.Fprintf(w, "Graph: %d nodes, %d edges\n", report.Nodes, report.EdgeCount)
	fmt.Fprintf(w, "Queries: %d (seed %d, max depth %d)\n", report.Total, report.Seed, report.MaxDepth)
	fmt.Fprintln(w)

	rateColor := green
	if report.SuccessRate < 1 {
		rateColor = yellow
	}
	if report.SuccessRate < 0.9 {
		rateColor = red
	}
	rateColor.Fprintf(w, "Success rate: %.2f%% (%d/%d)\n", report.SuccessRate*100, report.Successes, report.Total)
	if failures := report.Failures(); failures > 0 {
		yellow.Fprintf(w, "Failed walks: %d\n", failures)
	}

	fmt.Fprintf(w, "Median hops:  %s\n", report.MedianHops)
	fmt.Fprintf(w, "Mean hops:    %s\n", report.MeanHops)
	fmt.Fprintf(w, "P90 hops:     %s\n", report.P90Hops)
	fmt.Fprintf(w, "P99 hops:     %s\n", report.P99Hops)
	cyan.Fprintf(w, "Shortest:     %s (mean shortest path)\n", report.ShortestHops)
	fmt.Fprintln(w)

	bold.Fprintf(w, "Score: %.4f\n", report.Score)
}

// PrintInspection prints the structure of a graph and the target
// distribution it is designed for.
func PrintInspection(w io.Writer, in *analysis.Inspection) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Graph Inspection")
	bold.Fprintln(w, "================")
	fmt.Fprintf(w, "Source: %s\n", in.Source)
	budgetColor := green
	if in.Edges*10 > in.EdgeBudget*9 {
		budgetColor = yellow
	}
	budgetColor.Fprintf(w, "Edges: %d of %d\n", in.Edges, in.EdgeBudget)
	fmt.Fprintf(w, "Nodes: %d\n", in.Nodes)
	fmt.Fprintln(w)

	bold.Fprintln(w, "TIERS:")
	for _, t := range in.Tiers {
		fmt.Fprintf(w, "  %-9s %4d nodes %4d edges  reset %.4f\n", t.Tier, t.Nodes, t.Edges, t.ResetProbability)
	}
	fmt.Fprintln(w)

	bold.Fprintf(w, "COMPONENTS: %d strongly connected, %d recurrent\n", in.Classes, len(in.Recurrent))
	for _, c := range in.Recurrent {
		cyan.Fprintf(w, "  %s\n", describeClass(c.Nodes))
	}
	fmt.Fprintln(w)

	d := in.Distribution
	bold.Fprintf(w, "TARGETS (λ = %g):\n", in.Lambda)
	fmt.Fprintf(w, "  Most likely node: %d\n", d.MostLikely)
	fmt.Fprintf(w, "  First 10 nodes:   %.2f%%\n", d.First10*100)
	fmt.Fprintf(w, "  First 50 nodes:   %.2f%%\n", d.First50*100)
	fmt.Fprintf(w, "  First 100 nodes:  %.2f%%\n", d.First100*100)

	peak := 0.0
	for _, b := range d.Bins {
		peak = max(peak, b.Expected)
	}
	for _, b := range d.Bins {
		if b.Expected < 0.005 {
			continue
		}
		bar := 0
		if peak > 0 {
			bar = int(b.Expected / peak * binBarWidth)
		}
		fmt.Fprintf(w, "  %4d-%-4d %8.2f %s\n", b.From, b.To, b.Expected, strings.Repeat("#", bar))
	}
}

// describeClass renders a sorted node list, collapsing it to a range when
// it is contiguous.
func describeClass(nodes []int) string {
	if len(nodes) == 0 {
		return "{}"
	}
	first, last := nodes[0], nodes[len(nodes)-1]
	if last-first+1 == len(nodes) {
		if len(nodes) == 1 {
			return fmt.Sprintf("{%d}", first)
		}
		return fmt.Sprintf("[%d, %d] (%d nodes)", first, last, len(nodes))
	}
	return fmt.Sprintf("%v (%d nodes)", nodes, len(nodes))
}
