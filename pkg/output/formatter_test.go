package output

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/hopgraph/pkg/analysis"
	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/model"
)

func init() {
	color.NoColor = true
}

func sampleReport() model.Report {
	return model.Report{
		RunID:        "run-1",
		Seed:         42,
		Nodes:        500,
		EdgeCount:    580,
		MaxDepth:     10000,
		Total:        200,
		Successes:    199,
		SuccessRate:  0.995,
		MedianHops:   8,
		MeanHops:     12.5,
		P90Hops:      30,
		P99Hops:      61,
		ShortestHops: 7.25,
		Score:        0.1106,
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleReport())
	out := buf.String()

	for _, want := range []string{
		"Run: run-1",
		"Graph: 500 nodes, 580 edges",
		"Success rate: 99.50% (199/200)",
		"Failed walks: 1",
		"Median hops:  8.00",
		"Shortest:     7.25",
		"Score: 0.1106",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintReportUndefinedMedian(t *testing.T) {
	report := model.Report{
		Total:        5,
		MedianHops:   model.Undefined,
		MeanHops:     model.Undefined,
		P90Hops:      model.Undefined,
		P99Hops:      model.Undefined,
		ShortestHops: model.Undefined,
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	out := buf.String()

	if !strings.Contains(out, "Median hops:  undefined") {
		t.Errorf("Expected undefined median, got:\n%s", out)
	}
	if !strings.Contains(out, "Failed walks: 5") {
		t.Errorf("Expected all walks failed, got:\n%s", out)
	}
}

func TestWriteReportJSON(t *testing.T) {
	report := sampleReport()
	report.MedianHops = model.Undefined

	var buf bytes.Buffer
	if err := WriteReport(&buf, FormatJSON, report); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded["median_hops"] != nil {
		t.Errorf("Expected null median, got %v", decoded["median_hops"])
	}
	if decoded["success_rate"] != 0.995 {
		t.Errorf("Expected success rate 0.995, got %v", decoded["success_rate"])
	}
}

func TestWriteReportUnknownFormat(t *testing.T) {
	if err := WriteReport(&bytes.Buffer{}, "yaml", sampleReport()); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestPrintInspection(t *testing.T) {
	in, err := analysis.Inspect(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	var buf bytes.Buffer
	PrintInspection(&buf, in)
	out := buf.String()

	for _, want := range []string{
		"Source: builder",
		"Edges: 580 of 1000",
		"inner",
		"overflow",
		"recurrent",
		"[0, 49] (50 nodes)",
		"Most likely node: 0",
		"First 10 nodes:   63.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDescribeClass(t *testing.T) {
	tests := []struct {
		nodes []int
		want  string
	}{
		{nil, "{}"},
		{[]int{7}, "{7}"},
		{[]int{0, 1, 2}, "[0, 2] (3 nodes)"},
		{[]int{1, 5}, "[1 5] (2 nodes)"},
	}
	for _, tt := range tests {
		if got := describeClass(tt.nodes); got != tt.want {
			t.Errorf("describeClass(%v): expected %q, got %q", tt.nodes, tt.want, got)
		}
	}
}
