package workload

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/model"
)

func defaultOptions() Options {
	return FromConfig(config.Default())
}

func TestGenerateUsesSeedNodes(t *testing.T) {
	opts := defaultOptions()
	queries, err := Generate(opts, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(queries) != 200 {
		t.Fatalf("Expected 200 queries, got %d", len(queries))
	}

	starts := make(map[int]bool)
	for _, q := range queries {
		starts[q.Start] = true
		if q.Target < 0 || q.Target >= opts.Nodes {
			t.Errorf("Target %d outside node range", q.Target)
		}
	}
	if len(starts) > 10 {
		t.Errorf("Expected at most 10 distinct starts, got %d", len(starts))
	}
}

func TestGenerateAllNodesAsStarts(t *testing.T) {
	opts := defaultOptions()
	opts.SeedNodes = 0
	opts.Queries = 2000

	queries, err := Generate(opts, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	starts := make(map[int]bool)
	for _, q := range queries {
		starts[q.Start] = true
	}
	if len(starts) < 100 {
		t.Errorf("Expected starts spread over many nodes, got %d distinct", len(starts))
	}
}

func TestGenerateReproducible(t *testing.T) {
	opts := defaultOptions()
	a, _ := Generate(opts, rand.New(rand.NewPCG(9, 9)))
	b, _ := Generate(opts, rand.New(rand.NewPCG(9, 9)))

	if !reflect.DeepEqual(a, b) {
		t.Error("Same seed should produce the same workload")
	}
}

func TestGenerateTargetsAreSkewed(t *testing.T) {
	opts := defaultOptions()
	opts.Queries = 20000

	queries, err := Generate(opts, rand.New(rand.NewPCG(5, 6)))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	first10 := 0
	for _, q := range queries {
		if q.Target < 10 {
			first10++
		}
	}

	// 1 - e^-1 of the mass falls on nodes 0-9
	got := float64(first10) / float64(len(queries))
	want := 1 - math.Exp(-1)
	if math.Abs(got-want) > 0.02 {
		t.Errorf("Expected about %.3f of targets below 10, got %.3f", want, got)
	}
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	opts := defaultOptions()
	opts.Lambda = 0
	if _, err := Generate(opts, rand.New(rand.NewPCG(1, 1))); err == nil {
		t.Error("Expected error for zero lambda")
	}

	opts = defaultOptions()
	opts.SeedNodes = opts.Nodes + 1
	if _, err := Generate(opts, rand.New(rand.NewPCG(1, 1))); err == nil {
		t.Error("Expected error for too many seed nodes")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	queries := []model.Query{{Start: 3, Target: 0}, {Start: 499, Target: 12}}

	if err := Save(path, queries); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, 500)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, queries) {
		t.Errorf("Expected %v, got %v", queries, loaded)
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	if err := os.WriteFile(path, []byte("[[1, 2], [3, 700]]"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := Load(path, 500); err == nil {
		t.Error("Expected error for target outside node range")
	}
}

func TestGenerateWrapsExtremeTargets(t *testing.T) {
	// Tiny rates give samples far beyond the int range
	for _, lambda := range []float64{1e-20, 1e-300} {
		opts := defaultOptions()
		opts.Lambda = lambda

		queries, err := Generate(opts, RNG(1))
		if err != nil {
			t.Fatalf("lambda %g: Generate failed: %v", lambda, err)
		}
		for i, q := range queries {
			if q.Target < 0 || q.Target >= opts.Nodes {
				t.Fatalf("lambda %g: query %d target %d outside [0,%d)", lambda, i, q.Target, opts.Nodes)
			}
		}
	}
}

func TestWrapTarget(t *testing.T) {
	tests := []struct {
		x    float64
		want int
	}{
		{0, 0},
		{499.99, 499},
		{500, 0},
		{1234.5, 234},
		{1e19, 0},
		{math.Inf(1), int(math.Mod(math.MaxFloat64, 500))},
	}

	for _, tt := range tests {
		if got := wrapTarget(tt.x, 500); got != tt.want {
			t.Errorf("wrapTarget(%g, 500) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestGenerateRejectsNaNLambda(t *testing.T) {
	opts := defaultOptions()
	opts.Lambda = math.NaN()
	if _, err := Generate(opts, RNG(1)); err == nil {
		t.Error("Expected error for NaN lambda")
	}
}

func TestLoadRejectsMalformedPair(t *testing.T) {
	for _, content := range []string{"[[5]]", "[[1, 2, 3]]", "[[]]", `[{"start": 1, "target": 2}]`} {
		path := filepath.Join(t.TempDir(), "queries.json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		if queries, err := Load(path, 500); err == nil {
			t.Errorf("Expected error for %s, got %v", content, queries)
		}
	}
}

func TestTargetDistribution(t *testing.T) {
	d := TargetDistribution(defaultOptions(), 10)

	if d.MostLikely != 0 {
		t.Errorf("Expected node 0 to be most likely, got %d", d.MostLikely)
	}

	sum := 0.0
	for _, p := range d.Probabilities {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Probabilities should sum to 1, got %g", sum)
	}

	if want := 1 - math.Exp(-1); math.Abs(d.First10-want) > 1e-6 {
		t.Errorf("Expected first 10 mass %.6f, got %.6f", want, d.First10)
	}
	if !(d.First10 < d.First50 && d.First50 < d.First100) {
		t.Errorf("Cumulative mass should grow: %g %g %g", d.First10, d.First50, d.First100)
	}

	if len(d.Bins) != 50 {
		t.Fatalf("Expected 50 bins, got %d", len(d.Bins))
	}
	if d.Bins[0].From != 0 || d.Bins[0].To != 9 {
		t.Errorf("Unexpected first bin %+v", d.Bins[0])
	}
	expected := 0.0
	for _, b := range d.Bins {
		expected += b.Expected
	}
	if math.Abs(expected-200) > 1e-6 {
		t.Errorf("Expected bin counts to sum to 200, got %g", expected)
	}
}
