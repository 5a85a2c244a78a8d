package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("Parse(%v) failed: %v", args, err)
	}
	return f
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Nodes != 500 {
		t.Errorf("Expected 500 nodes, got %d", cfg.Nodes)
	}
	if cfg.EdgeBudget != 1000 {
		t.Errorf("Expected edge budget 1000, got %d", cfg.EdgeBudget)
	}
	if cfg.Lambda != 0.1 {
		t.Errorf("Expected lambda 0.1, got %g", cfg.Lambda)
	}
	if cfg.SeedNodes != 10 {
		t.Errorf("Expected 10 seed nodes, got %d", cfg.SeedNodes)
	}
	if cfg.MaxDepth != 10000 {
		t.Errorf("Expected max depth 10000, got %d", cfg.MaxDepth)
	}
	if cfg.Queries != 200 {
		t.Errorf("Expected 200 queries, got %d", cfg.Queries)
	}
	if cfg.Boundary != BoundaryWrap {
		t.Errorf("Expected boundary %q, got %q", BoundaryWrap, cfg.Boundary)
	}
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hopgraph.toml")
	content := "max-depth = 500\nqueries = 50\nskip-distance = 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("HOPGRAPH_QUERIES", "75")
	t.Setenv("HOPGRAPH_SKIP_DISTANCE", "4")

	cfg, err := Load(newFlags(t, "--config", path, "--skip-distance", "6"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// File only
	if cfg.MaxDepth != 500 {
		t.Errorf("Expected max depth from file (500), got %d", cfg.MaxDepth)
	}
	// Env overrides file
	if cfg.Queries != 75 {
		t.Errorf("Expected queries from env (75), got %d", cfg.Queries)
	}
	// Flag overrides env
	if cfg.SkipDistance != 6 {
		t.Errorf("Expected skip distance from flag (6), got %d", cfg.SkipDistance)
	}
	// Untouched default
	if cfg.Nodes != 500 {
		t.Errorf("Expected default nodes (500), got %d", cfg.Nodes)
	}
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.toml")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Nodes != 500 {
		t.Errorf("Expected default nodes, got %d", cfg.Nodes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero lambda", func(c *Config) { c.Lambda = 0 }},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }},
		{"budget below nodes", func(c *Config) { c.EdgeBudget = c.Nodes - 1 }},
		{"too many seed nodes", func(c *Config) { c.SeedNodes = c.Nodes + 1 }},
		{"unknown boundary", func(c *Config) { c.Boundary = "bounce" }},
		{"unknown format", func(c *Config) { c.Format = "xml" }},
		{"NaN lambda", func(c *Config) { c.Lambda = math.NaN() }},
		{"infinite lambda", func(c *Config) { c.Lambda = math.Inf(1) }},
		{"negative queries", func(c *Config) { c.Queries = -1 }},
		{"too many queries", func(c *Config) { c.Queries = QueriesLimit + 1 }},
		{"depth above limit", func(c *Config) { c.MaxDepth = 2_000_000_000 }},
		{"run too long", func(c *Config) { c.Queries, c.MaxDepth = QueriesLimit, DepthLimit }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestValidateAcceptsLimits(t *testing.T) {
	cfg := Default()
	cfg.MaxDepth = DepthLimit
	cfg.Queries = RunStepsLimit / DepthLimit
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected limits to be accepted, got %v", err)
	}
}

func TestLogFormatFromFlag(t *testing.T) {
	cfg, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.toml"), "--log-format", "json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("Expected log format %q, got %q", LogFormatJSON, cfg.LogFormat)
	}
}

func TestLoadRejectsInvalidFlag(t *testing.T) {
	if _, err := Load(newFlags(t, "--lambda", "-1", "--config", filepath.Join(t.TempDir(), "none.toml"))); err == nil {
		t.Error("Expected error for negative lambda")
	}
}
