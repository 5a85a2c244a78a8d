package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the config file read when --config is not given.
const DefaultFile = "hopgraph.toml"

// Boundary policies for outer ring destinations past the ring's end.
const (
	BoundaryWrap  = "wrap"
	BoundaryClamp = "clamp"
)

// Upper bounds for a single run. A failing walk records MaxDepth+1 path
// entries, so the total step count bounds the memory of a run.
const (
	QueriesLimit  = 100_000
	DepthLimit    = 1_000_000
	RunStepsLimit = 100_000_000 // queries * max-depth
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all configuration for the application
type Config struct {
	// Budgets and workload
	Nodes      int     `koanf:"nodes"`
	EdgeBudget int     `koanf:"edge-budget"`
	Lambda     float64 `koanf:"lambda"`
	SeedNodes  int     `koanf:"seed-nodes"` // 0 draws starts from all nodes
	Queries    int     `koanf:"queries"`
	MaxDepth   int     `koanf:"max-depth"`
	Seed       uint64  `koanf:"seed"`
	Workers    int     `koanf:"workers"`

	// Builder heuristic
	InnerSize    int     `koanf:"inner-size"`
	OuterEnd     int     `koanf:"outer-end"`
	SkipDistance int     `koanf:"skip-distance"`
	NextWeight   float64 `koanf:"next-weight"`
	SkipWeight   float64 `koanf:"skip-weight"`
	ResetWeight  float64 `koanf:"reset-weight"`
	Boundary     string  `koanf:"boundary"`

	// Files and presentation
	ConfigFile  string `koanf:"config"`
	GraphFile   string `koanf:"graph"`
	QueriesFile string `koanf:"queries-file"`
	Format      string `koanf:"format"`
	Port        int    `koanf:"port"`
	Watch       bool   `koanf:"watch"`
	Verbosity   string `koanf:"verbosity"`
	VerboseCnt  int    `koanf:"verbose"`
	LogFormat   string `koanf:"log-format"`
}

var defaults = map[string]interface{}{
	"nodes":         500,
	"edge-budget":   1000,
	"lambda":        0.1,
	"seed-nodes":    10,
	"queries":       200,
	"max-depth":     10000,
	"seed":          42,
	"workers":       1,
	"inner-size":    10,
	"outer-end":     50,
	"skip-distance": 5,
	"next-weight":   10.0,
	"skip-weight":   7.0,
	"reset-weight":  1.0,
	"boundary":      BoundaryWrap,
	"config":        DefaultFile,
	"graph":         "",
	"queries-file":  "",
	"format":        "text",
	"port":          8080,
	"watch":         false,
	"verbosity":     "",
	"verbose":       0,
	"log-format":    LogFormatText,
}

// Default returns the built-in configuration without consulting files,
// environment or flags.
func Default() *Config {
	cfg, err := load(nil, false)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// RegisterFlags adds every configuration key as a flag on f.
func RegisterFlags(f *pflag.FlagSet) {
	f.Int("nodes", defaults["nodes"].(int), "Number of nodes in the graph")
	f.Int("edge-budget", defaults["edge-budget"].(int), "Maximum number of edges")
	f.Float64("lambda", defaults["lambda"].(float64), "Rate of the exponential target distribution")
	f.Int("seed-nodes", defaults["seed-nodes"].(int), "Number of start nodes (0 = all nodes)")
	f.Int("queries", defaults["queries"].(int), "Number of queries per evaluation run")
	f.Int("max-depth", defaults["max-depth"].(int), "Step budget of a single walk")
	f.Uint64("seed", uint64(defaults["seed"].(int)), "Random seed for workload and walks")
	f.Int("workers", defaults["workers"].(int), "Parallel walk workers (1 = sequential)")
	f.Int("inner-size", defaults["inner-size"].(int), "Size of the inner ring")
	f.Int("outer-end", defaults["outer-end"].(int), "First overflow node (end of the outer ring)")
	f.Int("skip-distance", defaults["skip-distance"].(int), "Distance of outer ring skip edges")
	f.Float64("next-weight", defaults["next-weight"].(float64), "Weight of outer ring next edges")
	f.Float64("skip-weight", defaults["skip-weight"].(float64), "Weight of outer ring skip edges")
	f.Float64("reset-weight", defaults["reset-weight"].(float64), "Weight of outer ring reset edges")
	f.String("boundary", defaults["boundary"].(string), "Outer ring boundary policy: wrap or clamp")
	f.String("config", DefaultFile, "Path to a TOML config file")
	f.String("graph", "", "Graph file (.json, .msgp, .msgp.lz4)")
	f.String("queries-file", "", "Query workload file (JSON)")
	f.String("format", defaults["format"].(string), "Report format: text or json")
	f.Int("port", defaults["port"].(int), "Port for the web server")
	f.Bool("watch", false, "Re-evaluate when the config file changes")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.String("log-format", defaults["log-format"].(string), "Log output format: text or json")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return load(f, true)
}

func load(f *pflag.FlagSet, external bool) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if external {
		// 2. Config File (optional). A missing file is not an error.
		path := DefaultFile
		if f != nil {
			if p, err := f.GetString("config"); err == nil && p != "" {
				path = p
			}
		}
		_ = k.Load(file.Provider(path), toml.Parser())

		// 3. Environment Variables
		// Prefix: HOPGRAPH_ (e.g., HOPGRAPH_MAX_DEPTH=5000)
		if err := k.Load(env.Provider("HOPGRAPH_", ".", func(s string) string {
			return strings.ReplaceAll(strings.ToLower(
				strings.TrimPrefix(s, "HOPGRAPH_")), "_", "-")
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load env vars: %w", err)
		}

		// 4. Flags
		if f != nil {
			if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
				return nil, fmt.Errorf("failed to load flags: %w", err)
			}
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the builder or simulator cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Nodes < 1:
		return fmt.Errorf("nodes must be positive, got %d", c.Nodes)
	case c.EdgeBudget < c.Nodes:
		return fmt.Errorf("edge-budget %d cannot cover %d nodes", c.EdgeBudget, c.Nodes)
	case !(c.Lambda > 0) || math.IsInf(c.Lambda, 1):
		return fmt.Errorf("lambda must be positive and finite, got %g", c.Lambda)
	case c.SeedNodes < 0 || c.SeedNodes > c.Nodes:
		return fmt.Errorf("seed-nodes must be in [0,%d], got %d", c.Nodes, c.SeedNodes)
	case c.Queries < 0 || c.Queries > QueriesLimit:
		return fmt.Errorf("queries must be in [0,%d], got %d", QueriesLimit, c.Queries)
	case c.MaxDepth < 1 || c.MaxDepth > DepthLimit:
		return fmt.Errorf("max-depth must be in [1,%d], got %d", DepthLimit, c.MaxDepth)
	case int64(c.Queries)*int64(c.MaxDepth) > RunStepsLimit:
		return fmt.Errorf("queries * max-depth must not exceed %d, got %d * %d", RunStepsLimit, c.Queries, c.MaxDepth)
	case c.Boundary != BoundaryWrap && c.Boundary != BoundaryClamp:
		return fmt.Errorf("boundary must be %q or %q, got %q", BoundaryWrap, BoundaryClamp, c.Boundary)
	case c.Format != "text" && c.Format != "json":
		return fmt.Errorf("format must be text or json, got %q", c.Format)
	case c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON:
		return fmt.Errorf("log-format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
