package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/hopgraph/pkg/analysis"
	"github.com/ritzau/hopgraph/pkg/builder"
	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/graph"
	"github.com/ritzau/hopgraph/pkg/graphio"
	"github.com/ritzau/hopgraph/pkg/logging"
	"github.com/ritzau/hopgraph/pkg/model"
	"github.com/ritzau/hopgraph/pkg/pubsub"
	"github.com/ritzau/hopgraph/pkg/stats"
	"github.com/ritzau/hopgraph/pkg/walk"
)

// GraphNode represents a node in the walk graph
type GraphNode struct {
	ID   int          `json:"id"`
	Tier builder.Tier `json:"tier"`
}

// GraphEdge represents a weighted edge with its selection probability
type GraphEdge struct {
	Source      int     `json:"source"`
	Target      int     `json:"target"`
	Weight      float64 `json:"weight"`
	Probability float64 `json:"probability"`
}

// GraphData holds the walk graph for visualization
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EvaluateRequest overrides parts of the server configuration for one run.
// Omitted fields keep their configured value.
type EvaluateRequest struct {
	Seed     *uint64  `json:"seed,omitempty"`
	Queries  *int     `json:"queries,omitempty"`
	Lambda   *float64 `json:"lambda,omitempty"`
	MaxDepth *int     `json:"max_depth,omitempty"`
	Workers  *int     `json:"workers,omitempty"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	runner    *analysis.Runner
	publisher pubsub.Publisher
	stats     stats.Stats

	mu  sync.RWMutex
	cfg *config.Config
}

// NewServer creates a new web server. The publisher should be the one the
// runner publishes to.
func NewServer(cfg *config.Config, runner *analysis.Runner, publisher pubsub.Publisher, st stats.Stats) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		runner:    runner,
		publisher: publisher,
		stats:     st,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

// SetConfig replaces the configuration used for new evaluations
func (s *Server) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Handler returns the router wrapped in the request logging middleware
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// API routes
	s.router.HandleFunc("/api/evaluate", s.handleEvaluate).Methods("POST")
	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/queries", s.handleQueries).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/nodes/{id:[0-9]+}", s.handleNode).Methods("GET")
	s.router.HandleFunc("/api/inspect", s.handleInspect).Methods("GET")
	s.router.HandleFunc("/api/metrics", s.handleMetrics).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// lastEvaluation writes 404 and returns nil until the first run completes
func (s *Server) lastEvaluation(w http.ResponseWriter) *analysis.Evaluation {
	ev := s.runner.Last()
	if ev == nil {
		writeError(w, http.StatusNotFound, "no evaluation has completed yet")
	}
	return ev
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if topic != pubsub.TopicRunStatus && topic != pubsub.TopicReport {
		writeError(w, http.StatusNotFound, "unknown topic "+topic)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	cfg := *s.config()
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Queries != nil {
		cfg.Queries = *req.Queries
	}
	if req.Lambda != nil {
		cfg.Lambda = *req.Lambda
	}
	if req.MaxDepth != nil {
		cfg.MaxDepth = *req.MaxDepth
	}
	if req.Workers != nil {
		cfg.Workers = *req.Workers
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := s.runner.Run(r.Context(), &cfg, "api request")
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev.Report)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if ev := s.lastEvaluation(w); ev != nil {
		writeJSON(w, http.StatusOK, ev.Report)
	}
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	if ev := s.lastEvaluation(w); ev != nil {
		writeJSON(w, http.StatusOK, ev.Queries)
	}
}

// handleGraph returns the graph for visualization, or the raw encoded graph
// when ?format=json|msgp|msgp.lz4 is given.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	ev := s.lastEvaluation(w)
	if ev == nil {
		return
	}

	var format graphio.Format
	switch r.URL.Query().Get("format") {
	case "":
		sim, err := walk.NewSimulator(ev.Graph, ev.Report.MaxDepth)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, buildGraphData(sim, ev.Graph, builder.FromConfig(s.config())))
		return
	case "json":
		format = graphio.FormatJSON
		w.Header().Set("Content-Type", "application/json")
	case "msgp":
		format = graphio.FormatMsgp
		w.Header().Set("Content-Type", "application/msgpack")
	case "msgp.lz4":
		format = graphio.FormatMsgpLZ4
		w.Header().Set("Content-Type", "application/octet-stream")
	default:
		writeError(w, http.StatusBadRequest, "unknown format")
		return
	}

	if err := graphio.Encode(w, ev.Graph, format); err != nil {
		logging.WarnContext(r.Context(), "failed to encode graph", "format", format, "error", err)
	}
}

// NodeDetail describes one node and where a walk can go from it
type NodeDetail struct {
	GraphNode
	Edges      []GraphEdge `json:"edges"`
	HopsToZero int         `json:"hops_to_zero"` // -1 when node 0 is unreachable
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	ev := s.lastEvaluation(w)
	if ev == nil {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || !ev.Graph.HasNode(id) {
		writeError(w, http.StatusNotFound, "unknown node")
		return
	}

	sim, err := walk.NewSimulator(ev.Graph, ev.Report.MaxDepth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	params := builder.FromConfig(s.config())
	writeJSON(w, http.StatusOK, NodeDetail{
		GraphNode:  GraphNode{ID: id, Tier: params.TierOf(id)},
		Edges:      edgesWithProbability(sim, ev.Graph, id),
		HopsToZero: graph.NewWalkGraph(ev.Graph).Hops(id, 0),
	})
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	in, err := analysis.Inspect(r.Context(), s.config())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func buildGraphData(sim *walk.Simulator, g *model.Graph, params builder.Params) *GraphData {
	data := &GraphData{
		Nodes: make([]GraphNode, 0, g.NodeCount),
		Edges: make([]GraphEdge, 0, g.EdgeCount()),
	}
	for _, node := range g.Nodes() {
		data.Nodes = append(data.Nodes, GraphNode{ID: node, Tier: params.TierOf(node)})
		data.Edges = append(data.Edges, edgesWithProbability(sim, g, node)...)
	}
	return data
}

// edgesWithProbability pairs the edges of node with the probability the
// simulator selects them.
func edgesWithProbability(sim *walk.Simulator, g *model.Graph, node int) []GraphEdge {
	edges := g.EdgesFrom(node)
	probs := sim.Probabilities(node)

	out := make([]GraphEdge, len(edges))
	for i, e := range edges {
		out[i] = GraphEdge{Source: e.From, Target: e.To, Weight: e.Weight, Probability: probs[i]}
	}
	return out
}

// Start serves on the specified port until ctx is canceled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info("shutting down web server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
