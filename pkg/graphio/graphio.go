// Package graphio persists walk graphs. Three encodings are supported,
// chosen by file extension:
//
//	.json       human readable, node keys as strings
//	.msgp       MessagePack
//	.msgp.lz4   MessagePack in an LZ4 frame
//
// All of them round-trip a model.Graph without loss.
package graphio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/tinylib/msgp/msgp"

	"github.com/ritzau/hopgraph/pkg/model"
)

// Format is a graph file encoding
type Format int

const (
	FormatJSON Format = iota
	FormatMsgp
	FormatMsgpLZ4
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgp:
		return "msgp"
	case FormatMsgpLZ4:
		return "msgp.lz4"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFor picks the encoding from a file name.
func FormatFor(path string) (Format, error) {
	switch {
	case strings.HasSuffix(path, ".msgp.lz4"), strings.HasSuffix(path, ".lz4"):
		return FormatMsgpLZ4, nil
	case strings.HasSuffix(path, ".msgp"):
		return FormatMsgp, nil
	case strings.HasSuffix(path, ".json"):
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("unknown graph file extension: %s", path)
}

// Save writes g to path in the format implied by its extension.
func Save(path string, g *model.Graph) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	if err := Encode(f, g, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a graph written by Save. The result is not validated.
func Load(path string) (*model.Graph, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	g, err := Decode(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return g, nil
}

// Encode writes g to w.
func Encode(w io.Writer, g *model.Graph, format Format) error {
	switch format {
	case FormatJSON:
		return encodeJSON(w, g)
	case FormatMsgp:
		return encodeMsgp(w, g)
	case FormatMsgpLZ4:
		zw := lz4.NewWriter(w)
		if err := encodeMsgp(zw, g); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish lz4 frame: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported format %v", format)
}

// Decode reads a graph from r.
func Decode(r io.Reader, format Format) (*model.Graph, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(r)
	case FormatMsgp:
		return decodeMsgp(r)
	case FormatMsgpLZ4:
		return decodeMsgp(lz4.NewReader(r))
	}
	return nil, fmt.Errorf("unsupported format %v", format)
}

// jsonEdge is the (destination, weight) pair stored per node.
type jsonEdge struct {
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

type jsonGraph struct {
	NodeCount int                `json:"node_count"`
	Nodes     map[int][]jsonEdge `json:"nodes"`
}

func encodeJSON(w io.Writer, g *model.Graph) error {
	doc := jsonGraph{
		NodeCount: g.NodeCount,
		Nodes:     make(map[int][]jsonEdge, len(g.Adjacency)),
	}
	for node, edges := range g.Adjacency {
		out := make([]jsonEdge, len(edges))
		for i, e := range edges {
			out[i] = jsonEdge{To: e.To, Weight: e.Weight}
		}
		doc.Nodes[node] = out
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

func decodeJSON(r io.Reader) (*model.Graph, error) {
	var doc jsonGraph
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}

	g := model.NewGraph(doc.NodeCount)
	for node, edges := range doc.Nodes {
		g.AddNode(node)
		for _, e := range edges {
			g.AddEdge(node, e.To, e.Weight)
		}
	}
	return g, nil
}

// MessagePack layout:
//
//	{"node_count": int, "nodes": {node: [[to, weight], ...], ...}}
//
// Nodes are written in ascending order so equal graphs encode identically.
func encodeMsgp(w io.Writer, g *model.Graph) error {
	mw := msgp.NewWriter(w)

	if err := mw.WriteMapHeader(2); err != nil {
		return err
	}
	if err := mw.WriteString("node_count"); err != nil {
		return err
	}
	if err := mw.WriteInt(g.NodeCount); err != nil {
		return err
	}
	if err := mw.WriteString("nodes"); err != nil {
		return err
	}

	nodes := g.Nodes()
	if err := mw.WriteMapHeader(uint32(len(nodes))); err != nil {
		return err
	}
	for _, node := range nodes {
		edges := g.EdgesFrom(node)
		if err := mw.WriteInt(node); err != nil {
			return err
		}
		if err := mw.WriteArrayHeader(uint32(len(edges))); err != nil {
			return err
		}
		for _, e := range edges {
			if err := mw.WriteArrayHeader(2); err != nil {
				return err
			}
			if err := mw.WriteInt(e.To); err != nil {
				return err
			}
			if err := mw.WriteFloat64(e.Weight); err != nil {
				return err
			}
		}
	}

	if err := mw.Flush(); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	return nil
}

func decodeMsgp(r io.Reader) (*model.Graph, error) {
	mr := msgp.NewReader(r)

	fields, err := mr.ReadMapHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to read graph header: %w", err)
	}

	g := model.NewGraph(0)
	for i := uint32(0); i < fields; i++ {
		key, err := mr.ReadString()
		if err != nil {
			return nil, fmt.Errorf("failed to read field name: %w", err)
		}

		switch key {
		case "node_count":
			if g.NodeCount, err = mr.ReadInt(); err != nil {
				return nil, fmt.Errorf("failed to read node count: %w", err)
			}
		case "nodes":
			if err := readMsgpNodes(mr, g); err != nil {
				return nil, err
			}
		default:
			if err := mr.Skip(); err != nil {
				return nil, fmt.Errorf("failed to skip field %q: %w", key, err)
			}
		}
	}
	return g, nil
}

func readMsgpNodes(mr *msgp.Reader, g *model.Graph) error {
	count, err := mr.ReadMapHeader()
	if err != nil {
		return fmt.Errorf("failed to read node map: %w", err)
	}

	for i := uint32(0); i < count; i++ {
		node, err := mr.ReadInt()
		if err != nil {
			return fmt.Errorf("failed to read node id: %w", err)
		}
		g.AddNode(node)

		edges, err := mr.ReadArrayHeader()
		if err != nil {
			return fmt.Errorf("node %d: failed to read edge list: %w", node, err)
		}
		for j := uint32(0); j < edges; j++ {
			size, err := mr.ReadArrayHeader()
			if err != nil {
				return fmt.Errorf("node %d: failed to read edge: %w", node, err)
			}
			if size != 2 {
				return fmt.Errorf("node %d: edge has %d fields, want 2", node, size)
			}
			to, err := mr.ReadInt()
			if err != nil {
				return fmt.Errorf("node %d: failed to read destination: %w", node, err)
			}
			weight, err := mr.ReadFloat64()
			if err != nil {
				return fmt.Errorf("node %d: failed to read weight: %w", node, err)
			}
			g.AddEdge(node, to, weight)
		}
	}
	return nil
}
