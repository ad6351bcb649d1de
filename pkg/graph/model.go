package graph

import (
	"slices"

	"github.com/matzehuels/labgraph/pkg/entity"
)

// Node is a validated, render-ready graph vertex.
type Node struct {
	ID         string
	X, Y       float64
	Label      string      // content.name, else the record label, else ID
	Size       float64     // Record size, or DefaultNodeSize
	Color      RGB         // Palette color for (Type, Emphasized)
	Emphasized bool        // content.name is non-empty
	Type       entity.Kind // Node kind; may be an unrecognized tag
	Content    Content     // Record content, passed through untouched
}

// Edge is a directed edge whose endpoints both exist in the model.
type Edge struct {
	Source  string
	Target  string
	Content Content
}

// Model is the graph handed to a renderer: nodes keyed by id plus an ordered
// edge list. Every edge endpoint is a node in the model. Self-loops and
// parallel edges are allowed.
//
// A Model is immutable once returned by [Build] and safe for concurrent reads.
type Model struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	outgoing map[string][]string // nodeID -> target IDs
	incoming map[string][]string // nodeID -> source IDs
}

func newModel(capacity int) *Model {
	return &Model{
		nodes:    make(map[string]*Node, capacity),
		order:    make([]string, 0, capacity),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

func (m *Model) addNode(n Node) {
	m.nodes[n.ID] = &n
	m.order = append(m.order, n.ID)
}

func (m *Model) addEdge(e Edge) {
	m.edges = append(m.edges, e)
	m.outgoing[e.Source] = append(m.outgoing[e.Source], e.Target)
	m.incoming[e.Target] = append(m.incoming[e.Target], e.Source)
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Nodes returns all nodes in record order.
func (m *Model) Nodes() []*Node {
	out := make([]*Node, len(m.order))
	for i, id := range m.order {
		out[i] = m.nodes[id]
	}
	return out
}

// Edges returns a copy of the edge list in record order.
func (m *Model) Edges() []Edge { return slices.Clone(m.edges) }

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.order) }

// EdgeCount returns the number of edges, counting parallel edges separately.
func (m *Model) EdgeCount() int { return len(m.edges) }

// Children returns target ids of edges leaving id, one entry per edge.
func (m *Model) Children(id string) []string { return m.outgoing[id] }

// Parents returns source ids of edges entering id, one entry per edge.
func (m *Model) Parents(id string) []string { return m.incoming[id] }
