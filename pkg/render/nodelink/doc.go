// Package nodelink renders lab process graphs as node-link diagrams.
//
// # Overview
//
// This package turns a validated [graph.Model] into Graphviz DOT and renders
// it to SVG in-process. Nodes are circles filled with their palette color;
// dimmed stub nodes get a grey label.
//
// # Usage
//
//	m, _ := graph.Build(payload.Nodes, payload.Edges)
//	svg, err := nodelink.Render(ctx, m, nodelink.Options{})
//
// Or in two steps, keeping the DOT source:
//
//	dot := nodelink.ToDOT(m, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot, graphviz.DOT)
//
// # Positions
//
// Node positions come from the data source. If any node has a non-zero
// position, every node is emitted with a pinned pos attribute and rendered
// with neato so the positions are kept. Graphs without positions (for
// example those derived from entity references) are left to the dot engine.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
//
// [graph.Model]: github.com/matzehuels/labgraph/pkg/graph.Model
package nodelink
