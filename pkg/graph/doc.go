// Package graph builds the render-ready node-link model of a lab process.
//
// # Overview
//
// Data sources deliver a graph as flat [NodeRecord] and [EdgeRecord]
// collections (a [Payload]). [Build] validates them into a [Model]: nodes
// keyed by id, each carrying position, label, size and a palette color, plus
// an ordered list of edges whose endpoints are guaranteed to exist.
//
//	m, report := graph.Build(payload.Nodes, payload.Edges)
//	if err := report.Err(); err != nil {
//		logger.Warn("graph has malformed records", "issues", len(report.Issues))
//	}
//
// # Color and Emphasis
//
// Each node type (material, action, analysis, measurement) has a saturated
// and a light color in [DefaultPalette]. A node is emphasized iff its
// content.name is a non-empty string; stub nodes standing in for records
// outside the current scope have an empty name and are drawn light.
//
// # Malformed Records
//
// Build never aborts. An empty or duplicate node id skips that node; an edge
// with an unresolved endpoint is dropped; an unrecognized type is drawn in
// gray. Each case is recorded in the [Report] with a sentinel error
// ([ErrDuplicateNodeID], [ErrUnknownTargetNode], ...) that errors.Is matches
// against [Report.Err].
//
// Self-loops and parallel edges are legal and kept.
//
// # Rebuilds
//
// Models are immutable. When the source data changes the model is rebuilt
// from scratch; there is no incremental patching.
//
// [FromEntities] derives a Payload directly from entity upstream and
// downstream references for sources that store entities rather than graph
// records.
package graph
