package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNodeID is reported for a node record with an empty id.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is reported when a node id repeats. The first record
	// with that id is kept.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is reported when an edge source is not a node.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is reported when an edge target is not a node.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrUnknownNodeType is reported when a node's content.type is not one
	// of the palette kinds. The node is kept and drawn in gray.
	ErrUnknownNodeType = errors.New("unknown node type")
)

// DefaultNodeSize is the size given to nodes whose record has none.
const DefaultNodeSize = 5

// IssueKind classifies a record the builder could not use as-is.
type IssueKind string

const (
	IssueInvalidID   IssueKind = "invalid_id"
	IssueDuplicateID IssueKind = "duplicate_id"
	IssueDroppedEdge IssueKind = "dropped_edge"
	IssueUnknownType IssueKind = "unknown_type"
)

// Issue is one malformed-record event. ID names the offending node, or for
// a dropped edge the endpoint that did not resolve.
type Issue struct {
	Kind IssueKind
	ID   string
	Err  error
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s %q: %v", i.Kind, i.ID, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// Report lists every issue found during a build, in encounter order.
type Report struct {
	Issues []Issue
}

// OK reports whether the build saw no issues.
func (r Report) OK() bool { return len(r.Issues) == 0 }

// Count returns the number of issues of kind k.
func (r Report) Count(k IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == k {
			n++
		}
	}
	return n
}

// Err joins all issues into one error, or returns nil for a clean build.
// The result matches the sentinel errors with errors.Is.
func (r Report) Err() error {
	if len(r.Issues) == 0 {
		return nil
	}
	errs := make([]error, len(r.Issues))
	for i, issue := range r.Issues {
		errs[i] = issue
	}
	return errors.Join(errs...)
}

func (r *Report) add(k IssueKind, id string, err error) {
	r.Issues = append(r.Issues, Issue{Kind: k, ID: id, Err: err})
}

// Builder turns node and edge records into a [Model].
// The zero value uses [DefaultPalette].
type Builder struct {
	Palette Palette
}

// Build builds a model with the default palette. See [Builder.Build].
func Build(nodes []NodeRecord, edges []EdgeRecord) (*Model, Report) {
	return (&Builder{}).Build(nodes, edges)
}

// Build validates the records and returns the resulting model together with
// a report of everything that was skipped or degraded. Build never fails as
// a whole: bad records are left out and reported.
//
// Nodes are inserted in record order. A node is emphasized iff its
// content.name is a non-empty string, and its color is the palette entry for
// (type, emphasis). Edges whose source or target was not inserted are dropped.
func (b *Builder) Build(nodes []NodeRecord, edges []EdgeRecord) (*Model, Report) {
	palette := b.Palette
	if palette == nil {
		palette = DefaultPalette
	}

	var report Report
	m := newModel(len(nodes))

	for _, rec := range nodes {
		if rec.ID == "" {
			report.add(IssueInvalidID, rec.ID, ErrInvalidNodeID)
			continue
		}
		if _, exists := m.nodes[rec.ID]; exists {
			report.add(IssueDuplicateID, rec.ID, ErrDuplicateNodeID)
			continue
		}

		kind, known := kindOf(rec.Content)
		emphasized := rec.Content.Name() != ""
		color, _ := palette.Color(kind, emphasized)
		if !known {
			report.add(IssueUnknownType, rec.ID, fmt.Errorf("%w: %q", ErrUnknownNodeType, rec.Content.Type()))
		}

		m.addNode(Node{
			ID:         rec.ID,
			X:          rec.X,
			Y:          rec.Y,
			Label:      label(rec),
			Size:       size(rec),
			Color:      color,
			Emphasized: emphasized,
			Type:       kind,
			Content:    rec.Content,
		})
	}

	for _, rec := range edges {
		if _, ok := m.nodes[rec.Source]; !ok {
			report.add(IssueDroppedEdge, rec.Source, ErrUnknownSourceNode)
			continue
		}
		if _, ok := m.nodes[rec.Target]; !ok {
			report.add(IssueDroppedEdge, rec.Target, ErrUnknownTargetNode)
			continue
		}
		m.addEdge(Edge{Source: rec.Source, Target: rec.Target, Content: rec.Content})
	}

	return m, report
}

func label(rec NodeRecord) string {
	if name := rec.Content.Name(); name != "" {
		return name
	}
	if rec.Label != "" {
		return rec.Label
	}
	return rec.ID
}

func size(rec NodeRecord) float64 {
	if rec.Size > 0 {
		return rec.Size
	}
	return DefaultNodeSize
}
