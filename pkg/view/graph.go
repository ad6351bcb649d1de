package view

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labgraph/pkg/graph"
	"github.com/matzehuels/labgraph/pkg/observability"
	"github.com/matzehuels/labgraph/pkg/source"
)

// GraphOptions configures a [GraphView].
type GraphOptions struct {
	// SampleIDs scopes the graph to these samples. Empty means the full graph.
	SampleIDs []string

	// Palette colors the nodes. Nil means graph.DefaultPalette.
	Palette graph.Palette

	Logger *log.Logger
}

// GraphView is the state behind the node-link diagram. The model is rebuilt
// wholesale from the last good payload whenever a new payload is applied.
type GraphView struct {
	src     source.Source
	builder *graph.Builder
	loader  *Loader[graph.Payload]
	logger  *log.Logger

	mu        sync.Mutex
	sampleIDs []string
	builtSeq  uint64
	model     *graph.Model
	report    graph.Report
}

// NewGraphView returns an empty graph view. Call Refresh to load it.
func NewGraphView(src source.Source, opts GraphOptions) *GraphView {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	count := func(p graph.Payload) int { return len(p.Nodes) }
	return &GraphView{
		src:       src,
		builder:   &graph.Builder{Palette: opts.Palette},
		loader:    NewLoader("graph", count, logger),
		logger:    logger,
		sampleIDs: slices.Clone(opts.SampleIDs),
	}
}

// SetSamples changes the sample scope. It takes effect on the next Refresh.
func (v *GraphView) SetSamples(ids []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sampleIDs = slices.Clone(ids)
}

// Samples returns the current sample scope.
func (v *GraphView) Samples() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.sampleIDs)
}

// Refresh refetches the graph payload for the current scope.
func (v *GraphView) Refresh(ctx context.Context) error {
	ids := v.Samples()
	return v.loader.Load(ctx, func(ctx context.Context) (graph.Payload, error) {
		if len(ids) > 0 {
			return v.src.GetGraphForSamples(ctx, ids)
		}
		return v.src.GetFullGraph(ctx)
	})
}

// Render returns the model built from the last good payload along with the
// malformed-record report of that build. Before the first successful
// Refresh it returns an empty model.
func (v *GraphView) Render(ctx context.Context) (*graph.Model, graph.Report) {
	payload, seq := v.loader.Snapshot()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.model != nil && v.builtSeq == seq {
		return v.model, v.report
	}

	start := time.Now()
	m, report := v.builder.Build(payload.Nodes, payload.Edges)
	observability.View().OnGraphBuilt(ctx, m.NodeCount(), m.EdgeCount(), len(report.Issues), time.Since(start))
	for _, issue := range report.Issues {
		v.logger.Debug("malformed graph record", "kind", issue.Kind, "id", issue.ID, "err", issue.Err)
	}
	if !report.OK() {
		v.logger.Warn("graph built with malformed records",
			"nodes", m.NodeCount(), "edges", m.EdgeCount(),
			"dropped_edges", report.Count(graph.IssueDroppedEdge), "issues", len(report.Issues))
	}

	v.model, v.report, v.builtSeq = m, report, seq
	return m, report
}

// Wait blocks until the latest Refresh has settled. See [Loader.Wait].
func (v *GraphView) Wait(ctx context.Context) error { return v.loader.Wait(ctx) }

// State reports the loader progress.
func (v *GraphView) State() State { return v.loader.State() }
