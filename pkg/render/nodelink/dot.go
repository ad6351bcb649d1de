package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/labgraph/pkg/graph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed appends the node's content fields to its label.
	// When false, only the display label is shown.
	Detailed bool
}

// ToDOT converts a graph model to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Nodes are filled with their palette color and sized by [graph.Node.Size].
// When any node carries a non-zero position every node is pinned at its
// position; otherwise placement is left to Graphviz.
func ToDOT(m *graph.Model, opts Options) string {
	pinned := Pinned(m)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fontsize=10, fixedsize=false];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")
	if pinned {
		buf.WriteString("  splines=true;\n")
	}
	buf.WriteString("\n")

	for _, n := range m.Nodes() {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label, pinned)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range m.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// Pinned reports whether m carries positions worth honoring, i.e. at least
// one node is away from the origin.
func Pinned(m *graph.Model) bool {
	for _, n := range m.Nodes() {
		if n.X != 0 || n.Y != 0 {
			return true
		}
	}
	return false
}

func fmtLabel(n *graph.Node, detailed bool) string {
	if !detailed {
		return n.Label
	}

	parts := []string{fmt.Sprintf("type: %s", n.Type)}
	for _, k := range slices.Sorted(maps.Keys(n.Content)) {
		if k == graph.ContentName || k == graph.ContentType {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Content[k]))
	}

	return n.Label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, label string, pinned bool) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("fillcolor=%q", n.Color.Hex()),
		fmt.Sprintf("width=%s", fmtFloat(n.Size/graph.DefaultNodeSize*0.5)),
	}
	if pinned {
		attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(n.X), fmtFloat(n.Y)))
	}
	if !n.Emphasized {
		attrs = append(attrs, "fontcolor=\"#555555\"")
	}
	return attrs
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Render converts m to DOT and renders it to SVG. Pinned models are laid
// out with neato, which keeps the supplied positions; others use dot.
func Render(ctx context.Context, m *graph.Model, opts Options) ([]byte, error) {
	engine := graphviz.DOT
	if Pinned(m) {
		engine = graphviz.NEATO
	}
	return RenderSVG(ctx, ToDOT(m, opts), engine)
}

// RenderSVG renders a DOT graph to SVG using the given Graphviz engine.
func RenderSVG(ctx context.Context, dot string, engine graphviz.Layout) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(engine)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
