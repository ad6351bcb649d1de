package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/labgraph/pkg/graph"
)

func buildModel(t *testing.T, nodes []graph.NodeRecord, edges []graph.EdgeRecord) *graph.Model {
	t.Helper()
	m, report := graph.Build(nodes, edges)
	if err := report.Err(); err != nil {
		t.Fatalf("Build() issues: %v", err)
	}
	return m
}

func TestToDOT(t *testing.T) {
	m := buildModel(t,
		[]graph.NodeRecord{
			{ID: "m1", Content: graph.Content{"name": "LiCoO2", "type": "material", "batch": 7}},
			{ID: "a1", Content: graph.Content{"name": "", "type": "action"}},
		},
		[]graph.EdgeRecord{{Source: "m1", Target: "a1"}},
	)

	tests := []struct {
		name     string
		opts     Options
		contains []string
		absent   []string
	}{
		{
			name: "Simple",
			opts: Options{},
			contains: []string{
				"digraph G {",
				`"m1" [label="LiCoO2", fillcolor="#1f77b4", width=0.5]`,
				`"a1" [label="a1", fillcolor="#ffbb78", width=0.5, fontcolor="#555555"]`,
				`"m1" -> "a1";`,
			},
			absent: []string{"pos=", "batch"},
		},
		{
			name:     "Detailed",
			opts:     Options{Detailed: true},
			contains: []string{`label="LiCoO2\ntype: material\nbatch: 7"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(m, tt.opts)
			for _, want := range tt.contains {
				if !strings.Contains(dot, want) {
					t.Errorf("DOT missing %q\n%s", want, dot)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(dot, bad) {
					t.Errorf("DOT should not contain %q\n%s", bad, dot)
				}
			}
		})
	}
}

func TestToDOTPinned(t *testing.T) {
	m := buildModel(t, []graph.NodeRecord{
		{ID: "a", X: 1.5, Y: 2, Size: 10, Content: graph.Content{"name": "A", "type": "analysis"}},
		{ID: "b", Content: graph.Content{"name": "B", "type": "measurement"}},
	}, nil)

	if !Pinned(m) {
		t.Fatal("Pinned() = false, want true")
	}
	dot := ToDOT(m, Options{})
	for _, want := range []string{`pos="1.5,2!"`, `pos="0,0!"`, "width=1,"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
}

func TestRender(t *testing.T) {
	m := buildModel(t,
		[]graph.NodeRecord{
			{ID: "m1", Content: graph.Content{"name": "precursor", "type": "material"}},
			{ID: "a1", Content: graph.Content{"name": "anneal", "type": "action"}},
		},
		[]graph.EdgeRecord{{Source: "m1", Target: "a1"}},
	)

	svg, err := Render(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	s := string(svg)
	if !strings.Contains(s, "<svg") || !strings.Contains(s, "precursor") {
		t.Errorf("Render() output is not the expected SVG:\n%s", s)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.40 40.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.40 40.00" width="100" height="40"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("normalizeViewBox() should leave SVGs without viewBox alone")
	}
}
