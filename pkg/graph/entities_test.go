package graph

import (
	"testing"

	"github.com/matzehuels/labgraph/pkg/entity"
)

func decode(t *testing.T, k entity.Kind, js string) entity.Entity {
	t.Helper()
	e, err := entity.Decode(k, []byte(js))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	return e
}

func TestFromEntities(t *testing.T) {
	entities := []entity.Entity{
		decode(t, entity.KindMaterial, `{"_id": "m1", "name": "precursor", "tags": ["batch-7"],
			"downstream": [{"node_type": "Action", "node_id": "a1"}]}`),
		decode(t, entity.KindAction, `{"_id": "a1", "name": "anneal",
			"upstream": [{"node_type": "Material", "node_id": "m1"}],
			"downstream": [{"node_type": "Material", "node_id": "m2"}]}`),
		decode(t, entity.KindSample, `{"_id": "s1", "name": "sample", "nodes": {"Material": ["m1"]}}`),
		decode(t, entity.KindActor, `{"_id": "u1", "name": "robot"}`),
	}

	p := FromEntities(entities)

	if len(p.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3 (two entities plus one stub)", len(p.Nodes))
	}
	if p.Nodes[0].ID != "m1" || p.Nodes[0].Content.Name() != "precursor" || p.Nodes[0].Content.Type() != "material" {
		t.Errorf("Nodes[0] = %+v", p.Nodes[0])
	}
	stub := p.Nodes[2]
	if stub.ID != "m2" || stub.Content.Name() != "" || stub.Content.Type() != "material" {
		t.Errorf("stub = %+v, want unnamed material m2", stub)
	}

	want := []EdgeRecord{
		{Source: "m1", Target: "a1"},
		{Source: "a1", Target: "m2"},
	}
	if len(p.Edges) != len(want) {
		t.Fatalf("Edges = %v, want %v", p.Edges, want)
	}
	for i, e := range p.Edges {
		if e.Source != want[i].Source || e.Target != want[i].Target {
			t.Errorf("Edges[%d] = %s→%s, want %s→%s", i, e.Source, e.Target, want[i].Source, want[i].Target)
		}
	}

	m, report := Build(p.Nodes, p.Edges)
	if !report.OK() {
		t.Errorf("Build() issues = %v", report.Issues)
	}
	if n, _ := m.Node("m2"); n.Emphasized {
		t.Error("stub node should be dimmed")
	}
	if n, _ := m.Node("a1"); !n.Emphasized || n.Color != DefaultPalette[entity.KindAction].Emphasized {
		t.Errorf("a1 = %+v, want emphasized action", n)
	}
}

func TestFromEntitiesEmpty(t *testing.T) {
	p := FromEntities(nil)
	if p.Nodes == nil || p.Edges == nil || len(p.Nodes)+len(p.Edges) != 0 {
		t.Errorf("FromEntities(nil) = %+v, want empty non-nil collections", p)
	}
}
