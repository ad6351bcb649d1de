package source

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/graph"
)

func sample(id string, created time.Time, members map[entity.Kind][]string) entity.Entity {
	return entity.Entity{ID: id, CreatedAt: created, Body: &entity.SampleBody{Nodes: members}}
}

func node(k entity.Kind, id string, up, down []entity.Ref) entity.Entity {
	e, _ := entity.New(k, id, id)
	switch b := e.Body.(type) {
	case *entity.MaterialBody:
		b.Upstream, b.Downstream = up, down
	case *entity.ActionBody:
		b.Upstream, b.Downstream = up, down
	}
	return e
}

func joinIDs(es []entity.Entity) string {
	ids := make([]string, len(es))
	for i, e := range es {
		ids[i] = e.ID
	}
	return strings.Join(ids, ",")
}

func TestNewestFirst(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	in := []entity.Entity{
		sample("a", day(1), nil),
		sample("b", day(3), nil),
		sample("c", day(2), nil),
		sample("d", day(3), nil),
	}

	tests := []struct {
		limit int
		want  string
	}{
		{0, "b,d,c,a"},
		{2, "b,d"},
		{10, "b,d,c,a"},
	}
	for _, tt := range tests {
		if got := joinIDs(NewestFirst(in, tt.limit)); got != tt.want {
			t.Errorf("NewestFirst(limit=%d) = %s, want %s", tt.limit, got, tt.want)
		}
	}
	if joinIDs(in) != "a,b,c,d" {
		t.Error("NewestFirst modified its input")
	}
	if got := NewestFirst(nil, 0); got == nil {
		t.Error("NewestFirst(nil) should return an empty slice")
	}
}

func TestMemberIDs(t *testing.T) {
	samples := []entity.Entity{
		sample("s1", time.Time{}, map[entity.Kind][]string{
			entity.KindAction:   {"a1"},
			entity.KindMaterial: {"m1", "m2"},
		}),
		sample("s2", time.Time{}, map[entity.Kind][]string{
			entity.KindMaterial: {"m2", "m3"},
		}),
		node(entity.KindMaterial, "not-a-sample", nil, nil),
	}
	if got := strings.Join(MemberIDs(samples), ","); got != "m1,m2,a1,m3" {
		t.Errorf("MemberIDs() = %s", got)
	}
}

func TestSampleGraph(t *testing.T) {
	ref := func(k entity.Kind, id string) []entity.Ref { return []entity.Ref{{Kind: k, ID: id}} }
	nodes := []entity.Entity{
		node(entity.KindMaterial, "m1", nil, ref(entity.KindAction, "a1")),
		node(entity.KindAction, "a1", ref(entity.KindMaterial, "m1"), ref(entity.KindMaterial, "m2")),
		node(entity.KindMaterial, "m2", ref(entity.KindAction, "a1"), nil),
	}
	s := sample("s1", time.Time{}, map[entity.Kind][]string{entity.KindAction: {"a1"}, entity.KindMaterial: {"m2"}})

	p := SampleGraph([]entity.Entity{s}, nodes)

	var ids []string
	for _, n := range p.Nodes {
		ids = append(ids, n.ID)
	}
	if strings.Join(ids, ",") != "a1,m2,m1" {
		t.Fatalf("nodes = %v, want members then stub", ids)
	}
	if p.Nodes[2].Content.Name() != "" {
		t.Error("out-of-scope reference should be a stub with no name")
	}
	if len(p.Edges) != 2 {
		t.Errorf("edges = %v", p.Edges)
	}

	m, report := graph.Build(p.Nodes, p.Edges)
	if !report.OK() || m.NodeCount() != 3 {
		t.Errorf("Build() = %d nodes, %v", m.NodeCount(), report.Err())
	}
	if n, _ := m.Node("m1"); n.Emphasized {
		t.Error("stub node should be dimmed")
	}
}

// listSource answers ListEntities from a map and fails for missing kinds.
type listSource struct {
	Source
	data map[entity.Kind][]entity.Entity
}

func (s listSource) ListEntities(_ context.Context, k entity.Kind) ([]entity.Entity, error) {
	list, ok := s.data[k]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupported, "no %s", k)
	}
	return list, nil
}

func TestLoadAll(t *testing.T) {
	src := listSource{data: map[entity.Kind][]entity.Entity{
		entity.KindMaterial: {node(entity.KindMaterial, "m1", nil, nil)},
		entity.KindAction:   {node(entity.KindAction, "a1", nil, nil), node(entity.KindAction, "a2", nil, nil)},
	}}

	got, err := LoadAll(context.Background(), src, entity.KindMaterial, entity.KindAction)
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(got[entity.KindMaterial]) != 1 || len(got[entity.KindAction]) != 2 {
		t.Errorf("LoadAll() = %v", got)
	}

	_, err = LoadAll(context.Background(), src, entity.KindMaterial, entity.KindActor)
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("LoadAll() error = %v, want UNSUPPORTED", err)
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound(entity.KindSample, "s9")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("NotFound() code = %s", errors.GetCode(err))
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || !strings.Contains(e.Message, `"s9"`) {
		t.Errorf("NotFound() = %v", err)
	}
}
