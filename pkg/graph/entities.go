package graph

import (
	"github.com/matzehuels/labgraph/pkg/entity"
)

// FromEntities derives graph records from node entities and their
// upstream/downstream references.
//
// Each material, action, analysis or measurement entity becomes one node;
// other kinds are ignored. An upstream ref u of e yields the edge u→e and a
// downstream ref d yields e→d. Edges are deduplicated per ordered pair, since
// the same link is normally stored on both of its ends. References to
// entities outside the collection become stub nodes with an empty name, so
// they render dimmed and no edge is lost. Positions are left at zero.
func FromEntities(entities []entity.Entity) Payload {
	p := Payload{
		Nodes: make([]NodeRecord, 0, len(entities)),
		Edges: []EdgeRecord{},
	}
	present := make(map[string]bool, len(entities))
	for i := range entities {
		e := &entities[i]
		if !e.Kind().IsNode() || e.ID == "" || present[e.ID] {
			continue
		}
		present[e.ID] = true
		p.Nodes = append(p.Nodes, NodeRecord{ID: e.ID, Content: entityContent(e)})
	}

	type pair struct{ from, to string }
	seen := make(map[pair]bool)
	var stubs []NodeRecord
	link := func(from, to string, ref entity.Ref) {
		if ref.ID == "" {
			return
		}
		if !present[ref.ID] {
			present[ref.ID] = true
			stubs = append(stubs, NodeRecord{
				ID:      ref.ID,
				Content: Content{ContentName: "", ContentType: string(ref.Kind)},
			})
		}
		k := pair{from, to}
		if seen[k] {
			return
		}
		seen[k] = true
		p.Edges = append(p.Edges, EdgeRecord{Source: from, Target: to, Content: Content{}})
	}

	for i := range entities {
		e := &entities[i]
		if !e.Kind().IsNode() || e.ID == "" {
			continue
		}
		for _, u := range e.Upstream() {
			link(u.ID, e.ID, u)
		}
		for _, d := range e.Downstream() {
			link(e.ID, d.ID, d)
		}
	}

	p.Nodes = append(p.Nodes, stubs...)
	return p
}

func entityContent(e *entity.Entity) Content {
	c := Content{
		ContentName:   e.Name,
		ContentType:   string(e.Kind()),
		"description": e.Description,
		"tags":        append([]string{}, e.Tags...),
	}
	if v, _ := e.Field(entity.FieldCreatedAt); v != "" {
		c["created_at"] = v
	}
	return c
}
