package graph

import (
	"encoding/json"
	"testing"
)

func TestPayloadUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"content", `{"nodes":[{"_id":"m1","x":1,"y":2,"label":"m","size":10,"content":{"name":"powder","type":"material"}}],
			"edges":[{"source":"m1","target":"m1","content":{"w":1}}]}`},
		{"contents", `{"nodes":[{"_id":"m1","x":1,"y":2,"label":"m","size":10,"contents":{"name":"powder","type":"material"}}],
			"edges":[{"source":"m1","target":"m1","contents":{"w":1}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Payload
			if err := json.Unmarshal([]byte(tt.data), &p); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if len(p.Nodes) != 1 || len(p.Edges) != 1 {
				t.Fatalf("Payload = %+v", p)
			}
			n := p.Nodes[0]
			if n.ID != "m1" || n.X != 1 || n.Y != 2 || n.Size != 10 {
				t.Errorf("node = %+v", n)
			}
			if n.Content.Name() != "powder" || n.Content.Type() != "material" {
				t.Errorf("content = %v", n.Content)
			}
			if p.Edges[0].Content["w"] != 1.0 {
				t.Errorf("edge content = %v", p.Edges[0].Content)
			}
		})
	}
}

func TestContentAccessors(t *testing.T) {
	c := Content{"name": 3, "type": nil}
	if c.Name() != "" || c.Type() != "" {
		t.Errorf("non-string values should read as empty: %q %q", c.Name(), c.Type())
	}
	var empty Content
	if empty.Name() != "" {
		t.Error("nil content should read as empty")
	}
}
