package graph

import (
	"encoding/json"

	"github.com/matzehuels/labgraph/pkg/entity"
)

// Content keys read by the builder.
const (
	ContentName = "name"
	ContentType = "type"
)

// Content is the open-ended domain payload carried by a record.
type Content map[string]any

// Name returns content["name"] if it is a string, else "".
func (c Content) Name() string {
	s, _ := c[ContentName].(string)
	return s
}

// Type returns content["type"] if it is a string, else "".
func (c Content) Type() string {
	s, _ := c[ContentType].(string)
	return s
}

// NodeRecord is one graph node as delivered by a data source.
type NodeRecord struct {
	ID      string  `json:"_id" bson:"_id"`
	X       float64 `json:"x" bson:"x"`
	Y       float64 `json:"y" bson:"y"`
	Label   string  `json:"label,omitempty" bson:"label,omitempty"`
	Size    float64 `json:"size,omitempty" bson:"size,omitempty"`
	Content Content `json:"content" bson:"content"`
}

// EdgeRecord is one directed edge as delivered by a data source.
type EdgeRecord struct {
	Source  string  `json:"source" bson:"source"`
	Target  string  `json:"target" bson:"target"`
	Content Content `json:"content,omitempty" bson:"content,omitempty"`
}

// UnmarshalJSON accepts the payload under either "content" or the legacy
// "contents" key emitted by older graph endpoints.
func (r *NodeRecord) UnmarshalJSON(data []byte) error {
	type plain NodeRecord
	var aux struct {
		plain
		Contents Content `json:"contents"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = NodeRecord(aux.plain)
	if r.Content == nil {
		r.Content = aux.Contents
	}
	return nil
}

// UnmarshalJSON accepts "content" or the legacy "contents" key.
func (r *EdgeRecord) UnmarshalJSON(data []byte) error {
	type plain EdgeRecord
	var aux struct {
		plain
		Contents Content `json:"contents"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = EdgeRecord(aux.plain)
	if r.Content == nil {
		r.Content = aux.Contents
	}
	return nil
}

// Payload is the node and edge collections returned by the graph endpoints.
type Payload struct {
	Nodes []NodeRecord `json:"nodes" bson:"nodes"`
	Edges []EdgeRecord `json:"edges" bson:"edges"`
}

// kindOf resolves the record's type tag. Tags are matched case-insensitively
// so both "material" and "Material" resolve.
func kindOf(c Content) (entity.Kind, bool) {
	k, err := entity.ParseKind(c.Type())
	if err != nil || !k.IsNode() {
		return entity.Kind(c.Type()), false
	}
	return k, true
}
