package entity

import (
	"slices"
	"time"

	"github.com/matzehuels/labgraph/pkg/errors"
)

// Ref points at another entity by kind and id. On the wire it is encoded as
// {"node_type": ..., "node_id": ...}.
type Ref struct {
	Kind Kind   `json:"node_type" bson:"node_type"`
	ID   string `json:"node_id" bson:"node_id"`
}

// Tags is an ordered set of tag strings. Equality is case-sensitive.
type Tags []string

// NewTags builds a Tags value from raw strings, dropping duplicates while
// preserving first occurrence order.
func NewTags(raw ...string) Tags {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make(Tags, 0, len(raw))
	for _, t := range raw {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Has reports whether tag is present.
func (t Tags) Has(tag string) bool { return slices.Contains(t, tag) }

// HasAll reports whether every tag in want is present. An empty want is
// trivially satisfied.
func (t Tags) HasAll(want []string) bool {
	for _, w := range want {
		if !t.Has(w) {
			return false
		}
	}
	return true
}

// Body holds the kind-specific fields of an entity. The concrete type always
// matches the entity's Kind: *SampleBody, *MaterialBody, *ActionBody,
// *AnalysisBody, *MeasurementBody or *ActorBody.
type Body interface {
	Kind() Kind
	links() *Links
}

// Links are the process-graph relations carried by node kinds.
type Links struct {
	Upstream   []Ref
	Downstream []Ref
}

func (l *Links) links() *Links { return l }

// SampleBody lists the member node ids of a sample, keyed by node kind.
type SampleBody struct {
	Nodes map[Kind][]string
}

func (*SampleBody) Kind() Kind    { return KindSample }
func (*SampleBody) links() *Links { return nil }

// MemberCount returns the total number of member nodes.
func (b *SampleBody) MemberCount() int {
	n := 0
	for _, ids := range b.Nodes {
		n += len(ids)
	}
	return n
}

// MaterialBody is the body of a material node.
type MaterialBody struct {
	Links
}

func (*MaterialBody) Kind() Kind { return KindMaterial }

// ActionBody is the body of an action node.
type ActionBody struct {
	Links
	ActorID string
}

func (*ActionBody) Kind() Kind { return KindAction }

// AnalysisBody is the body of an analysis node.
type AnalysisBody struct {
	Links
	AnalysisMethodID string
}

func (*AnalysisBody) Kind() Kind { return KindAnalysis }

// MeasurementBody is the body of a measurement node.
type MeasurementBody struct {
	Links
	ActorID string
}

func (*MeasurementBody) Kind() Kind { return KindMeasurement }

// ActorBody is the body of an actor. Actors carry only the common fields.
type ActorBody struct{}

func (*ActorBody) Kind() Kind    { return KindActor }
func (*ActorBody) links() *Links { return nil }

// NewBody returns an empty body for kind k, or nil for an unknown kind.
func NewBody(k Kind) Body {
	switch k {
	case KindSample:
		return &SampleBody{}
	case KindMaterial:
		return &MaterialBody{}
	case KindAction:
		return &ActionBody{}
	case KindAnalysis:
		return &AnalysisBody{}
	case KindMeasurement:
		return &MeasurementBody{}
	case KindActor:
		return &ActorBody{}
	}
	return nil
}

// Entity is one laboratory record. Common fields live on the struct, the
// kind-specific schema lives in Body, and attributes not covered by either
// are kept in Extra.
//
// The zero value is not usable; construct entities with New or Decode.
type Entity struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        Tags
	Body        Body
	Extra       map[string]any
}

// New creates an entity of kind k with an empty body.
func New(k Kind, id, name string) (Entity, error) {
	body := NewBody(k)
	if body == nil {
		return Entity{}, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", k)
	}
	return Entity{ID: id, Name: name, Body: body}, nil
}

// Kind returns the entity kind, or "" if the entity has no body.
func (e *Entity) Kind() Kind {
	if e.Body == nil {
		return ""
	}
	return e.Body.Kind()
}

// Upstream returns the upstream references of a node entity, nil otherwise.
func (e *Entity) Upstream() []Ref {
	if l := e.nodeLinks(); l != nil {
		return l.Upstream
	}
	return nil
}

// Downstream returns the downstream references of a node entity, nil otherwise.
func (e *Entity) Downstream() []Ref {
	if l := e.nodeLinks(); l != nil {
		return l.Downstream
	}
	return nil
}

func (e *Entity) nodeLinks() *Links {
	if e.Body == nil {
		return nil
	}
	return e.Body.links()
}

// ValidateCollection checks that ids are non-empty and unique within entities.
// It reports every offending id, not just the first.
func ValidateCollection(entities []Entity) error {
	seen := make(map[string]struct{}, len(entities))
	var dups []string
	for i := range entities {
		id := entities[i].ID
		if id == "" {
			return errors.New(errors.ErrCodeInvalidRecord, "record %d has an empty id", i)
		}
		if _, ok := seen[id]; ok {
			dups = append(dups, id)
			continue
		}
		seen[id] = struct{}{}
	}
	if len(dups) > 0 {
		return errors.New(errors.ErrCodeInvalidRecord, "duplicate ids: %v", dups)
	}
	return nil
}
