package entity

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/matzehuels/labgraph/pkg/errors"
)

// Wire keys of the common fields and bodies.
const (
	keyID          = "_id"
	keyName        = "name"
	keyDescription = "description"
	keyCreatedAt   = "created_at"
	keyUpdatedAt   = "updated_at"
	keyTags        = "tags"
	keyNodes       = "nodes"
	keyUpstream    = "upstream"
	keyDownstream  = "downstream"
	keyActorID     = "actor_id"
	keyMethodID    = "analysismethod_id"
)

// timeLayouts are tried in order when decoding timestamps. The backend
// writes Python isoformat() strings, which omit the zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Decode parses a JSON object into an entity of kind k.
func Decode(k Kind, data []byte) (Entity, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Entity{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", k)
	}
	return FromMap(k, m)
}

// DecodeList parses a JSON array of objects into entities of kind k.
func DecodeList(k Kind, data []byte) ([]Entity, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s list", k)
	}
	return FromMaps(k, raw)
}

// FromMaps converts decoded objects into entities of kind k.
func FromMaps(k Kind, raw []map[string]any) ([]Entity, error) {
	out := make([]Entity, 0, len(raw))
	for i, m := range raw {
		e, err := FromMap(k, m)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "%s record %d", k, i)
		}
		out = append(out, e)
	}
	return out, nil
}

// FromMap builds an entity of kind k from a generic decoded object. Known
// keys populate the typed fields; every other key lands in Extra. A missing
// or malformed optional field degrades to its zero value and the raw value
// is preserved in Extra.
func FromMap(k Kind, m map[string]any) (Entity, error) {
	body := NewBody(k)
	if body == nil {
		return Entity{}, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", k)
	}
	rest := maps.Clone(m)
	take := func(key string) any {
		v := rest[key]
		delete(rest, key)
		return v
	}

	e := Entity{
		ID:          Canonical(take(keyID)),
		Name:        asString(take(keyName)),
		Description: asString(take(keyDescription)),
		Tags:        NewTags(asStrings(take(keyTags))...),
		Body:        body,
	}
	if v := take(keyCreatedAt); v != nil {
		if t, ok := asTime(v); ok {
			e.CreatedAt = t
		} else {
			rest[keyCreatedAt] = v
		}
	}
	if v := take(keyUpdatedAt); v != nil {
		if t, ok := asTime(v); ok {
			e.UpdatedAt = t
		} else {
			rest[keyUpdatedAt] = v
		}
	}

	switch b := body.(type) {
	case *SampleBody:
		b.Nodes = asMembers(take(keyNodes))
	case *ActionBody:
		b.ActorID = Canonical(take(keyActorID))
	case *AnalysisBody:
		b.AnalysisMethodID = Canonical(take(keyMethodID))
	case *MeasurementBody:
		b.ActorID = Canonical(take(keyActorID))
	}
	if l := body.links(); l != nil {
		l.Upstream = asRefs(take(keyUpstream))
		l.Downstream = asRefs(take(keyDownstream))
	}

	if len(rest) > 0 {
		e.Extra = rest
	}
	return e, nil
}

// ToMap renders e in its wire shape, the inverse of FromMap.
func (e Entity) ToMap() map[string]any {
	m := make(map[string]any, len(e.Extra)+8)
	maps.Copy(m, e.Extra)
	m[keyID] = e.ID
	m[keyName] = e.Name
	m[keyDescription] = e.Description
	m[keyTags] = tagsOrEmpty(e.Tags)
	if !e.CreatedAt.IsZero() {
		m[keyCreatedAt] = e.CreatedAt.Format(time.RFC3339Nano)
	}
	if !e.UpdatedAt.IsZero() {
		m[keyUpdatedAt] = e.UpdatedAt.Format(time.RFC3339Nano)
	}

	switch b := e.Body.(type) {
	case *SampleBody:
		nodes := make(map[string][]string, len(b.Nodes))
		for k, ids := range b.Nodes {
			nodes[k.Title()] = ids
		}
		m[keyNodes] = nodes
	case *ActionBody:
		m[keyActorID] = b.ActorID
	case *AnalysisBody:
		m[keyMethodID] = b.AnalysisMethodID
	case *MeasurementBody:
		m[keyActorID] = b.ActorID
	}
	if l := e.nodeLinks(); l != nil {
		m[keyUpstream] = refsOrEmpty(l.Upstream)
		m[keyDownstream] = refsOrEmpty(l.Downstream)
	}
	return m
}

// MarshalJSON encodes e in its wire shape.
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

func tagsOrEmpty(t Tags) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func refsOrEmpty(r []Ref) []Ref {
	if r == nil {
		return []Ref{}
	}
	return r
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Canonical(v)
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, Canonical(item))
		}
		return out
	}
	return nil
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func asRefs(v any) []Ref {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Ref, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Ref{
			Kind: normalizeKind(Canonical(m["node_type"])),
			ID:   Canonical(m["node_id"]),
		})
	}
	return out
}

func asMembers(v any) map[Kind][]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[Kind][]string, len(m))
	for k, ids := range m {
		out[normalizeKind(k)] = asStrings(ids)
	}
	return out
}
