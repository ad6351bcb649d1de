package entity

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Field is a named, typed accessor over an entity. Get returns the field's
// canonical string form, which is what table search and sort operate on.
type Field struct {
	Name string
	Get  func(*Entity) string
}

// Common field names shared by every kind.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
	FieldTags        = "tags"
	FieldNodes       = "nodes"
	FieldUpstream    = "upstream"
	FieldDownstream  = "downstream"
	FieldActorID     = "actor_id"
	FieldMethodID    = "analysismethod_id"
)

var commonFields = []Field{
	{FieldID, func(e *Entity) string { return e.ID }},
	{FieldName, func(e *Entity) string { return e.Name }},
	{FieldDescription, func(e *Entity) string { return e.Description }},
	{FieldCreatedAt, func(e *Entity) string { return formatTime(e.CreatedAt) }},
	{FieldUpdatedAt, func(e *Entity) string { return formatTime(e.UpdatedAt) }},
	{FieldTags, func(e *Entity) string { return strings.Join(e.Tags, ",") }},
}

var (
	upstreamField   = Field{FieldUpstream, func(e *Entity) string { return strconv.Itoa(len(e.Upstream())) }}
	downstreamField = Field{FieldDownstream, func(e *Entity) string { return strconv.Itoa(len(e.Downstream())) }}
)

var schemas = map[Kind][]Field{
	KindSample: withCommon(Field{FieldNodes, func(e *Entity) string {
		if b, ok := e.Body.(*SampleBody); ok {
			return strconv.Itoa(b.MemberCount())
		}
		return ""
	}}),
	KindMaterial: withCommon(upstreamField, downstreamField),
	KindAction: withCommon(upstreamField, downstreamField, Field{FieldActorID, func(e *Entity) string {
		if b, ok := e.Body.(*ActionBody); ok {
			return b.ActorID
		}
		return ""
	}}),
	KindAnalysis: withCommon(upstreamField, downstreamField, Field{FieldMethodID, func(e *Entity) string {
		if b, ok := e.Body.(*AnalysisBody); ok {
			return b.AnalysisMethodID
		}
		return ""
	}}),
	KindMeasurement: withCommon(upstreamField, downstreamField, Field{FieldActorID, func(e *Entity) string {
		if b, ok := e.Body.(*MeasurementBody); ok {
			return b.ActorID
		}
		return ""
	}}),
	KindActor: withCommon(),
}

func withCommon(extra ...Field) []Field {
	return append(slices.Clone(commonFields), extra...)
}

// Schema returns the fixed field list for kind k. Unknown kinds get the
// common fields only.
func Schema(k Kind) []Field {
	if s, ok := schemas[k]; ok {
		return s
	}
	return commonFields
}

// Field returns the canonical string value of the named field. Schema fields
// are looked up first, then Extra. A field that is absent on this entity
// returns ("", false); callers treat that as the empty string.
func (e *Entity) Field(name string) (string, bool) {
	for _, f := range Schema(e.Kind()) {
		if f.Name == name {
			return f.Get(e), true
		}
	}
	if v, ok := e.Extra[name]; ok {
		return Canonical(v), true
	}
	return "", false
}

// Values returns the canonical strings of every field on e: schema fields in
// schema order, then Extra values in key order.
func (e *Entity) Values() []string {
	schema := Schema(e.Kind())
	out := make([]string, 0, len(schema)+len(e.Extra))
	for _, f := range schema {
		out = append(out, f.Get(e))
	}
	for _, k := range slices.Sorted(maps.Keys(e.Extra)) {
		out = append(out, Canonical(e.Extra[k]))
	}
	return out
}

// Canonical renders an arbitrary decoded value as a string. Missing values
// become "", times are RFC 3339, lists are comma-joined and objects are
// encoded as JSON with sorted keys.
func Canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return formatTime(x)
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Canonical(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
