// Package entity defines the laboratory records shown by labgraph: samples,
// the four process node kinds (material, action, analysis, measurement) and
// actors.
//
// # Model
//
// An [Entity] carries the fields shared by every kind (id, name, description,
// timestamps, tags) plus a kind-specific [Body]. Node kinds embed [Links],
// the upstream/downstream [Ref] lists that form the process graph. Attributes
// the schema does not know about are kept in [Entity.Extra] so that newer
// backends do not lose data in older clients.
//
// # Field Access
//
// Tables search and sort on arbitrary columns. Instead of reflecting over
// untyped maps, each kind has a fixed [Schema] of named [Field] accessors that
// return canonical strings:
//
//	v, ok := e.Field(entity.FieldName)
//	all := e.Values() // every searchable value
//
// # Wire Format
//
// [Decode] and [FromMap] accept the JSON/BSON shape written by the backend
// ("_id", "created_at", references as {"node_type", "node_id"}); [Entity.ToMap]
// and [Entity.MarshalJSON] produce it.
package entity
