// Package fixture implements [source.Source] over an in-memory dataset,
// typically loaded from a JSON file. It backs offline browsing, demos and
// tests of everything above the source layer.
//
// The file is a JSON object keyed by collection name:
//
//	{
//	  "samples":      [{"_id": "s1", "name": "...", "nodes": {"Material": ["m1"]}}],
//	  "materials":    [{"_id": "m1", "name": "...", "upstream": [], "downstream": []}],
//	  "actions":      [...],
//	  "analyses":     [...],
//	  "measurements": [...],
//	  "actors":       [...],
//	  "graph":        {"nodes": [...], "edges": [...]}
//	}
//
// Every key is optional. When "graph" is present it is returned verbatim by
// GetFullGraph, positions included; otherwise the full graph is derived from
// the node collections.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/graph"
	"github.com/matzehuels/labgraph/pkg/source"
)

// Source serves a fixed dataset. It is safe for concurrent use because the
// dataset is never modified after construction.
type Source struct {
	entities map[entity.Kind][]entity.Entity
	index    map[entity.Kind]map[string]int
	graph    *graph.Payload

	// Delay is added to every call, honoring cancellation. It simulates a
	// slow backend.
	Delay time.Duration
}

// New returns a source over entities, keyed by kind. Each collection must
// have unique, non-empty ids.
func New(entities map[entity.Kind][]entity.Entity) (*Source, error) {
	s := &Source{
		entities: make(map[entity.Kind][]entity.Entity, len(entities)),
		index:    make(map[entity.Kind]map[string]int, len(entities)),
	}
	for k, list := range entities {
		if entity.NewBody(k) == nil {
			return nil, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", k)
		}
		if err := entity.ValidateCollection(list); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "%s collection", k)
		}
		idx := make(map[string]int, len(list))
		for i := range list {
			idx[list[i].ID] = i
		}
		s.entities[k] = slices.Clone(list)
		s.index[k] = idx
	}
	return s, nil
}

// WithGraph sets the payload returned by GetFullGraph.
func (s *Source) WithGraph(p graph.Payload) *Source {
	s.graph = &p
	return s
}

// Read decodes a dataset from r.
//
// Read returns an error if the JSON is malformed, if a collection holds a
// record that is not an object, or if ids repeat within a collection.
// Unknown top-level keys are ignored.
func Read(r io.Reader) (*Source, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode fixture")
	}

	collections := make(map[entity.Kind][]entity.Entity)
	for _, k := range entity.Kinds() {
		data, ok := raw[k.Collection()]
		if !ok {
			continue
		}
		list, err := entity.DecodeList(k, data)
		if err != nil {
			return nil, err
		}
		collections[k] = list
	}

	s, err := New(collections)
	if err != nil {
		return nil, err
	}
	if data, ok := raw["graph"]; ok {
		var p graph.Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode fixture graph")
		}
		s.WithGraph(p)
	}
	return s, nil
}

// Load reads a dataset from the JSON file at path.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open fixture")
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Source) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Source) lookup(kind entity.Kind, id string) (entity.Entity, error) {
	if entity.NewBody(kind) == nil {
		return entity.Entity{}, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", kind)
	}
	i, ok := s.index[kind][id]
	if !ok {
		return entity.Entity{}, source.NotFound(kind, id)
	}
	return s.entities[kind][i], nil
}

// ListSampleSummaries returns the newest samples first.
func (s *Source) ListSampleSummaries(ctx context.Context, limit int) ([]entity.Entity, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "sample limit must be >= 0, got %d", limit)
	}
	return source.NewestFirst(s.entities[entity.KindSample], limit), nil
}

func (s *Source) GetSample(ctx context.Context, id string) (entity.Entity, error) {
	return s.GetEntity(ctx, entity.KindSample, id)
}

func (s *Source) GetEntity(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	if err := s.wait(ctx); err != nil {
		return entity.Entity{}, err
	}
	return s.lookup(kind, id)
}

// ListEntities returns a copy of the collection in file order.
func (s *Source) ListEntities(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if entity.NewBody(kind) == nil {
		return nil, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", kind)
	}
	out := slices.Clone(s.entities[kind])
	if out == nil {
		out = []entity.Entity{}
	}
	return out, nil
}

func (s *Source) nodes() []entity.Entity {
	var all []entity.Entity
	for _, k := range entity.NodeKinds() {
		all = append(all, s.entities[k]...)
	}
	return all
}

// GetFullGraph returns the stored graph if the dataset has one, and the
// graph derived from the node collections otherwise.
func (s *Source) GetFullGraph(ctx context.Context) (graph.Payload, error) {
	if err := s.wait(ctx); err != nil {
		return graph.Payload{}, err
	}
	if s.graph != nil {
		return graph.Payload{
			Nodes: slices.Clone(s.graph.Nodes),
			Edges: slices.Clone(s.graph.Edges),
		}, nil
	}
	return graph.FromEntities(s.nodes()), nil
}

// GetGraphForSamples derives the graph of the samples' member nodes. An
// unknown sample id fails the whole call.
func (s *Source) GetGraphForSamples(ctx context.Context, sampleIDs []string) (graph.Payload, error) {
	if err := s.wait(ctx); err != nil {
		return graph.Payload{}, err
	}
	samples := make([]entity.Entity, 0, len(sampleIDs))
	for _, id := range sampleIDs {
		e, err := s.lookup(entity.KindSample, id)
		if err != nil {
			return graph.Payload{}, err
		}
		samples = append(samples, e)
	}
	return source.SampleGraph(samples, s.nodes()), nil
}

func (s *Source) Close() error { return nil }

var _ source.Source = (*Source)(nil)
