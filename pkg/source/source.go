// Package source defines the read-only data source contract and helpers
// shared by its implementations.
//
// Three implementations live in subpackages:
//
//   - [rest]: the lab dashboard HTTP API
//   - [mongo]: the lab MongoDB database, read directly
//   - [fixture]: an in-memory dataset loaded from a JSON file
//
// Errors follow one taxonomy regardless of backend: unknown ids carry
// errors.ErrCodeNotFound, transient failures carry ErrCodeNetwork or
// ErrCodeTimeout, and undecodable payloads carry ErrCodeInvalidFormat.
//
// [rest]: github.com/matzehuels/labgraph/pkg/source/rest
// [mongo]: github.com/matzehuels/labgraph/pkg/source/mongo
// [fixture]: github.com/matzehuels/labgraph/pkg/source/fixture
package source

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/graph"
)

// Source is a read-only view of the lab dataset.
type Source interface {
	// ListSampleSummaries returns the limit most recently created samples,
	// newest first. A limit of 0 returns every sample.
	ListSampleSummaries(ctx context.Context, limit int) ([]entity.Entity, error)

	// GetSample returns one sample with its member node ids.
	GetSample(ctx context.Context, id string) (entity.Entity, error)

	// GetEntity returns one entity of the given kind.
	GetEntity(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error)

	// ListEntities returns every entity of the given kind in storage order.
	ListEntities(ctx context.Context, kind entity.Kind) ([]entity.Entity, error)

	// GetFullGraph returns the graph of every node entity.
	GetFullGraph(ctx context.Context) (graph.Payload, error)

	// GetGraphForSamples returns the graph restricted to the member nodes of
	// the given samples. References leaving that scope become stub nodes.
	GetGraphForSamples(ctx context.Context, sampleIDs []string) (graph.Payload, error)

	// Close releases connections held by the source.
	Close() error
}

// NotFound returns the error reported for a missing entity.
func NotFound(kind entity.Kind, id string) error {
	return errors.New(errors.ErrCodeNotFound, "no %s with id %q", kind, id)
}

// NewestFirst returns a copy of samples sorted by creation time, newest
// first, truncated to limit entries when limit is positive. Samples with
// equal timestamps keep their relative order.
func NewestFirst(samples []entity.Entity, limit int) []entity.Entity {
	out := slices.Clone(samples)
	slices.SortStableFunc(out, func(a, b entity.Entity) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []entity.Entity{}
	}
	return out
}

// MemberIDs returns the node ids referenced by samples, deduplicated, in
// sample order and then node-kind order.
func MemberIDs(samples []entity.Entity) []string {
	seen := make(map[string]bool)
	var ids []string
	for i := range samples {
		body, ok := samples[i].Body.(*entity.SampleBody)
		if !ok {
			continue
		}
		for _, k := range entity.NodeKinds() {
			for _, id := range body.Nodes[k] {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// SampleGraph builds the graph for the given samples out of the full node
// collection: only member nodes are included, and references to anything
// else become stubs.
func SampleGraph(samples, nodes []entity.Entity) graph.Payload {
	members := make(map[string]bool)
	for _, id := range MemberIDs(samples) {
		members[id] = true
	}
	scoped := make([]entity.Entity, 0, len(members))
	for _, n := range nodes {
		if members[n.ID] {
			scoped = append(scoped, n)
		}
	}
	return graph.FromEntities(scoped)
}

// LoadAll lists every given kind concurrently. The first failure cancels the
// remaining fetches and is returned.
func LoadAll(ctx context.Context, src Source, kinds ...entity.Kind) (map[entity.Kind][]entity.Entity, error) {
	results := make([][]entity.Entity, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		g.Go(func() error {
			list, err := src.ListEntities(gctx, k)
			if err != nil {
				return err
			}
			results[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[entity.Kind][]entity.Entity, len(kinds))
	for i, k := range kinds {
		out[k] = results[i]
	}
	return out, nil
}
