package rest

import (
	"context"
	"strconv"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/graph"
	"github.com/matzehuels/labgraph/pkg/source"
)

// ListSampleSummaries calls GET /sample/summary/{limit}. The server already
// orders by creation time; the result is re-sorted so that a server without
// that guarantee still yields newest-first order.
func (c *Client) ListSampleSummaries(ctx context.Context, limit int) ([]entity.Entity, error) {
	if limit < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "sample limit must be >= 0, got %d", limit)
	}
	var raw []map[string]any
	if err := c.getJSON(ctx, c.endpoint("sample", "summary", strconv.Itoa(limit)), &raw); err != nil {
		return nil, err
	}
	samples, err := entity.FromMaps(entity.KindSample, raw)
	if err != nil {
		return nil, err
	}
	return source.NewestFirst(samples, limit), nil
}

// GetSample calls GET /sample/{id}.
func (c *Client) GetSample(ctx context.Context, id string) (entity.Entity, error) {
	return c.getEntity(ctx, entity.KindSample, c.endpoint("sample", id))
}

// GetEntity calls GET /{kind}/{id}. Samples are served by [Client.GetSample].
func (c *Client) GetEntity(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	switch {
	case kind == entity.KindSample:
		return c.GetSample(ctx, id)
	case kind.IsNode():
		return c.getEntity(ctx, kind, c.endpoint(string(kind), id))
	case kind == entity.KindActor:
		return entity.Entity{}, errors.New(errors.ErrCodeUnsupported, "the dashboard API does not serve actors")
	}
	return entity.Entity{}, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", kind)
}

func (c *Client) getEntity(ctx context.Context, kind entity.Kind, endpoint string) (entity.Entity, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return entity.Entity{}, err
	}
	if raw == nil {
		return entity.Entity{}, errors.New(errors.ErrCodeInvalidFormat, "empty %s response from %s", kind, endpoint)
	}
	return entity.FromMap(kind, raw)
}

// ListEntities returns every entity of kind. Samples come from the summary
// endpoint; node kinds are reconstructed from GET /graph/complete.
func (c *Client) ListEntities(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	switch {
	case kind == entity.KindSample:
		return c.ListSampleSummaries(ctx, 0)
	case kind.IsNode():
		p, err := c.GetFullGraph(ctx)
		if err != nil {
			return nil, err
		}
		return EntitiesFromGraph(p, kind)
	case kind == entity.KindActor:
		return nil, errors.New(errors.ErrCodeUnsupported, "the dashboard API does not list actors")
	}
	return nil, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", kind)
}

// GetFullGraph calls GET /graph/complete.
func (c *Client) GetFullGraph(ctx context.Context) (graph.Payload, error) {
	var p graph.Payload
	if err := c.getJSON(ctx, c.endpoint("graph", "complete"), &p); err != nil {
		return graph.Payload{}, err
	}
	return normalizePayload(p), nil
}

type samplesRequest struct {
	SampleIDs []string `json:"sample_ids"`
}

// GetGraphForSamples calls POST /graph/samples. An empty id list yields an
// empty graph without a request.
func (c *Client) GetGraphForSamples(ctx context.Context, sampleIDs []string) (graph.Payload, error) {
	if len(sampleIDs) == 0 {
		return normalizePayload(graph.Payload{}), nil
	}
	var p graph.Payload
	if err := c.postJSON(ctx, c.endpoint("graph", "samples"), samplesRequest{SampleIDs: sampleIDs}, &p); err != nil {
		return graph.Payload{}, err
	}
	return normalizePayload(p), nil
}

func normalizePayload(p graph.Payload) graph.Payload {
	if p.Nodes == nil {
		p.Nodes = []graph.NodeRecord{}
	}
	if p.Edges == nil {
		p.Edges = []graph.EdgeRecord{}
	}
	return p
}

// EntitiesFromGraph rebuilds the entities of one node kind from a graph
// payload. Node content supplies the stored fields, and upstream and
// downstream references are recovered from the edges incident to each node.
func EntitiesFromGraph(p graph.Payload, kind entity.Kind) ([]entity.Entity, error) {
	types := make(map[string]string, len(p.Nodes))
	for _, n := range p.Nodes {
		types[n.ID] = n.Content.Type()
	}
	ref := func(id string) map[string]any {
		return map[string]any{"node_type": types[id], "node_id": id}
	}
	upstream := make(map[string][]any)
	downstream := make(map[string][]any)
	for _, e := range p.Edges {
		upstream[e.Target] = append(upstream[e.Target], ref(e.Source))
		downstream[e.Source] = append(downstream[e.Source], ref(e.Target))
	}

	out := []entity.Entity{}
	for _, n := range p.Nodes {
		k, err := entity.ParseKind(n.Content.Type())
		if err != nil || k != kind {
			continue
		}
		m := make(map[string]any, len(n.Content)+3)
		for key, v := range n.Content {
			if key != graph.ContentType {
				m[key] = v
			}
		}
		m["_id"] = n.ID
		m["upstream"] = upstream[n.ID]
		m["downstream"] = downstream[n.ID]
		e, err := entity.FromMap(kind, m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

var _ source.Source = (*Client)(nil)
