// Package mongo implements [source.Source] by reading the lab MongoDB
// database directly, bypassing the dashboard API.
//
// Each entity kind lives in its own collection (see [entity.Kind.Collection]).
// Documents are decoded generically and converted to entities after BSON
// values are normalized: ObjectIDs become hex strings, BSON dates become
// time.Time, and nested arrays and documents become []any and
// map[string]any.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/graph"
	"github.com/matzehuels/labgraph/pkg/source"
)

const (
	// DefaultDatabase is used when Options.Database is empty.
	DefaultDatabase = "labgraph"

	// DefaultTimeout bounds connection setup.
	DefaultTimeout = 10 * time.Second
)

// Options configures a MongoDB source.
type Options struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Source reads entities from MongoDB.
type Source struct {
	client *mongo.Client
	db     *mongo.Database
	owned  bool
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, opts Options) (*Source, error) {
	if opts.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo source: URI is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "mongo source: connect")
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "mongo source: ping %s", redact(opts.URI))
	}

	s := NewFromClient(client, opts.Database)
	s.owned = true
	return s, nil
}

// NewFromClient wraps an existing client. Close does not disconnect it.
func NewFromClient(client *mongo.Client, database string) *Source {
	if database == "" {
		database = DefaultDatabase
	}
	return &Source{client: client, db: client.Database(database)}
}

// Close disconnects the client if the source created it.
func (s *Source) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Source) collection(k entity.Kind) (*mongo.Collection, error) {
	name := k.Collection()
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidKind, "unknown entity kind: %q", k)
	}
	return s.db.Collection(name), nil
}

// ListSampleSummaries returns samples sorted by created_at descending,
// projected to the fields the dashboard summary carries.
func (s *Source) ListSampleSummaries(ctx context.Context, limit int) ([]entity.Entity, error) {
	if limit < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "sample limit must be >= 0, got %d", limit)
	}
	coll, _ := s.collection(entity.KindSample)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.D{
			{Key: "_id", Value: 1},
			{Key: "name", Value: 1},
			{Key: "description", Value: 1},
			{Key: "nodes", Value: 1},
			{Key: "tags", Value: 1},
			{Key: "created_at", Value: 1},
		})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	samples, err := s.find(ctx, coll, entity.KindSample, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	return source.NewestFirst(samples, limit), nil
}

func (s *Source) GetSample(ctx context.Context, id string) (entity.Entity, error) {
	return s.GetEntity(ctx, entity.KindSample, id)
}

func (s *Source) GetEntity(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return entity.Entity{}, err
	}
	var doc bson.M
	err = coll.FindOne(ctx, idFilter(id)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return entity.Entity{}, source.NotFound(kind, id)
	}
	if err != nil {
		return entity.Entity{}, classify(ctx, err, "find %s %q", kind, id)
	}
	return entity.FromMap(kind, Normalize(doc))
}

// ListEntities returns the whole collection in natural order.
func (s *Source) ListEntities(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, coll, kind, bson.D{}, nil)
}

// GetFullGraph reads the four node collections concurrently and derives
// the graph from their references.
func (s *Source) GetFullGraph(ctx context.Context) (graph.Payload, error) {
	nodes, err := s.nodes(ctx, nil)
	if err != nil {
		return graph.Payload{}, err
	}
	return graph.FromEntities(nodes), nil
}

// GetGraphForSamples loads the samples, then only their member nodes.
func (s *Source) GetGraphForSamples(ctx context.Context, sampleIDs []string) (graph.Payload, error) {
	samples := make([]entity.Entity, 0, len(sampleIDs))
	for _, id := range sampleIDs {
		e, err := s.GetSample(ctx, id)
		if err != nil {
			return graph.Payload{}, err
		}
		samples = append(samples, e)
	}

	members := make(map[entity.Kind][]string)
	for i := range samples {
		if body, ok := samples[i].Body.(*entity.SampleBody); ok {
			for k, ids := range body.Nodes {
				members[k] = append(members[k], ids...)
			}
		}
	}
	nodes, err := s.nodes(ctx, members)
	if err != nil {
		return graph.Payload{}, err
	}
	return source.SampleGraph(samples, nodes), nil
}

// nodes reads every node collection, or only the listed ids per kind when
// only is non-nil.
func (s *Source) nodes(ctx context.Context, only map[entity.Kind][]string) ([]entity.Entity, error) {
	kinds := entity.NodeKinds()
	results := make([][]entity.Entity, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		filter := bson.D{}
		if only != nil {
			ids := only[k]
			if len(ids) == 0 {
				continue
			}
			filter = idsFilter(ids)
		}
		g.Go(func() error {
			coll, _ := s.collection(k)
			list, err := s.find(gctx, coll, k, filter, nil)
			results[i] = list
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []entity.Entity
	for _, list := range results {
		all = append(all, list...)
	}
	return all, nil
}

func (s *Source) find(ctx context.Context, coll *mongo.Collection, kind entity.Kind, filter any, opts *options.FindOptions) ([]entity.Entity, error) {
	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}
	cur, err := coll.Find(ctx, filter, findOpts...)
	if err != nil {
		return nil, classify(ctx, err, "query %s", coll.Name())
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(ctx, err, "read %s", coll.Name())
	}
	raw := make([]map[string]any, len(docs))
	for i, d := range docs {
		raw[i] = Normalize(d)
	}
	return entity.FromMaps(kind, raw)
}

// idFilter matches id as an ObjectID when it is valid hex, and as a plain
// string otherwise or in addition.
func idFilter(id string) bson.D {
	return idsFilter([]string{id})
}

func idsFilter(ids []string) bson.D {
	values := make(bson.A, 0, len(ids)*2)
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			values = append(values, oid)
		}
		values = append(values, id)
	}
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: values}}}}
}

func classify(ctx context.Context, err error, format string, args ...any) error {
	switch {
	case ctx.Err() == context.DeadlineExceeded || mongo.IsTimeout(err):
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	case mongo.IsNetworkError(err):
		return errors.Wrap(errors.ErrCodeNetwork, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeInternal, err, format, args...)
}

var _ source.Source = (*Source)(nil)
