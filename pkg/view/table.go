package view

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/source"
	"github.com/matzehuels/labgraph/pkg/table"
)

// TableOptions configures a [TableView].
type TableOptions struct {
	PageSize    int              // Zero means table.DefaultPageSize
	SampleLimit int              // Samples fetched per refresh; zero fetches all
	Projector   *table.Projector // Nil means English collation
	Logger      *log.Logger
}

// TableView is the state behind one entity table: the fetched collection
// and the user's query over it.
type TableView struct {
	kind      entity.Kind
	src       source.Source
	limit     int
	projector *table.Projector
	loader    *Loader[[]entity.Entity]

	mu    sync.Mutex
	query table.Query
}

// NewTableView returns an empty table for kind. Call Refresh to load it.
func NewTableView(src source.Source, kind entity.Kind, opts TableOptions) *TableView {
	if opts.PageSize == 0 {
		opts.PageSize = table.DefaultPageSize
	}
	if opts.Projector == nil {
		opts.Projector = table.NewProjector(table.DefaultLocale)
	}
	count := func(es []entity.Entity) int { return len(es) }
	return &TableView{
		kind:      kind,
		src:       src,
		limit:     opts.SampleLimit,
		projector: opts.Projector,
		loader:    NewLoader(kind.Collection(), count, opts.Logger),
		query:     *table.NewQuery(opts.PageSize),
	}
}

// Kind returns the entity kind shown by the table.
func (v *TableView) Kind() entity.Kind { return v.kind }

// Refresh refetches the collection. On failure the previous rows stay in
// place; a response overtaken by a newer Refresh returns ErrStale.
func (v *TableView) Refresh(ctx context.Context) error {
	return v.loader.Load(ctx, func(ctx context.Context) ([]entity.Entity, error) {
		if v.kind == entity.KindSample {
			return v.src.ListSampleSummaries(ctx, v.limit)
		}
		return v.src.ListEntities(ctx, v.kind)
	})
}

// Update applies fn to the query, typically one of the table.Query On*
// callbacks.
func (v *TableView) Update(fn func(q *table.Query)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.query)
}

// Query returns a copy of the current query.
func (v *TableView) Query() table.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	q := v.query
	q.Tags = append([]string(nil), q.Tags...)
	return q
}

// Render projects the last good collection through the query. The stored
// query adopts the clamped page so that paging forward from it is stable.
func (v *TableView) Render() table.View {
	data, _ := v.loader.Value()

	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.projector.NewView(v.kind, data, v.query)
	v.query.Page = out.Query.Page
	return out
}

// Rows returns the full unprojected collection.
func (v *TableView) Rows() []entity.Entity {
	data, _ := v.loader.Value()
	return data
}

// Wait blocks until the latest Refresh has settled. See [Loader.Wait].
func (v *TableView) Wait(ctx context.Context) error { return v.loader.Wait(ctx) }

// State reports the loader progress.
func (v *TableView) State() State { return v.loader.State() }
