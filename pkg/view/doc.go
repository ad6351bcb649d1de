// Package view holds the UI state between data sources and render sinks.
//
// A view owns the last good data it fetched and the user's interaction
// state over it. [TableView] pairs an entity collection with a table.Query;
// [GraphView] pairs a graph payload with a graph.Builder. Both are driven
// the same way:
//
//	tv := view.NewTableView(src, entity.KindMaterial, view.TableOptions{})
//	if err := tv.Refresh(ctx); err != nil {
//	    // the previous rows are still shown
//	}
//	tv.Update(func(q *table.Query) { q.OnSearchChange("oxide") })
//	frame := tv.Render()
//
// # Refresh Ordering
//
// Fetches are sequenced by a [Loader]. When refreshes overlap, only the most
// recently issued one is applied and earlier responses return [ErrStale],
// so the displayed data never moves backwards in time. Transient failures
// leave the last good data in place.
//
// Views are safe for concurrent use, which lets the HTTP server share one
// view per kind across requests.
package view
