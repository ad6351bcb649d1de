package table

import (
	"fmt"

	"github.com/matzehuels/labgraph/pkg/entity"
)

// DefaultPageSize is the number of rows per page when none is configured.
const DefaultPageSize = 10

// Query is the mutable filter, sort and page state behind one table view.
// It is owned by the caller and passed to [Project] on every render; the
// engine itself keeps no state.
//
// Page and PageSize must be positive. The On* methods mirror user
// interactions and keep the page consistent with the filters.
type Query struct {
	Search   string   `json:"search"`    // Free-text filter, matched case- and space-insensitively
	Tags     []string `json:"tags"`      // Selected tags; a row must carry all of them
	SortKey  string   `json:"sort_key"`  // Field name to sort on; empty keeps collection order
	Reversed bool     `json:"reversed"`  // Descending order when SortKey is set
	Page     int      `json:"page"`      // 1-based page number
	PageSize int      `json:"page_size"` // Rows per page
}

// NewQuery returns the state of a freshly mounted table: page 1, no search,
// no tags, no sort. It panics if pageSize is not positive.
func NewQuery(pageSize int) *Query {
	mustPositive("page size", pageSize)
	return &Query{Page: 1, PageSize: pageSize}
}

// OnSearchChange sets the search text and returns to page 1.
func (q *Query) OnSearchChange(text string) {
	q.Search = text
	q.Page = 1
}

// OnTagSelectionChange replaces the selected tags and returns to page 1.
// Duplicate tags are dropped.
func (q *Query) OnTagSelectionChange(tags []string) {
	q.Tags = entity.NewTags(tags...)
	q.Page = 1
}

// OnSortChange handles a column header click. Clicking the current sort
// column flips the direction, clicking another column sorts ascending by it,
// and an empty key clears sorting. The page is left alone.
func (q *Query) OnSortChange(key string) {
	switch {
	case key == "":
		q.SortKey, q.Reversed = "", false
	case key == q.SortKey:
		q.Reversed = !q.Reversed
	default:
		q.SortKey, q.Reversed = key, false
	}
}

// OnPageChange moves to page. It panics if page is not positive; pages past
// the end are clamped by [Project].
func (q *Query) OnPageChange(page int) {
	mustPositive("page", page)
	q.Page = page
}

// validate enforces the caller contract. Violations are programming errors,
// not data problems, so they panic.
func (q *Query) validate() {
	mustPositive("page size", q.PageSize)
	mustPositive("page", q.Page)
}

func mustPositive(what string, v int) {
	if v <= 0 {
		panic(fmt.Sprintf("table: %s must be positive, got %d", what, v))
	}
}
