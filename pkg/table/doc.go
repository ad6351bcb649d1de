// Package table turns entity collections into paginated table projections.
//
// # Pipeline
//
// [Project] is a pure function of (collection, [Query]). It applies, in a
// fixed order:
//
//  1. Tag filter: AND semantics, a row must carry every selected tag
//  2. Free-text filter: any field contains the search text, ignoring case
//     and surrounding whitespace
//  3. Sort: stable, locale-aware, on the canonical string of one field
//  4. Pagination: the page is clamped so it always points at real rows
//
// The input collection is never modified.
//
// # Query State
//
// A [Query] is created per table with [NewQuery] and mutated by the On*
// callbacks as the user types, picks tags, clicks headers or pages:
//
//	q := table.NewQuery(table.DefaultPageSize)
//	q.OnTagSelectionChange([]string{"xrd"})
//	q.OnSortChange(entity.FieldCreatedAt)
//	page := table.Project(samples, *q)
//
// Changing tags or search returns to page 1; sorting and paging do not.
//
// # Contract
//
// A non-positive page or page size is a caller bug and panics. Empty results,
// unknown sort keys and missing fields are normal data conditions and never
// fail.
package table
