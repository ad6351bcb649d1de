package table

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/matzehuels/labgraph/pkg/entity"
)

// Page is the result of projecting a collection through a [Query].
type Page struct {
	Rows       []entity.Entity `json:"rows"`        // At most PageSize rows
	TotalCount int             `json:"total_count"` // Rows surviving the filters
	PageCount  int             `json:"page_count"`  // Never less than 1
	Page       int             `json:"page"`        // Effective page after clamping
}

// Projector runs the filter → sort → paginate pipeline with locale-aware
// string comparison. A Projector has no mutable state and is safe for
// concurrent use.
type Projector struct {
	locale language.Tag
}

// NewProjector returns a Projector comparing strings under locale.
// Use language.Und for root collation.
func NewProjector(locale language.Tag) *Projector {
	return &Projector{locale: locale}
}

// DefaultLocale is the collation locale used by [Project].
var DefaultLocale = language.English

var defaultProjector = NewProjector(DefaultLocale)

// Project applies q to data using English collation. See [Projector.Project].
func Project(data []entity.Entity, q Query) Page {
	return defaultProjector.Project(data, q)
}

// Project filters, sorts and paginates data according to q, in this order:
//
//  1. keep rows carrying every selected tag
//  2. keep rows where any field contains the search text
//  3. stable sort by SortKey (missing fields sort as "")
//  4. clamp the page into [1, PageCount] and slice out its rows
//
// data is never modified. An empty result is not an error: it yields no rows
// and a single page. Project panics if q.Page or q.PageSize is not positive.
func (p *Projector) Project(data []entity.Entity, q Query) Page {
	q.validate()

	rows := FilterTags(data, q.Tags)
	rows = FilterText(rows, q.Search)
	if q.SortKey != "" {
		rows = p.Sort(rows, q.SortKey, q.Reversed)
	}
	return paginate(rows, q.Page, q.PageSize)
}

// FilterTags returns the entities whose tags include every tag in want.
// With no tags selected the input is returned unchanged.
func FilterTags(data []entity.Entity, want []string) []entity.Entity {
	if len(want) == 0 {
		return data
	}
	out := make([]entity.Entity, 0, len(data))
	for _, e := range data {
		if e.Tags.HasAll(want) {
			out = append(out, e)
		}
	}
	return out
}

// FilterText returns the entities with at least one field containing search.
// Both sides are lowercased and trimmed; an empty search keeps everything.
func FilterText(data []entity.Entity, search string) []entity.Entity {
	query := normalize(search)
	if query == "" {
		return data
	}
	out := make([]entity.Entity, 0, len(data))
	for i := range data {
		if matches(&data[i], query) {
			out = append(out, data[i])
		}
	}
	return out
}

func matches(e *entity.Entity, query string) bool {
	for _, v := range e.Values() {
		if strings.Contains(normalize(v), query) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Sort returns a copy of data stably ordered by the string value of key.
// Reversing flips the comparison rather than the result, so rows with equal
// keys keep their original relative order in both directions.
func (p *Projector) Sort(data []entity.Entity, key string, reversed bool) []entity.Entity {
	type keyed struct {
		key string
		e   entity.Entity
	}
	items := make([]keyed, len(data))
	for i := range data {
		v, _ := data[i].Field(key)
		items[i] = keyed{key: v, e: data[i]}
	}

	col := collate.New(p.locale)
	slices.SortStableFunc(items, func(a, b keyed) int {
		if reversed {
			return col.CompareString(b.key, a.key)
		}
		return col.CompareString(a.key, b.key)
	})

	out := make([]entity.Entity, len(items))
	for i, it := range items {
		out[i] = it.e
	}
	return out
}

func paginate(rows []entity.Entity, page, size int) Page {
	total := len(rows)
	pages := max(1, (total+size-1)/size)
	page = min(max(page, 1), pages)

	from := min((page-1)*size, total)
	to := min(from+size, total)
	out := make([]entity.Entity, to-from)
	copy(out, rows[from:to])
	return Page{
		Rows:       out,
		TotalCount: total,
		PageCount:  pages,
		Page:       page,
	}
}

// TagVocabulary returns the union of all tags in data, deduplicated and
// sorted lexicographically. It is the list offered in the tag selector.
func TagVocabulary(data []entity.Entity) []string {
	seen := make(map[string]struct{})
	for _, e := range data {
		for _, t := range e.Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
