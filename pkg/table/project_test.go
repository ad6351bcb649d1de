package table

import (
	"fmt"
	"slices"
	"testing"

	"golang.org/x/text/language"

	"github.com/matzehuels/labgraph/pkg/entity"
)

func mk(id, name string, tags ...string) entity.Entity {
	e, _ := entity.New(entity.KindMaterial, id, name)
	e.Tags = entity.NewTags(tags...)
	return e
}

func ids(rows []entity.Entity) []string {
	out := make([]string, len(rows))
	for i, e := range rows {
		out[i] = e.ID
	}
	return out
}

func numbered(n int) []entity.Entity {
	out := make([]entity.Entity, n)
	for i := range out {
		out[i] = mk(fmt.Sprintf("%d", i+1), fmt.Sprintf("item %02d", i+1))
	}
	return out
}

func TestProjectTagFilterAND(t *testing.T) {
	data := []entity.Entity{mk("1", "first", "a", "b"), mk("2", "second", "a")}
	q := NewQuery(DefaultPageSize)
	q.OnTagSelectionChange([]string{"a", "b"})

	got := Project(data, *q)
	if !slices.Equal(ids(got.Rows), []string{"1"}) {
		t.Errorf("Project() rows = %v, want [1]", ids(got.Rows))
	}
	if got.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", got.TotalCount)
	}
}

func TestFilterTagsIdentity(t *testing.T) {
	data := []entity.Entity{mk("1", "x", "a"), mk("2", "y"), mk("3", "z", "b")}
	if got := FilterTags(data, nil); !slices.Equal(ids(got), []string{"1", "2", "3"}) {
		t.Errorf("FilterTags(nil) = %v, want input unchanged", ids(got))
	}
}

func TestFilterTagsSubset(t *testing.T) {
	data := []entity.Entity{
		mk("1", "", "a", "b", "c"),
		mk("2", "", "b", "c"),
		mk("3", "", "c"),
		mk("4", ""),
	}
	tests := []struct {
		tags []string
		want []string
	}{
		{[]string{"c"}, []string{"1", "2", "3"}},
		{[]string{"b", "c"}, []string{"1", "2"}},
		{[]string{"a", "c"}, []string{"1"}},
		{[]string{"d"}, []string{}},
		{[]string{"C"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.tags), func(t *testing.T) {
			if got := ids(FilterTags(data, tt.tags)); !slices.Equal(got, tt.want) {
				t.Errorf("FilterTags(%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestFilterText(t *testing.T) {
	withExtra := mk("9", "plain")
	withExtra.Extra = map[string]any{"furnace": "Tube Furnace 3"}

	data := []entity.Entity{
		mk("1", "Lithium Oxide"),
		mk("2", "  cobalt  ", "Annealed"),
		mk("3", "nickel"),
		withExtra,
	}
	tests := []struct {
		search string
		want   []string
	}{
		{"", []string{"1", "2", "3", "9"}},
		{"   ", []string{"1", "2", "3", "9"}},
		{"lithium", []string{"1"}},
		{"  LITHIUM  ", []string{"1"}},
		{"annealed", []string{"2"}},
		{"cobalt", []string{"2"}},
		{"furnace 3", []string{"9"}},
		{"3", []string{"3", "9"}},
		{"zinc", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			if got := ids(FilterText(data, tt.search)); !slices.Equal(got, tt.want) {
				t.Errorf("FilterText(%q) = %v, want %v", tt.search, got, tt.want)
			}
		})
	}
}

func TestSortStable(t *testing.T) {
	data := []entity.Entity{
		mk("1", "beta"),
		mk("2", "alpha"),
		mk("3", "beta"),
		mk("4", "alpha"),
		mk("5", "gamma"),
	}
	p := NewProjector(language.English)

	asc := ids(p.Sort(data, entity.FieldName, false))
	if want := []string{"2", "4", "1", "3", "5"}; !slices.Equal(asc, want) {
		t.Errorf("Sort(asc) = %v, want %v", asc, want)
	}
	desc := ids(p.Sort(data, entity.FieldName, true))
	if want := []string{"5", "1", "3", "2", "4"}; !slices.Equal(desc, want) {
		t.Errorf("Sort(desc) = %v, want %v", desc, want)
	}
	if got := ids(data); !slices.Equal(got, []string{"1", "2", "3", "4", "5"}) {
		t.Errorf("Sort() mutated input: %v", got)
	}
}

func TestSortLocaleAware(t *testing.T) {
	data := []entity.Entity{mk("1", "Zeolite"), mk("2", "éther"), mk("3", "alumina")}
	got := ids(NewProjector(language.English).Sort(data, entity.FieldName, false))
	if want := []string{"3", "2", "1"}; !slices.Equal(got, want) {
		t.Errorf("Sort() = %v, want %v", got, want)
	}
}

func TestSortMissingField(t *testing.T) {
	a := mk("1", "a")
	a.Extra = map[string]any{"batch": "b"}
	b := mk("2", "b")
	c := mk("3", "c")
	c.Extra = map[string]any{"batch": "a"}

	got := ids(defaultProjector.Sort([]entity.Entity{a, b, c}, "batch", false))
	if want := []string{"2", "3", "1"}; !slices.Equal(got, want) {
		t.Errorf("Sort(missing) = %v, want %v", got, want)
	}
	got = ids(defaultProjector.Sort([]entity.Entity{a, b, c}, "no_such_field", true))
	if want := []string{"1", "2", "3"}; !slices.Equal(got, want) {
		t.Errorf("Sort(unknown key) = %v, want original order %v", got, want)
	}
}

func TestProjectPagination(t *testing.T) {
	data := numbered(25)
	q := NewQuery(10)
	q.OnPageChange(3)

	got := Project(data, *q)
	if len(got.Rows) != 5 {
		t.Errorf("len(Rows) = %d, want 5", len(got.Rows))
	}
	if got.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", got.PageCount)
	}
	if got.Rows[0].ID != "21" {
		t.Errorf("first row = %s, want 21", got.Rows[0].ID)
	}
}

func TestProjectPageClamp(t *testing.T) {
	data := numbered(12)
	q := NewQuery(5)
	q.OnPageChange(9)

	got := Project(data, *q)
	if got.Page != 3 {
		t.Errorf("Page = %d, want clamped to 3", got.Page)
	}
	if !slices.Equal(ids(got.Rows), []string{"11", "12"}) {
		t.Errorf("Rows = %v, want last page", ids(got.Rows))
	}
}

func TestProjectEmpty(t *testing.T) {
	got := Project(nil, *NewQuery(10))
	if got.Rows == nil || len(got.Rows) != 0 {
		t.Errorf("Rows = %v, want empty non-nil slice", got.Rows)
	}
	if got.TotalCount != 0 || got.PageCount != 1 || got.Page != 1 {
		t.Errorf("Project(nil) = %+v, want total 0, 1 page", got)
	}
}

func TestPaginationCoversAllRows(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for _, size := range []int{1, 3, 7, 10, 30} {
			data := numbered(n)
			q := NewQuery(size)
			first := Project(data, *q)

			sum := 0
			var seen []string
			for page := 1; page <= first.PageCount; page++ {
				q.OnPageChange(page)
				got := Project(data, *q)
				if len(got.Rows) > size {
					t.Fatalf("n=%d size=%d page=%d has %d rows", n, size, page, len(got.Rows))
				}
				sum += len(got.Rows)
				seen = append(seen, ids(got.Rows)...)
			}
			if sum != first.TotalCount {
				t.Errorf("n=%d size=%d: sum of pages = %d, want %d", n, size, sum, first.TotalCount)
			}
			if !slices.Equal(seen, ids(data)) {
				t.Errorf("n=%d size=%d: pages do not cover rows in order", n, size)
			}
		}
	}
}

func TestProjectOrder(t *testing.T) {
	data := []entity.Entity{
		mk("1", "b-sample", "keep"),
		mk("2", "a-sample", "keep"),
		mk("3", "a-other", "drop"),
		mk("4", "c-sample", "keep"),
	}
	q := NewQuery(2)
	q.OnTagSelectionChange([]string{"keep"})
	q.OnSearchChange("sample")
	q.OnSortChange(entity.FieldName)

	got := Project(data, *q)
	if !slices.Equal(ids(got.Rows), []string{"2", "1"}) {
		t.Errorf("Rows = %v, want [2 1]", ids(got.Rows))
	}
	if got.TotalCount != 3 || got.PageCount != 2 {
		t.Errorf("TotalCount/PageCount = %d/%d, want 3/2", got.TotalCount, got.PageCount)
	}
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	data := []entity.Entity{mk("1", "c"), mk("2", "a"), mk("3", "b")}
	q := NewQuery(2)
	q.OnSortChange(entity.FieldName)
	q.OnSearchChange("a")
	Project(data, *q)

	if got := ids(data); !slices.Equal(got, []string{"1", "2", "3"}) {
		t.Errorf("Project() mutated input: %v", got)
	}
}

func TestProjectPanicsOnBadQuery(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{"zero page size", Query{Page: 1, PageSize: 0}},
		{"negative page", Query{Page: -1, PageSize: 10}},
		{"zero page", Query{Page: 0, PageSize: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Project() did not panic")
				}
			}()
			Project(numbered(3), tt.q)
		})
	}
}

func TestTagVocabulary(t *testing.T) {
	data := []entity.Entity{mk("1", "", "xrd", "batch"), mk("2", "", "batch", "anneal"), mk("3", "")}
	want := []string{"anneal", "batch", "xrd"}
	if got := TagVocabulary(data); !slices.Equal(got, want) {
		t.Errorf("TagVocabulary() = %v, want %v", got, want)
	}
	if got := TagVocabulary(nil); len(got) != 0 {
		t.Errorf("TagVocabulary(nil) = %v, want empty", got)
	}
}

func TestNewView(t *testing.T) {
	data := numbered(4)
	data[0].Tags = entity.NewTags("x")
	q := NewQuery(3)
	q.OnPageChange(5)

	v := defaultProjector.NewView(entity.KindMaterial, data, *q)
	if v.Query.Page != 2 || v.Page.Page != 2 {
		t.Errorf("view page = %d/%d, want 2", v.Query.Page, v.Page.Page)
	}
	if len(v.Columns) != 4 || v.Columns[1].Field != entity.FieldUpstream {
		t.Errorf("Columns = %v, want node columns", v.Columns)
	}
	if !slices.Equal(v.Vocabulary, []string{"x"}) {
		t.Errorf("Vocabulary = %v", v.Vocabulary)
	}
	if got := Cell(&v.Rows[0], v.Columns[0]); got != "item 04" {
		t.Errorf("Cell() = %q, want %q", got, "item 04")
	}
}
