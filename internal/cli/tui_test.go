package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/source/fixture"
	"github.com/matzehuels/labgraph/pkg/table"
)

func newTestBrowser(t *testing.T, start entity.Kind, pageSize int) BrowseModel {
	t.Helper()
	src, err := fixture.Load(labFixture)
	if err != nil {
		t.Fatal(err)
	}
	m := NewBrowseModel(context.Background(), src, BrowseOptions{Start: start, PageSize: pageSize})
	return run(t, m, m.Init())
}

// run executes cmd synchronously and feeds its message back into m.
func run(t *testing.T, m BrowseModel, cmd tea.Cmd) BrowseModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	next, _ := m.Update(cmd())
	return next.(BrowseModel)
}

func press(t *testing.T, m BrowseModel, keys ...string) BrowseModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, cmd := m.Update(msg)
		m = run(t, next.(BrowseModel), cmd)
	}
	return m
}

func TestBrowseInitLoadsStartKind(t *testing.T) {
	m := newTestBrowser(t, entity.KindMaterial, 10)
	if m.Kind() != entity.KindMaterial {
		t.Fatalf("Kind() = %s", m.Kind())
	}
	if got := len(m.current().Rows()); got != 4 {
		t.Errorf("rows = %d, want 4", got)
	}
	if !strings.Contains(m.View(), "LiCoO2") {
		t.Error("View() should show the loaded rows")
	}
}

func TestBrowseCursorAndPaging(t *testing.T) {
	m := newTestBrowser(t, entity.KindMaterial, 2)

	m = press(t, m, "j", "j", "j")
	if m.Cursor != 1 {
		t.Errorf("Cursor = %d, want clamped to last row of page", m.Cursor)
	}
	m = press(t, m, "l")
	if v := m.current().Render(); v.Page.Page != 2 || m.Cursor != 0 {
		t.Errorf("after next page: page %d, cursor %d", v.Page.Page, m.Cursor)
	}
	m = press(t, m, "l")
	if v := m.current().Render(); v.Page.Page != 2 {
		t.Errorf("paging past the end moved to page %d", v.Page.Page)
	}
	m = press(t, m, "h", "h")
	if v := m.current().Render(); v.Page.Page != 1 {
		t.Errorf("after previous page: page %d", v.Page.Page)
	}
}

func TestBrowseSearch(t *testing.T) {
	m := newTestBrowser(t, entity.KindMaterial, 10)

	m = press(t, m, "/", "n", "m", "c")
	if got := m.current().Render().TotalCount; got != 1 {
		t.Errorf("search should filter live, got %d rows", got)
	}
	m = press(t, m, "enter")
	if m.mode != modeNormal || m.current().Query().Search != "nmc" {
		t.Errorf("enter should keep the search, query = %+v", m.current().Query())
	}
	m = press(t, m, "/", "esc")
	if m.current().Query().Search != "" {
		t.Error("esc should clear the search")
	}
}

func TestBrowseTagsAndSort(t *testing.T) {
	m := newTestBrowser(t, entity.KindMaterial, 10)

	m = press(t, m, "t", "c", "a", "t", "h", "o", "d", "e", "enter")
	if q := m.current().Query(); len(q.Tags) != 1 || q.Tags[0] != "cathode" {
		t.Fatalf("tags = %v", q.Tags)
	}
	m = press(t, m, "t", "n", "o", "p", "e", "enter")
	if !strings.Contains(m.status, "unknown tag") {
		t.Errorf("status = %q", m.status)
	}

	m = press(t, m, "s")
	cols := table.Columns(entity.KindMaterial)
	if q := m.current().Query(); q.SortKey != cols[0].Field || q.Reversed {
		t.Errorf("first sort press: %+v", q)
	}
	m = press(t, m, "S")
	if q := m.current().Query(); !q.Reversed {
		t.Errorf("S should reverse: %+v", q)
	}

	m = press(t, m, "T")
	if q := m.current().Query(); len(q.Tags) != 0 {
		t.Errorf("T should clear tags: %v", q.Tags)
	}
}

func TestBrowseSwitchKinds(t *testing.T) {
	m := newTestBrowser(t, entity.KindMaterial, 10)
	m = press(t, m, "/", "l", "i", "enter")

	m = press(t, m, "tab")
	if m.Kind() == entity.KindMaterial {
		t.Fatal("tab should switch kinds")
	}
	if m.current().State().Applied == 0 {
		t.Error("switching to an unloaded kind should fetch it")
	}

	for m.Kind() != entity.KindMaterial {
		m = press(t, m, "tab")
	}
	if m.current().Query().Search != "li" {
		t.Error("each kind should keep its own query")
	}
}

func TestBrowseRefreshFailureKeepsRows(t *testing.T) {
	m := newTestBrowser(t, entity.KindMaterial, 10)
	next, _ := m.Update(refreshedMsg{kind: entity.KindMaterial, err: errors.New(errors.ErrCodeNetwork, "dashboard down")})
	m = next.(BrowseModel)
	if !strings.Contains(m.status, "cached rows") || len(m.current().Rows()) != 4 {
		t.Errorf("status = %q, rows = %d", m.status, len(m.current().Rows()))
	}
}

func TestNextSortKey(t *testing.T) {
	cols := []table.Column{{Field: "name"}, {Field: "created_at"}}
	tests := []struct{ current, want string }{
		{"", "name"},
		{"name", "created_at"},
		{"created_at", ""},
		{"unknown", ""},
	}
	for _, tt := range tests {
		if got := nextSortKey(cols, tt.current); got != tt.want {
			t.Errorf("nextSortKey(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}
