package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/labgraph/pkg/config"
	"github.com/matzehuels/labgraph/pkg/entity"
	"github.com/matzehuels/labgraph/pkg/errors"
	"github.com/matzehuels/labgraph/pkg/render/tablesink"
	"github.com/matzehuels/labgraph/pkg/source"
	"github.com/matzehuels/labgraph/pkg/table"
	"github.com/matzehuels/labgraph/pkg/view"
)

// Browser styles
var (
	tabActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Underline(true)
	tabStyle       = lipgloss.NewStyle().Foreground(colorGray)
	helpStyle      = lipgloss.NewStyle().Foreground(colorDim)
	promptStyle    = lipgloss.NewStyle().Foreground(colorCyan)
	errorStyle     = lipgloss.NewStyle().Foreground(colorRed)
)

func (c *CLI) browseCommand() *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse entity tables interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entity.ParseKind(start)
			if err != nil {
				return err
			}
			return c.withSource(cmd.Context(), func(ctx context.Context, cfg config.Config, src source.Source) error {
				m := NewBrowseModel(ctx, src, BrowseOptions{
					Start:       kind,
					PageSize:    cfg.Table.PageSize,
					SampleLimit: cfg.Source.SampleLimit,
					Projector:   projector(cfg),
				})
				// Log records would tear the alternate screen.
				c.Logger.SetOutput(io.Discard)
				_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&start, "kind", "k", string(entity.KindSample), "table to open first")
	return cmd
}

// =============================================================================
// BrowseModel - Interactive entity tables
// =============================================================================

// BrowseOptions configures a [BrowseModel].
type BrowseOptions struct {
	Start       entity.Kind
	PageSize    int
	SampleLimit int
	Projector   *table.Projector
}

type browseMode int

const (
	modeNormal browseMode = iota
	modeSearch
	modeTag
)

// refreshedMsg reports a finished TableView.Refresh.
type refreshedMsg struct {
	kind entity.Kind
	err  error
}

// BrowseModel is the bubbletea model for the table browser. One TableView
// per kind keeps each tab's query while switching between them.
type BrowseModel struct {
	ctx    context.Context
	kinds  []entity.Kind
	active int
	views  map[entity.Kind]*view.TableView

	Cursor int
	mode   browseMode
	input  string
	status string
	Width  int
}

// NewBrowseModel creates a browser over src. Nothing is fetched until the
// program runs Init.
func NewBrowseModel(ctx context.Context, src source.Source, opts BrowseOptions) BrowseModel {
	m := BrowseModel{
		ctx:   ctx,
		kinds: entity.Kinds(),
		views: make(map[entity.Kind]*view.TableView),
		Width: 120,
	}
	for i, k := range m.kinds {
		m.views[k] = view.NewTableView(src, k, view.TableOptions{
			PageSize:    opts.PageSize,
			SampleLimit: opts.SampleLimit,
			Projector:   opts.Projector,
			Logger:      loggerFromContext(ctx),
		})
		if k == opts.Start {
			m.active = i
		}
	}
	return m
}

// Kind returns the kind of the active tab.
func (m BrowseModel) Kind() entity.Kind { return m.kinds[m.active] }

func (m BrowseModel) current() *view.TableView { return m.views[m.Kind()] }

func (m BrowseModel) refresh() tea.Cmd {
	tv, ctx := m.current(), m.ctx
	return func() tea.Msg {
		return refreshedMsg{kind: tv.Kind(), err: tv.Refresh(ctx)}
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return m.refresh()
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshedMsg:
		switch {
		case msg.err == nil, stderrors.Is(msg.err, view.ErrStale):
			m.status = ""
		case errors.IsTransient(msg.err) && m.views[msg.kind].State().Applied > 0:
			m.status = "showing cached rows: " + errors.UserMessage(msg.err)
		default:
			m.status = errors.UserMessage(msg.err)
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.mode != modeNormal {
			return m.updateInput(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m BrowseModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tv := m.current()
	v := tv.Render()

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "shift+tab":
		step := 1
		if msg.String() == "shift+tab" {
			step = len(m.kinds) - 1
		}
		m.active = (m.active + step) % len(m.kinds)
		m.Cursor = 0
		if m.current().State().Applied == 0 {
			return m, m.refresh()
		}
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(v.Rows)-1 {
			m.Cursor++
		}
	case "right", "l", "pgdown":
		if v.Page.Page < v.PageCount {
			tv.Update(func(q *table.Query) { q.OnPageChange(v.Page.Page + 1) })
			m.Cursor = 0
		}
	case "left", "h", "pgup":
		if v.Page.Page > 1 {
			tv.Update(func(q *table.Query) { q.OnPageChange(v.Page.Page - 1) })
			m.Cursor = 0
		}
	case "s":
		next := nextSortKey(v.Columns, tv.Query().SortKey)
		tv.Update(func(q *table.Query) { q.OnSortChange(next) })
	case "S":
		if key := tv.Query().SortKey; key != "" {
			tv.Update(func(q *table.Query) { q.OnSortChange(key) })
		}
	case "/":
		m.mode, m.input = modeSearch, tv.Query().Search
	case "t":
		m.mode, m.input = modeTag, ""
	case "T":
		tv.Update(func(q *table.Query) { q.OnTagSelectionChange(nil) })
		m.Cursor = 0
	case "r":
		return m, m.refresh()
	}
	return m, nil
}

// nextSortKey cycles unsorted, then each column in order, then unsorted.
func nextSortKey(cols []table.Column, current string) string {
	if current == "" {
		return cols[0].Field
	}
	i := slices.IndexFunc(cols, func(c table.Column) bool { return c.Field == current })
	if i < 0 || i == len(cols)-1 {
		return ""
	}
	return cols[i+1].Field
}

func (m BrowseModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tv := m.current()
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if m.mode == modeSearch {
			tv.Update(func(q *table.Query) { q.OnSearchChange("") })
		}
		m.mode, m.input = modeNormal, ""
		return m, nil
	case tea.KeyEnter:
		if m.mode == modeTag {
			m = m.toggleTag(strings.TrimSpace(m.input))
		}
		m.mode, m.input = modeNormal, ""
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
	default:
		return m, nil
	}

	if m.mode == modeSearch {
		search := m.input
		tv.Update(func(q *table.Query) { q.OnSearchChange(search) })
		m.Cursor = 0
	}
	return m, nil
}

// toggleTag adds tag to the active selection, or removes it if present.
// Tags outside the table's vocabulary are ignored.
func (m BrowseModel) toggleTag(tag string) BrowseModel {
	tv := m.current()
	v := tv.Render()
	if !slices.Contains(v.Vocabulary, tag) {
		m.status = fmt.Sprintf("unknown tag %q", tag)
		return m
	}
	selected := tv.Query().Tags
	if i := slices.Index(selected, tag); i >= 0 {
		selected = slices.Delete(selected, i, i+1)
	} else {
		selected = append(selected, tag)
	}
	tv.Update(func(q *table.Query) { q.OnTagSelectionChange(selected) })
	m.Cursor = 0
	m.status = ""
	return m
}

func (m BrowseModel) View() string {
	var b strings.Builder

	tabs := make([]string, len(m.kinds))
	for i, k := range m.kinds {
		style := tabStyle
		if i == m.active {
			style = tabActiveStyle.Foreground(kindStyle(k).GetForeground())
		}
		tabs[i] = style.Render(k.Title())
	}
	b.WriteString(StyleTitle.Render("Labgraph") + "  " + strings.Join(tabs, "  "))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab switch  ↑/↓ move  ←/→ page  s sort  S reverse  / search  t tag  T clear tags  r refresh  q quit"))
	b.WriteString("\n\n")

	tv := m.current()
	if st := tv.State(); st.Loading && st.Applied == 0 {
		b.WriteString(StyleDim.Render("Loading " + m.Kind().Collection() + "..."))
		b.WriteString("\n")
	} else {
		v := tv.Render()
		cell := max(12, (m.Width-4)/max(1, len(v.Columns))-3)
		b.WriteString(tablesink.Render(v, tablesink.Options{Cursor: m.Cursor, MaxCellWidth: cell}))
		if tags := v.Query.Tags; len(tags) > 0 {
			b.WriteString(StyleDim.Render("tags: " + strings.Join(tags, ", ")))
			b.WriteString("\n")
		}
	}

	switch m.mode {
	case modeSearch:
		b.WriteString(promptStyle.Render("/") + m.input + "\n")
	case modeTag:
		b.WriteString(promptStyle.Render("tag: ") + m.input + "\n")
	}
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	return b.String()
}
