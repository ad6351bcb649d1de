// Package tablesink draws table projections as terminal tables.
//
// It consumes a [table.View] and renders the current page with lipgloss,
// followed by a status line with page position, row count and the active
// filters. It never filters or sorts; that is done by package table.
package tablesink

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/labgraph/pkg/table"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
	colorWhite = lipgloss.Color("255")

	headerStyle   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cellStyle     = lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Padding(0, 1)
	statusStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	sortAsc  = "▲"
	sortDesc = "▼"
)

// Options controls rendering.
type Options struct {
	// Cursor highlights the row at this index within the page; -1 for none.
	Cursor int
	// MaxCellWidth truncates cell text; 0 means no limit.
	MaxCellWidth int
	// Plain disables borders and color, for piping.
	Plain bool
}

// DefaultOptions returns options with no cursor and 40-character cells.
func DefaultOptions() Options {
	return Options{Cursor: -1, MaxCellWidth: 40}
}

// Render draws v as a table followed by a status line.
func Render(v table.View, opts Options) string {
	headers := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		headers[i] = c.Title
		if c.Field == v.Query.SortKey {
			arrow := sortAsc
			if v.Query.Reversed {
				arrow = sortDesc
			}
			headers[i] += " " + arrow
		}
	}

	rows := make([][]string, len(v.Rows))
	for i := range v.Rows {
		row := make([]string, len(v.Columns))
		for j, c := range v.Columns {
			row[j] = truncate(table.Cell(&v.Rows[i], c), opts.MaxCellWidth)
		}
		rows[i] = row
	}

	t := ltable.New().
		Headers(headers...).
		Rows(rows...)
	if opts.Plain {
		t = t.Border(lipgloss.HiddenBorder())
	} else {
		t = t.Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == ltable.HeaderRow:
					return headerStyle.Padding(0, 1)
				case row == opts.Cursor:
					return selectedStyle
				default:
					return cellStyle
				}
			})
	}

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	status := Status(v)
	if !opts.Plain {
		status = statusStyle.Render(status)
	}
	b.WriteString(status)
	return b.String()
}

// Status summarizes the view's position and filters on one line, e.g.
// "page 2/3 · 25 rows · tags: xrd · search: "lith"".
func Status(v table.View) string {
	parts := []string{
		fmt.Sprintf("page %d/%d", v.Page.Page, v.PageCount),
		fmt.Sprintf("%d rows", v.TotalCount),
	}
	if len(v.Query.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(v.Query.Tags, ", "))
	}
	if s := strings.TrimSpace(v.Query.Search); s != "" {
		parts = append(parts, fmt.Sprintf("search: %q", s))
	}
	return strings.Join(parts, " · ")
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}
