package table

import (
	"github.com/matzehuels/labgraph/pkg/entity"
)

// Column describes one rendered table column.
type Column struct {
	Field string `json:"field"` // Entity field name passed to Entity.Field
	Title string `json:"title"` // Header text
}

var (
	sampleColumns = []Column{
		{entity.FieldName, "Name"},
		{entity.FieldDescription, "Description"},
		{entity.FieldCreatedAt, "Created"},
	}
	nodeColumns = []Column{
		{entity.FieldName, "Name"},
		{entity.FieldUpstream, "Upstream"},
		{entity.FieldDownstream, "Downstream"},
		{entity.FieldCreatedAt, "Created"},
	}
	actorColumns = []Column{
		{entity.FieldName, "Name"},
		{entity.FieldDescription, "Description"},
		{entity.FieldCreatedAt, "Created"},
	}
)

// Columns returns the columns shown for kind k. Node kinds show reference
// counts in place of a description.
func Columns(k entity.Kind) []Column {
	switch {
	case k == entity.KindSample:
		return sampleColumns
	case k.IsNode():
		return nodeColumns
	default:
		return actorColumns
	}
}

// View is everything a table sink needs to draw one frame.
type View struct {
	Kind       entity.Kind `json:"kind"`
	Columns    []Column    `json:"columns"`
	Vocabulary []string    `json:"vocabulary"`
	Query      Query       `json:"query"`
	Page
}

// NewView projects data through q and bundles the result with the column
// layout and tag vocabulary for kind. The returned Query reflects the
// clamped page.
func (p *Projector) NewView(k entity.Kind, data []entity.Entity, q Query) View {
	page := p.Project(data, q)
	q.Page = page.Page
	return View{
		Kind:       k,
		Columns:    Columns(k),
		Vocabulary: TagVocabulary(data),
		Query:      q,
		Page:       page,
	}
}

// Cell returns the display value of column c for row e.
func Cell(e *entity.Entity, c Column) string {
	v, _ := e.Field(c.Field)
	return v
}
