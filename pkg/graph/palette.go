package graph

import (
	"fmt"

	"github.com/matzehuels/labgraph/pkg/entity"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B uint8
}

// String returns the CSS functional form, e.g. "rgb(31,119,180)".
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Swatch is the pair of colors used for one node type.
type Swatch struct {
	Emphasized RGB
	Dimmed     RGB
}

// Pick returns the emphasized or dimmed color.
func (s Swatch) Pick(emphasized bool) RGB {
	if emphasized {
		return s.Emphasized
	}
	return s.Dimmed
}

// Palette maps node types to swatches.
type Palette map[entity.Kind]Swatch

// DefaultPalette is the fixed node palette. Emphasized colors are the
// saturated category10 hues; dimmed colors are their light counterparts.
var DefaultPalette = Palette{
	entity.KindMaterial:    {RGB{31, 119, 180}, RGB{174, 199, 232}},
	entity.KindAction:      {RGB{255, 127, 14}, RGB{255, 187, 120}},
	entity.KindAnalysis:    {RGB{214, 39, 40}, RGB{255, 152, 150}},
	entity.KindMeasurement: {RGB{44, 160, 44}, RGB{152, 223, 138}},
}

// FallbackSwatch colors nodes whose type is not in the palette.
var FallbackSwatch = Swatch{RGB{127, 127, 127}, RGB{199, 199, 199}}

// Color returns the color for a node of kind k. The second result is false
// when k has no swatch and the fallback gray was used.
func (p Palette) Color(k entity.Kind, emphasized bool) (RGB, bool) {
	s, ok := p[k]
	if !ok {
		return FallbackSwatch.Pick(emphasized), false
	}
	return s.Pick(emphasized), true
}
