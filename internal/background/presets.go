package background

import (
	"fmt"
	"strings"

	"github.com/bryanchriswhite/snapframe/internal/paint"
)

// GradientKind selects linear or radial interpolation
type GradientKind string

const (
	Linear GradientKind = "linear"
	Radial GradientKind = "radial"
)

// Preset is an immutable named gradient
type Preset struct {
	Name   string        `json:"name" yaml:"name"`
	Colors []paint.Color `json:"colors" yaml:"colors"`
	Kind   GradientKind  `json:"kind" yaml:"kind"`
	Start  Anchor        `json:"start" yaml:"start"`
	End    Anchor        `json:"end" yaml:"end"`
}

func linear(name string, start, end Anchor, colors ...paint.Color) Preset {
	return Preset{Name: name, Colors: colors, Kind: Linear, Start: start, End: end}
}

func diagonal(name string, colors ...paint.Color) Preset {
	return linear(name, TopLeading, BottomTrailing, colors...)
}

func radial(name string, colors ...paint.Color) Preset {
	return Preset{Name: name, Colors: colors, Kind: Radial, Start: Center, End: Center}
}

var rgb = paint.RGB

var catalog = []Preset{
	// vibrant
	diagonal("Purple Pink", rgb(0.6, 0.2, 0.8), rgb(1.0, 0.4, 0.6)),
	diagonal("Blue Cyan", rgb(0.2, 0.4, 0.9), rgb(0.2, 0.9, 1.0)),
	diagonal("Orange Red", rgb(1.0, 0.6, 0.2), rgb(1.0, 0.2, 0.2)),
	linear("Electric Blue Green", Leading, Trailing, rgb(0.0, 0.5, 1.0), rgb(0.0, 1.0, 0.5)),
	diagonal("Magenta Orange", rgb(1.0, 0.0, 0.8), rgb(1.0, 0.5, 0.0)),

	// pastel
	diagonal("Pastel Pink Blue", rgb(1.0, 0.8, 0.9), rgb(0.8, 0.9, 1.0)),
	diagonal("Lavender Mint", rgb(0.9, 0.8, 1.0), rgb(0.8, 1.0, 0.9)),
	diagonal("Peach Cream", rgb(1.0, 0.9, 0.8), rgb(1.0, 0.95, 0.9)),
	linear("Sky Blue", Top, Bottom, rgb(0.7, 0.9, 1.0), rgb(0.9, 0.95, 1.0)),
	diagonal("Rose Gold", rgb(1.0, 0.85, 0.8), rgb(1.0, 0.9, 0.85)),

	// dark
	diagonal("Deep Blue Purple", rgb(0.1, 0.1, 0.3), rgb(0.3, 0.1, 0.4)),
	diagonal("Charcoal Teal", rgb(0.2, 0.2, 0.25), rgb(0.1, 0.3, 0.3)),
	diagonal("Navy Gold", rgb(0.0, 0.1, 0.3), rgb(0.4, 0.3, 0.1)),
	linear("Midnight Blue", Top, Bottom, rgb(0.05, 0.05, 0.2), rgb(0.1, 0.1, 0.3)),
	diagonal("Dark Purple", rgb(0.15, 0.05, 0.25), rgb(0.25, 0.1, 0.35)),

	// neutral
	diagonal("Beige Brown", rgb(0.95, 0.9, 0.85), rgb(0.7, 0.6, 0.5)),
	diagonal("Gray Blue", rgb(0.7, 0.75, 0.8), rgb(0.5, 0.6, 0.7)),
	diagonal("Warm White Cream", rgb(1.0, 0.98, 0.95), rgb(0.95, 0.92, 0.88)),
	linear("Stone Gray", Top, Bottom, rgb(0.8, 0.8, 0.75), rgb(0.6, 0.6, 0.55)),
	diagonal("Sand Beige", rgb(0.95, 0.92, 0.88), rgb(0.85, 0.8, 0.75)),

	// bold
	diagonal("Yellow Pink", rgb(1.0, 0.9, 0.0), rgb(1.0, 0.4, 0.6)),
	diagonal("Green Blue", rgb(0.0, 0.8, 0.4), rgb(0.0, 0.5, 1.0)),
	linear("Red Orange", Leading, Trailing, rgb(1.0, 0.2, 0.2), rgb(1.0, 0.6, 0.0)),
	diagonal("Violet Indigo", rgb(0.5, 0.2, 0.9), rgb(0.3, 0.1, 0.6)),
	diagonal("Coral Peach", rgb(1.0, 0.5, 0.4), rgb(1.0, 0.7, 0.6)),

	// radial
	radial("Sunset Radial", rgb(1.0, 0.6, 0.4), rgb(0.8, 0.3, 0.6)),
	radial("Ocean Radial", rgb(0.2, 0.6, 0.9), rgb(0.1, 0.3, 0.5)),
	radial("Forest Radial", rgb(0.2, 0.7, 0.4), rgb(0.1, 0.4, 0.2)),
}

// Presets returns a copy of the built-in gradient catalog
func Presets() []Preset {
	out := make([]Preset, len(catalog))
	for i, p := range catalog {
		out[i] = p.Clone()
	}
	return out
}

// Clone returns a copy of p that does not share its colour stops
func (p Preset) Clone() Preset {
	p.Colors = append([]paint.Color(nil), p.Colors...)
	return p
}

// LookupPreset finds a built-in preset by case-insensitive name
func LookupPreset(name string) (Preset, error) {
	for _, p := range catalog {
		if strings.EqualFold(p.Name, name) {
			return p.Clone(), nil
		}
	}
	return Preset{}, fmt.Errorf("unknown gradient preset: %q", name)
}
