package geometry

import "fmt"

// AspectRatioPreset is a named crop ratio. Ratio is nil for freeform and
// custom presets.
type AspectRatioPreset struct {
	Name  string   `json:"name" yaml:"name"`
	Label string   `json:"label" yaml:"label"`
	Ratio *float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"`
}

func ratio(w, h float64) *float64 {
	r := w / h
	return &r
}

// AspectRatioPresets is the fixed crop ratio catalog
var AspectRatioPresets = []AspectRatioPreset{
	{Name: "freeform", Label: "Freeform"},
	{Name: "square", Label: "1:1", Ratio: ratio(1, 1)},
	{Name: "16:9", Label: "16:9", Ratio: ratio(16, 9)},
	{Name: "4:3", Label: "4:3", Ratio: ratio(4, 3)},
	{Name: "21:9", Label: "21:9", Ratio: ratio(21, 9)},
	{Name: "9:16", Label: "9:16", Ratio: ratio(9, 16)},
	{Name: "3:4", Label: "3:4", Ratio: ratio(3, 4)},
	{Name: "custom", Label: "Custom"},
}

// LookupAspectRatio finds a preset by name
func LookupAspectRatio(name string) (AspectRatioPreset, error) {
	for _, p := range AspectRatioPresets {
		if p.Name == name || p.Label == name {
			return p, nil
		}
	}
	return AspectRatioPreset{}, fmt.Errorf("unknown aspect ratio preset: %q", name)
}
