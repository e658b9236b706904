// Package recipe loads YAML documents describing a finished screenshot: the
// source image, its effects, background, annotations and output files.
package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/paint"
	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoScreenshot      = errors.New("recipe has no screenshot")
	ErrInvalidBackground = errors.New("recipe background must name a preset or an image, not both")
)

// Shadow overrides individual drop shadow settings
type Shadow struct {
	Color  *paint.Color    `yaml:"color,omitempty"`
	Blur   *float64        `yaml:"blur,omitempty"`
	Offset *geometry.Point `yaml:"offset,omitempty"`
}

// Background selects a gradient preset or an image file
type Background struct {
	Preset string `yaml:"preset,omitempty"`
	Image  string `yaml:"image,omitempty"`
}

// Annotation is one overlay entry. Unset fields take the recipe's Style and
// TextStyle defaults.
type Annotation struct {
	Kind         annotation.Kind      `yaml:"kind"`
	Frame        geometry.Rect        `yaml:"frame"`
	Color        *paint.Color         `yaml:"color,omitempty"`
	StrokeWidth  float64              `yaml:"stroke_width,omitempty"`
	Start        *geometry.Point      `yaml:"start,omitempty"`
	End          *geometry.Point      `yaml:"end,omitempty"`
	DoubleHeaded bool                 `yaml:"double_headed,omitempty"`
	Text         string               `yaml:"text,omitempty"`
	FontFamily   string               `yaml:"font_family,omitempty"`
	FontSize     float64              `yaml:"font_size,omitempty"`
	Alignment    annotation.Alignment `yaml:"alignment,omitempty"`
	Border       *Border              `yaml:"border,omitempty"`
}

// Border enables a text annotation's border
type Border struct {
	Color *paint.Color `yaml:"color,omitempty"`
	Width *float64     `yaml:"width,omitempty"`
}

// Output is one file to write. Format defaults to the path's extension.
type Output struct {
	Path     string  `yaml:"path"`
	Format   string  `yaml:"format,omitempty"`
	Quality  float64 `yaml:"quality,omitempty"`
	Lossless bool    `yaml:"lossless,omitempty"`
}

// Recipe is the YAML document. Relative paths resolve against Dir.
type Recipe struct {
	Screenshot   string                `yaml:"screenshot"`
	Padding      *float64              `yaml:"padding,omitempty"`
	CornerRadius *float64              `yaml:"corner_radius,omitempty"`
	Shadow       Shadow                `yaml:"shadow,omitempty"`
	Background   Background            `yaml:"background,omitempty"`
	Style        *annotation.Style     `yaml:"style,omitempty"`
	TextStyle    *annotation.TextStyle `yaml:"text_style,omitempty"`
	Annotations  []Annotation          `yaml:"annotations,omitempty"`
	Outputs      []Output              `yaml:"outputs,omitempty"`

	Dir string `yaml:"-"`
}

// Load reads and parses a recipe file
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.Dir = filepath.Dir(path)

	logger.WithComponent("recipe").Debug().
		Str("path", path).
		Str("screenshot", r.Screenshot).
		Int("annotations", len(r.Annotations)).
		Int("outputs", len(r.Outputs)).
		Msg("Recipe loaded")
	return r, nil
}

// Parse decodes a recipe document. Unknown fields are rejected.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}
	return &r, nil
}

// resolve makes path relative to the recipe's directory
func (r *Recipe) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || r.Dir == "" {
		return path
	}
	return filepath.Join(r.Dir, path)
}

// State builds the composition on top of defaults, loading the screenshot
// and any background image from disk
func (r *Recipe) State(defaults compositor.State) (compositor.State, error) {
	if r.Screenshot == "" {
		return compositor.State{}, ErrNoScreenshot
	}

	shot, err := imaging.Open(r.resolve(r.Screenshot), imaging.AutoOrientation(true))
	if err != nil {
		return compositor.State{}, fmt.Errorf("failed to load screenshot: %w", err)
	}
	return r.StateWith(shot, defaults)
}

// StateWith builds the composition around an already decoded screenshot
func (r *Recipe) StateWith(shot image.Image, defaults compositor.State) (compositor.State, error) {
	s := defaults
	s.Screenshot = shot

	if r.Padding != nil {
		s.Padding = *r.Padding
	}
	if r.CornerRadius != nil {
		s.CornerRadius = *r.CornerRadius
	}
	if r.Shadow.Color != nil {
		s.Shadow.Color = *r.Shadow.Color
	}
	if r.Shadow.Blur != nil {
		s.Shadow.Blur = *r.Shadow.Blur
	}
	if r.Shadow.Offset != nil {
		s.Shadow.Offset = *r.Shadow.Offset
	}

	switch bg := r.Background; {
	case bg.Preset != "" && bg.Image != "":
		return compositor.State{}, ErrInvalidBackground
	case bg.Preset != "":
		p, err := background.LookupPreset(bg.Preset)
		if err != nil {
			return compositor.State{}, err
		}
		s.Background = background.Gradient{Preset: p}
	case bg.Image != "":
		img, err := background.LoadImage(r.resolve(bg.Image))
		if err != nil {
			return compositor.State{}, err
		}
		s.Background = img
	}

	return s.Clamp(), nil
}

// BuildAnnotations converts the annotation entries, in order
func (r *Recipe) BuildAnnotations() ([]annotation.Annotation, error) {
	style := annotation.DefaultStyle()
	if r.Style != nil {
		style = *r.Style
	}
	textStyle := annotation.DefaultTextStyle()
	if r.TextStyle != nil {
		textStyle = *r.TextStyle
	}

	out := make([]annotation.Annotation, 0, len(r.Annotations))
	for i, entry := range r.Annotations {
		a, err := entry.build(style, textStyle)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (entry Annotation) build(style annotation.Style, textStyle annotation.TextStyle) (annotation.Annotation, error) {
	kind, err := annotation.ParseKind(string(entry.Kind))
	if err != nil {
		return annotation.Annotation{}, err
	}

	if entry.Color != nil {
		style.Color = *entry.Color
	}
	if entry.StrokeWidth > 0 {
		style.StrokeWidth = entry.StrokeWidth
	}
	if entry.FontFamily != "" {
		textStyle.FontFamily = entry.FontFamily
	}
	if entry.FontSize > 0 {
		textStyle.FontSize = entry.FontSize
	}
	if entry.Alignment != "" {
		textStyle.Alignment = entry.Alignment
	}
	if entry.Border != nil {
		textStyle.HasBorder = true
		if entry.Border.Color != nil {
			textStyle.BorderColor = *entry.Border.Color
		}
		if entry.Border.Width != nil {
			textStyle.BorderWidth = *entry.Border.Width
		}
	}

	frame := entry.Frame
	if (kind == annotation.KindArrow || kind == annotation.KindLine) && entry.Start != nil && entry.End != nil {
		if frame.IsEmpty() {
			frame = geometry.NormalizeRect(*entry.Start, *entry.End)
		}
	}

	a := annotation.New(kind, frame, style, textStyle)
	if entry.Start != nil {
		p := *entry.Start
		a.Start = &p
	}
	if entry.End != nil {
		p := *entry.End
		a.End = &p
	}
	a.DoubleHeaded = entry.DoubleHeaded
	a.Text = entry.Text
	return a, nil
}

// ExportOptions returns the encoder options for an output, filling the
// format from the file extension and the quality from fallback
func (o Output) ExportOptions(fallback export.Options) (export.Options, error) {
	opts := fallback
	var err error
	if o.Format != "" {
		opts.Format, err = export.ParseFormat(o.Format)
	} else {
		opts.Format, err = export.FormatForPath(o.Path)
	}
	if err != nil {
		return export.Options{}, err
	}
	if o.Quality > 0 {
		opts.Quality = o.Quality
	}
	opts.Lossless = o.Lossless
	return opts, nil
}

// OutputPath resolves an output path against the recipe directory
func (r *Recipe) OutputPath(o Output) string {
	return r.resolve(o.Path)
}
