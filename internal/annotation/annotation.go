package annotation

import (
	"fmt"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/paint"
	"github.com/google/uuid"
)

// Kind identifies the annotation variant
type Kind string

const (
	KindArrow     Kind = "arrow"
	KindRectangle Kind = "rectangle"
	KindEllipse   Kind = "ellipse"
	KindLine      Kind = "line"
	KindText      Kind = "text"
)

// ParseKind validates an annotation kind name
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindArrow, KindRectangle, KindEllipse, KindLine, KindText:
		return k, nil
	}
	return "", fmt.Errorf("unknown annotation kind: %q", s)
}

// Alignment is horizontal text alignment inside the frame
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

const (
	DefaultStrokeWidth = 2.0
	DefaultFontSize    = 16.0
	DefaultBorderWidth = 1.0
	DefaultFontFamily  = "Go"

	// RectangleCornerRadius rounds the corners of rectangle annotations
	RectangleCornerRadius = 4.0
)

// Style is the stroke style shared by all kinds
type Style struct {
	Color       paint.Color `json:"color" yaml:"color"`
	StrokeWidth float64     `json:"stroke_width" yaml:"stroke_width"`
}

// DefaultStyle is blue at stroke width 2
func DefaultStyle() Style {
	return Style{Color: paint.Blue, StrokeWidth: DefaultStrokeWidth}
}

// TextStyle holds the text tool defaults
type TextStyle struct {
	FontFamily  string      `json:"font_family" yaml:"font_family"`
	FontSize    float64     `json:"font_size" yaml:"font_size"`
	Alignment   Alignment   `json:"alignment" yaml:"alignment"`
	HasBorder   bool        `json:"has_border" yaml:"has_border"`
	BorderColor paint.Color `json:"border_color" yaml:"border_color"`
	BorderWidth float64     `json:"border_width" yaml:"border_width"`
}

// DefaultTextStyle is 16pt left-aligned text without a border
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily:  DefaultFontFamily,
		FontSize:    DefaultFontSize,
		Alignment:   AlignLeft,
		BorderColor: paint.Black,
		BorderWidth: DefaultBorderWidth,
	}
}

// Annotation is a vector overlay drawn on top of the composited screenshot.
// Kind selects which optional fields are meaningful: Start/End for arrows and
// lines, the text fields for text.
type Annotation struct {
	ID          string        `json:"id" yaml:"id"`
	Kind        Kind          `json:"kind" yaml:"kind"`
	Frame       geometry.Rect `json:"frame" yaml:"frame"`
	Color       paint.Color   `json:"color" yaml:"color"`
	StrokeWidth float64       `json:"stroke_width" yaml:"stroke_width"`

	Start        *geometry.Point `json:"start,omitempty" yaml:"start,omitempty"`
	End          *geometry.Point `json:"end,omitempty" yaml:"end,omitempty"`
	DoubleHeaded bool            `json:"double_headed,omitempty" yaml:"double_headed,omitempty"`

	Text        string       `json:"text,omitempty" yaml:"text,omitempty"`
	FontFamily  string       `json:"font_family,omitempty" yaml:"font_family,omitempty"`
	FontSize    float64      `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	Alignment   Alignment    `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	HasBorder   bool         `json:"has_border,omitempty" yaml:"has_border,omitempty"`
	BorderColor *paint.Color `json:"border_color,omitempty" yaml:"border_color,omitempty"`
	BorderWidth *float64     `json:"border_width,omitempty" yaml:"border_width,omitempty"`
}

// New creates an annotation of kind spanning frame. Arrows and lines run from
// the frame's min corner to its max corner; text starts empty with the given
// text defaults.
func New(kind Kind, frame geometry.Rect, style Style, text TextStyle) Annotation {
	frame = frame.Normalized()
	a := Annotation{
		ID:          uuid.NewString(),
		Kind:        kind,
		Frame:       frame,
		Color:       style.Color,
		StrokeWidth: style.StrokeWidth,
	}

	switch kind {
	case KindArrow, KindLine:
		start, end := frame.Min(), frame.Max()
		a.Start, a.End = &start, &end
	case KindText:
		borderColor, borderWidth := text.BorderColor, text.BorderWidth
		a.Text = ""
		a.FontFamily = text.FontFamily
		a.FontSize = text.FontSize
		a.Alignment = text.Alignment
		a.HasBorder = text.HasBorder
		a.BorderColor = &borderColor
		a.BorderWidth = &borderWidth
	}
	return a
}

// Contains reports whether p falls inside the annotation's bounding box
func (a Annotation) Contains(p geometry.Point) bool {
	return a.Frame.Normalized().Contains(p)
}

// Renderable reports whether the annotation has what it needs to draw
func (a Annotation) Renderable() bool {
	switch a.Kind {
	case KindArrow, KindLine:
		return a.Start != nil && a.End != nil
	case KindText:
		return a.Text != ""
	}
	return true
}

// EffectiveFontSize returns the font size or the default when unset
func (a Annotation) EffectiveFontSize() float64 {
	if a.FontSize > 0 {
		return a.FontSize
	}
	return DefaultFontSize
}

// EffectiveBorder returns the border colour and width, defaulting to black at
// width 1
func (a Annotation) EffectiveBorder() (paint.Color, float64) {
	c, w := paint.Black, DefaultBorderWidth
	if a.BorderColor != nil {
		c = *a.BorderColor
	}
	if a.BorderWidth != nil {
		w = *a.BorderWidth
	}
	return c, w
}

// Clone returns a deep copy of a
func (a Annotation) Clone() Annotation {
	out := a
	if a.Start != nil {
		s := *a.Start
		out.Start = &s
	}
	if a.End != nil {
		e := *a.End
		out.End = &e
	}
	if a.BorderColor != nil {
		c := *a.BorderColor
		out.BorderColor = &c
	}
	if a.BorderWidth != nil {
		w := *a.BorderWidth
		out.BorderWidth = &w
	}
	return out
}

// PathFor returns the outline stroked for a. Text yields its frame, used only
// for the optional border; glyphs are laid out separately.
func PathFor(a Annotation) geometry.Path {
	switch a.Kind {
	case KindArrow:
		if a.Start != nil && a.End != nil {
			return geometry.BuildArrowPath(*a.Start, *a.End, geometry.DefaultArrowHeadLength, a.DoubleHeaded)
		}
		return geometry.RectPath(a.Frame)
	case KindRectangle:
		return geometry.RoundedRectPath(a.Frame, RectangleCornerRadius)
	case KindEllipse:
		return geometry.EllipsePath(a.Frame)
	case KindLine:
		if a.Start != nil && a.End != nil {
			return geometry.LinePath(*a.Start, *a.End)
		}
		return geometry.RectPath(a.Frame)
	case KindText:
		return geometry.RectPath(a.Frame)
	}
	return geometry.Path{}
}
