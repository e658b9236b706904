package compositor

import (
	"image"
	"math"

	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/paint"
)

// Editor defaults and limits
const (
	DefaultPadding      = 20.0
	DefaultCornerRadius = 8.0
	DefaultShadowBlur   = 10.0

	MaxPadding      = 200.0
	MaxCornerRadius = 50.0
	MaxShadowBlur   = 50.0
)

// DefaultShadowOffset drops the shadow slightly below the screenshot
var DefaultShadowOffset = geometry.Pt(0, 4)

// DefaultShadowColor is black at 30% opacity
var DefaultShadowColor = paint.Black.WithAlpha(0.3)

// Shadow configures the drop shadow cast by the screenshot. Offset is in
// canvas pixels with y growing downwards.
type Shadow struct {
	Color  paint.Color    `json:"color" yaml:"color"`
	Blur   float64        `json:"blur" yaml:"blur"`
	Offset geometry.Point `json:"offset" yaml:"offset"`
}

// DefaultShadow returns the default drop shadow
func DefaultShadow() Shadow {
	return Shadow{Color: DefaultShadowColor, Blur: DefaultShadowBlur, Offset: DefaultShadowOffset}
}

// State is the composition recipe rendered by Render. Screenshot is replaced,
// never mutated, so a State copy is a safe snapshot.
type State struct {
	Screenshot   image.Image
	Padding      float64
	CornerRadius float64
	Shadow       Shadow
	Background   background.Background
}

// DefaultState returns a State with editor defaults and no screenshot
func DefaultState() State {
	return State{
		Padding:      DefaultPadding,
		CornerRadius: DefaultCornerRadius,
		Shadow:       DefaultShadow(),
	}
}

// Clamp limits the numeric effect settings to their editor ranges
func (s State) Clamp() State {
	s.Padding = clamp(s.Padding, 0, MaxPadding)
	s.CornerRadius = clamp(s.CornerRadius, 0, MaxCornerRadius)
	s.Shadow.Blur = clamp(s.Shadow.Blur, 0, MaxShadowBlur)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// ScreenshotSize returns the screenshot's pixel size, or zero without one
func (s State) ScreenshotSize() geometry.Size {
	if s.Screenshot == nil {
		return geometry.Size{}
	}
	b := s.Screenshot.Bounds()
	return geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// CanvasSize returns the screenshot size plus padding on every side
func (s State) CanvasSize() geometry.Size {
	ss := s.ScreenshotSize()
	pad := float64(padPixels(s.Padding))
	return geometry.Size{Width: ss.Width + 2*pad, Height: ss.Height + 2*pad}
}

// ScreenshotRect returns where the screenshot lands on the canvas
func (s State) ScreenshotRect() geometry.Rect {
	ss := s.ScreenshotSize()
	pad := float64(padPixels(s.Padding))
	return geometry.R(pad, pad, ss.Width, ss.Height)
}

func padPixels(padding float64) int {
	if padding <= 0 || math.IsNaN(padding) {
		return 0
	}
	return int(math.Round(padding))
}
