package background

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/paint"
	"github.com/disintegration/imaging"
	"github.com/srwiley/rasterx"

	_ "golang.org/x/image/webp"
)

// MaxImageSize caps the size of background image files
const MaxImageSize = 10 * 1024 * 1024

var (
	ErrFileAccessDenied = errors.New("unable to access the selected image file")
	ErrInvalidImage     = errors.New("the selected file is not a valid image")
	ErrImageTooLarge    = errors.New("image file is too large (max 10MB)")
)

// LoadError reports why a background image could not be loaded. Kind is one
// of the Err* sentinels and is matched by errors.Is.
type LoadError struct {
	Path  string
	Kind  error
	Cause error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *LoadError) Unwrap() error {
	return e.Kind
}

// Background is the canvas fill behind the screenshot: either a Gradient or
// an Image. A nil Background means opaque white.
type Background interface {
	isBackground()
}

// Gradient fills the canvas with a preset gradient
type Gradient struct {
	Preset Preset
}

// Image fills the canvas with a bitmap scaled to cover it. Source records
// where the bitmap came from, if anywhere.
type Image struct {
	Bitmap image.Image
	Source string
}

func (Gradient) isBackground() {}
func (Image) isBackground()    {}

// Describe returns a short human-readable label for bg
func Describe(bg Background) string {
	switch b := bg.(type) {
	case Gradient:
		return "gradient:" + b.Preset.Name
	case Image:
		if b.Source != "" {
			return "image:" + b.Source
		}
		return "image"
	}
	return "none"
}

// LoadImage reads and decodes a background image from disk. Files larger than
// MaxImageSize are rejected before decoding.
func LoadImage(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, &LoadError{Path: path, Kind: ErrFileAccessDenied, Cause: err}
	}
	if info.Size() > MaxImageSize {
		return Image{}, &LoadError{Path: path, Kind: ErrImageTooLarge}
	}

	f, err := os.Open(path)
	if err != nil {
		return Image{}, &LoadError{Path: path, Kind: ErrFileAccessDenied, Cause: err}
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, &LoadError{Path: path, Kind: ErrInvalidImage, Cause: err}
	}
	return Image{Bitmap: img, Source: path}, nil
}

// Fill paints bg over the whole of dst. Anchors resolve in bottom-left native
// space; toPixel maps those points into dst's top-left pixel space. Any
// failure falls back to opaque white.
func Fill(dst *image.RGBA, bg Background, toPixel func(geometry.Point) geometry.Point) {
	log := logger.WithComponent("background")
	bounds := dst.Bounds()

	switch b := bg.(type) {
	case Gradient:
		if err := fillGradient(dst, b.Preset, toPixel); err != nil {
			log.Debug().Err(err).Str("preset", b.Preset.Name).Msg("Gradient fill failed, using white")
			paint.FillRect(dst, bounds, paint.White)
		}
	case Image:
		if b.Bitmap == nil || b.Bitmap.Bounds().Empty() {
			log.Debug().Str("source", b.Source).Msg("Background image has no bitmap, using white")
			paint.FillRect(dst, bounds, paint.White)
			return
		}
		scaled := imaging.Fill(b.Bitmap, bounds.Dx(), bounds.Dy(), imaging.Center, imaging.Lanczos)
		paint.FillRect(dst, bounds, paint.White)
		draw.Draw(dst, bounds, scaled, image.Point{}, draw.Over)
	default:
		paint.FillRect(dst, bounds, paint.White)
	}
}

func fillGradient(dst *image.RGBA, p Preset, toPixel func(geometry.Point) geometry.Point) error {
	bounds := dst.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	switch len(p.Colors) {
	case 0:
		return fmt.Errorf("gradient %q has no colors", p.Name)
	case 1:
		paint.FillRect(dst, bounds, p.Colors[0])
		return nil
	}

	start := toPixel(ResolveStart(p.Start, w, h))
	end := toPixel(ResolveEnd(p.End, w, h))

	g := &rasterx.Gradient{
		Stops:  stops(p.Colors),
		Matrix: rasterx.Identity,
		Spread: rasterx.PadSpread,
		Units:  rasterx.UserSpaceOnUse,
	}
	g.Bounds.W, g.Bounds.H = w, h

	switch p.Kind {
	case Radial:
		radius := math.Max(w, h)
		if radius <= 0 {
			return fmt.Errorf("gradient %q has zero radius", p.Name)
		}
		if start != end {
			fillRadial(dst, p.Colors, start, end, radius)
			return nil
		}
		g.IsRadial = true
		g.Points = [5]float64{end.X, end.Y, start.X, start.Y, radius}
	default:
		if start == end {
			// a zero-length axis has no direction; the first stop covers everything
			paint.FillRect(dst, bounds, p.Colors[0])
			return nil
		}
		g.Points = [5]float64{start.X, start.Y, end.X, end.Y, 0}
	}

	rect := geometry.RectPath(geometry.R(0, 0, w, h))
	switch fn := g.GetColorFunction(1.0).(type) {
	case rasterx.ColorFunc:
		paint.FillRect(dst, bounds, paint.White)
		paint.NewCanvas(dst).FillFunc(rect, fn)
	case color.Color:
		paint.FillRect(dst, bounds, fn)
	default:
		return fmt.Errorf("unexpected gradient paint %T", fn)
	}
	return nil
}

// stops spaces colours evenly from offset 0 to 1
func stops(colors []paint.Color) []rasterx.GradStop {
	out := make([]rasterx.GradStop, len(colors))
	last := float64(len(colors) - 1)
	for i, c := range colors {
		out[i] = rasterx.GradStop{
			StopColor: c,
			Offset:    float64(i) / last,
			Opacity:   1.0,
		}
	}
	return out
}

// fillRadial paints a gradient between a zero-radius circle at start and a
// circle of radius at end. Pixels no circle reaches take the last colour.
func fillRadial(dst *image.RGBA, colors []paint.Color, start, end geometry.Point, radius float64) {
	bounds := dst.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	fn := func(x, y int) color.Color {
		p := geometry.Pt(float64(x-bounds.Min.X)+0.5, float64(y-bounds.Min.Y)+0.5)
		t, ok := radialT(p, start, end, radius)
		if !ok {
			t = 1
		}
		return colorAt(colors, t)
	}
	paint.FillRect(dst, bounds, paint.White)
	paint.NewCanvas(dst).FillFunc(geometry.RectPath(geometry.R(0, 0, w, h)), fn)
}

// radialT solves |p - (start + t(end-start))| = t*radius for the largest
// t >= 0. ok is false when no circle passes through p.
func radialT(p, start, end geometry.Point, radius float64) (float64, bool) {
	dx, dy := end.X-start.X, end.Y-start.Y
	qx, qy := p.X-start.X, p.Y-start.Y

	a := dx*dx + dy*dy - radius*radius
	qd := qx*dx + qy*dy
	c := qx*qx + qy*qy

	if math.Abs(a) < 1e-9 {
		if qd <= 0 {
			return 0, c == 0
		}
		return c / (2 * qd), true
	}

	disc := qd*qd - a*c
	if disc < 0 {
		return 0, false
	}
	root := math.Sqrt(disc)
	t := math.Max((qd+root)/a, (qd-root)/a)
	if t < 0 {
		return 0, false
	}
	return t, true
}

// colorAt interpolates evenly spaced colours at t, clamped to [0, 1]
func colorAt(colors []paint.Color, t float64) paint.Color {
	t = math.Max(0, math.Min(1, t))
	last := len(colors) - 1
	pos := t * float64(last)
	i := int(math.Floor(pos))
	if i >= last {
		return colors[last]
	}
	f := pos - float64(i)
	a, b := colors[i], colors[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return paint.Color{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}
