package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/paint"
	"github.com/disintegration/imaging"
)

// MaxCanvasDimension bounds either side of the output canvas
const MaxCanvasDimension = 16384

// ErrRenderFailed is returned when no canvas could be produced
var ErrRenderFailed = errors.New("failed to render image")

// space converts between the bottom-left native coordinate space used by
// gradient anchors and top-left pixel space. It is the only place where
// the vertical axis is flipped.
type space struct {
	height float64
}

func (s space) toPixel(p geometry.Point) geometry.Point {
	return geometry.Pt(p.X, s.height-p.Y)
}

// Render composites the screenshot, effects and annotations into a new
// canvas. Draw order is fixed: background, clipped screenshot, shadow with a
// clipped redraw of the screenshot on top, then annotations in order.
func Render(state State, annotations []annotation.Annotation) (*image.RGBA, error) {
	started := time.Now()
	log := logger.WithComponent("compositor")

	if state.Screenshot == nil {
		return nil, fmt.Errorf("%w: no screenshot", ErrRenderFailed)
	}
	shot := state.Screenshot.Bounds()
	if shot.Empty() {
		return nil, fmt.Errorf("%w: empty screenshot", ErrRenderFailed)
	}

	pad := padPixels(state.Padding)
	w, h := shot.Dx()+2*pad, shot.Dy()+2*pad
	if w <= 0 || h <= 0 || w > MaxCanvasDimension || h > MaxCanvasDimension {
		return nil, fmt.Errorf("%w: cannot allocate %dx%d canvas", ErrRenderFailed, w, h)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	sp := space{height: float64(h)}

	background.Fill(canvas, state.Background, sp.toPixel)

	shotRect := image.Rect(pad, pad, pad+shot.Dx(), pad+shot.Dy())
	shape := screenshotShape(shotRect, state.CornerRadius)

	var clip *image.Alpha
	if state.CornerRadius > 0 {
		clip = paint.Mask(shape, w, h)
	}

	drawScreenshot(canvas, state.Screenshot, shotRect, clip)

	if state.Shadow.Blur > 0 {
		drawShadow(canvas, shape, state.Shadow)
		drawScreenshot(canvas, state.Screenshot, shotRect, clip)
	}

	drawAnnotations(canvas, annotations)

	log.Debug().
		Int("width", w).
		Int("height", h).
		Int("annotations", len(annotations)).
		Str("background", background.Describe(state.Background)).
		Dur("elapsed", time.Since(started)).
		Msg("Rendered canvas")

	return canvas, nil
}

func screenshotShape(r image.Rectangle, cornerRadius float64) geometry.Path {
	rect := geometry.R(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	if cornerRadius > 0 {
		return geometry.RoundedRectPath(rect, cornerRadius)
	}
	return geometry.RectPath(rect)
}

// drawScreenshot draws src into r, masked by clip when non-nil
func drawScreenshot(dst *image.RGBA, src image.Image, r image.Rectangle, clip *image.Alpha) {
	if clip == nil {
		draw.Draw(dst, r, src, src.Bounds().Min, draw.Over)
		return
	}
	draw.DrawMask(dst, r, src, src.Bounds().Min, clip, r.Min, draw.Over)
}

// drawShadow casts the shape's shadow: the shape is filled with the shadow
// colour at the shadow offset, blurred, and composited over dst
func drawShadow(dst *image.RGBA, shape geometry.Path, s Shadow) {
	bounds := dst.Bounds()
	offset := s.Offset
	layer := image.NewNRGBA(bounds)
	paint.NewCanvas(layer).Fill(
		shape.Transform(func(p geometry.Point) geometry.Point { return p.Add(offset) }),
		s.Color,
	)

	sigma := math.Max(s.Blur/2, 0.5)
	blurred := imaging.Blur(layer, sigma)
	draw.Draw(dst, bounds, blurred, image.Point{}, draw.Over)
}

func drawAnnotations(dst *image.RGBA, annotations []annotation.Annotation) {
	c := paint.NewCanvas(dst)
	for _, a := range annotations {
		switch a.Kind {
		case annotation.KindText:
			if !a.Renderable() {
				continue
			}
			drawText(dst, a)
			if a.HasBorder {
				col, width := a.EffectiveBorder()
				c.Stroke(annotation.PathFor(a), col, width)
			}
		default:
			c.Stroke(annotation.PathFor(a), a.Color, a.StrokeWidth)
		}
	}
}
