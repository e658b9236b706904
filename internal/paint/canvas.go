package paint

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// Canvas rasterises geometry paths onto a draw.Image. Paths are in pixel
// space with the origin at the image's top-left corner. A Canvas is not safe
// for concurrent use.
type Canvas struct {
	dst     draw.Image
	width   int
	height  int
	scanner *rasterx.ScannerGV
	filler  *rasterx.Filler
	dasher  *rasterx.Dasher
}

// NewCanvas wraps dst for path drawing
func NewCanvas(dst draw.Image) *Canvas {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, b)
	return &Canvas{
		dst:     dst,
		width:   w,
		height:  h,
		scanner: scanner,
		filler:  rasterx.NewFiller(w, h, scanner),
		dasher:  rasterx.NewDasher(w, h, scanner),
	}
}

// Image returns the destination image
func (c *Canvas) Image() draw.Image {
	return c.dst
}

// Fill paints the interior of p with col using the non-zero winding rule
func (c *Canvas) Fill(p geometry.Path, col color.Color) {
	c.fill(p, col)
}

// FillFunc paints the interior of p with a per-pixel colour function, as
// produced by rasterx gradients
func (c *Canvas) FillFunc(p geometry.Path, fn rasterx.ColorFunc) {
	c.fill(p, fn)
}

func (c *Canvas) fill(p geometry.Path, paint interface{}) {
	if p.IsEmpty() {
		return
	}
	c.filler.Clear()
	c.filler.SetWinding(true)
	c.filler.SetColor(paint)
	addPath(c.filler, p)
	c.filler.Draw()
	c.filler.Clear()
}

// Stroke outlines p with col at the given width using round caps and joins
func (c *Canvas) Stroke(p geometry.Path, col color.Color, width float64) {
	if p.IsEmpty() || width <= 0 || math.IsNaN(width) {
		return
	}
	c.dasher.Clear()
	c.dasher.SetStroke(
		fixed.Int26_6(width*64),
		fixed.Int26_6(4*64),
		rasterx.RoundCap, rasterx.RoundCap,
		rasterx.RoundGap, rasterx.Round,
		nil, 0,
	)
	c.dasher.SetColor(col)
	addPath(c.dasher, p)
	c.dasher.Draw()
	c.dasher.Clear()
}

// addPath replays p into a rasterx adder
func addPath(a rasterx.Adder, p geometry.Path) {
	open := false
	for _, op := range p.Ops {
		switch op.Kind {
		case geometry.OpMoveTo:
			if open {
				a.Stop(false)
			}
			a.Start(toFixed(op.Pts[0]))
			open = true
		case geometry.OpLineTo:
			a.Line(toFixed(op.Pts[0]))
		case geometry.OpCubeTo:
			a.CubeBezier(toFixed(op.Pts[0]), toFixed(op.Pts[1]), toFixed(op.Pts[2]))
		case geometry.OpClose:
			a.Stop(true)
			open = false
		}
	}
	if open {
		a.Stop(false)
	}
}

func toFixed(p geometry.Point) fixed.Point26_6 {
	return rasterx.ToFixedP(p.X, p.Y)
}

// Mask renders p into an alpha mask of the given size: fully opaque inside
// the path, anti-aliased at the edges and transparent elsewhere
func Mask(p geometry.Path, width, height int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	NewCanvas(mask).Fill(p, color.Alpha{A: 255})
	return mask
}

// FillRect fills r on dst with a solid colour, replacing existing pixels
func FillRect(dst draw.Image, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// Blend composites src onto dst with its top-left corner at at, scaling
// src alpha by opacity
func Blend(dst draw.Image, src image.Image, at image.Point, opacity float64) {
	if opacity <= 0 {
		return
	}
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	if opacity >= 1 {
		draw.Draw(dst, r, src, sb.Min, draw.Over)
		return
	}
	alpha := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(dst, r, src, sb.Min, alpha, image.Point{}, draw.Over)
}
