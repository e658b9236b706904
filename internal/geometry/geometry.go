package geometry

import "math"

// Point is a 2-D coordinate in canvas space (top-left origin unless noted)
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{x, y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mul scales p by k
func (p Point) Mul(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Len returns the euclidean length of p as a vector
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

// Dist returns the distance between p and q
func (p Point) Dist(q Point) float64 {
	return p.Sub(q).Len()
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an origin plus a size. Normalized rects have non-negative size.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// R is shorthand for Rect{x, y, w, h}
func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

func (r Rect) MinX() float64 { return math.Min(r.X, r.X+r.Width) }
func (r Rect) MinY() float64 { return math.Min(r.Y, r.Y+r.Height) }
func (r Rect) MaxX() float64 { return math.Max(r.X, r.X+r.Width) }
func (r Rect) MaxY() float64 { return math.Max(r.Y, r.Y+r.Height) }
func (r Rect) MidX() float64 { return r.X + r.Width/2 }
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// Min returns the top-left corner
func (r Rect) Min() Point {
	return Point{X: r.MinX(), Y: r.MinY()}
}

// Max returns the bottom-right corner
func (r Rect) Max() Point {
	return Point{X: r.MaxX(), Y: r.MaxY()}
}

// Center returns the midpoint of the rect
func (r Rect) Center() Point {
	return Point{X: r.MidX(), Y: r.MidY()}
}

// Size returns the rect's size
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// IsEmpty reports whether the rect has no area
func (r Rect) IsEmpty() bool {
	return r.Width == 0 || r.Height == 0
}

// Contains reports whether p lies inside r (edges inclusive)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX() && p.X <= r.MaxX() && p.Y >= r.MinY() && p.Y <= r.MaxY()
}

// Offset translates r by d
func (r Rect) Offset(d Point) Rect {
	return Rect{X: r.X + d.X, Y: r.Y + d.Y, Width: r.Width, Height: r.Height}
}

// Inset shrinks r by d on every side
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
}

// Normalized returns r with non-negative width and height
func (r Rect) Normalized() Rect {
	return NormalizeRect(Point{X: r.X, Y: r.Y}, Point{X: r.X + r.Width, Y: r.Y + r.Height})
}

// NormalizeRect builds the rect spanned by two corners regardless of drag direction
func NormalizeRect(a, b Point) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
