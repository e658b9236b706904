package geometry

import "math"

// OpKind identifies a path drawing operation
type OpKind int

const (
	OpMoveTo OpKind = iota
	OpLineTo
	OpCubeTo
	OpClose
)

// Op is one path operation. MoveTo and LineTo use Pts[0]; CubeTo uses
// Pts[0] and Pts[1] as control points and Pts[2] as the end point.
type Op struct {
	Kind OpKind
	Pts  [3]Point
}

// kappa places cubic control points for a quarter ellipse
const kappa = 0.5522847498

// Path is an ordered list of drawing operations
type Path struct {
	Ops []Op
}

// MoveTo starts a new sub-path at p
func (p *Path) MoveTo(pt Point) {
	p.Ops = append(p.Ops, Op{Kind: OpMoveTo, Pts: [3]Point{pt}})
}

// LineTo adds a straight segment to pt
func (p *Path) LineTo(pt Point) {
	p.Ops = append(p.Ops, Op{Kind: OpLineTo, Pts: [3]Point{pt}})
}

// CubeTo adds a cubic bezier segment ending at pt
func (p *Path) CubeTo(c1, c2, pt Point) {
	p.Ops = append(p.Ops, Op{Kind: OpCubeTo, Pts: [3]Point{c1, c2, pt}})
}

// Close closes the current sub-path
func (p *Path) Close() {
	p.Ops = append(p.Ops, Op{Kind: OpClose})
}

// IsEmpty reports whether the path has no operations
func (p Path) IsEmpty() bool {
	return len(p.Ops) == 0
}

// LastPoint returns the final explicit vertex of the path
func (p Path) LastPoint() (Point, bool) {
	for i := len(p.Ops) - 1; i >= 0; i-- {
		switch p.Ops[i].Kind {
		case OpMoveTo, OpLineTo:
			return p.Ops[i].Pts[0], true
		case OpCubeTo:
			return p.Ops[i].Pts[2], true
		}
	}
	return Point{}, false
}

// Bounds returns the bounding box of all path vertices and control points
func (p Path) Bounds() Rect {
	if p.IsEmpty() {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	visit := func(pt Point) {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	for _, op := range p.Ops {
		switch op.Kind {
		case OpMoveTo, OpLineTo:
			visit(op.Pts[0])
		case OpCubeTo:
			visit(op.Pts[0])
			visit(op.Pts[1])
			visit(op.Pts[2])
		}
	}
	if math.IsInf(minX, 1) {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Transform returns a copy of the path with f applied to every point
func (p Path) Transform(f func(Point) Point) Path {
	out := Path{Ops: make([]Op, len(p.Ops))}
	for i, op := range p.Ops {
		out.Ops[i] = op
		for j := range op.Pts {
			out.Ops[i].Pts[j] = f(op.Pts[j])
		}
	}
	return out
}

// LinePath is a single segment from a to b
func LinePath(a, b Point) Path {
	var p Path
	p.MoveTo(a)
	p.LineTo(b)
	return p
}

// RectPath is a closed rectangle outline
func RectPath(r Rect) Path {
	r = r.Normalized()
	var p Path
	p.MoveTo(Pt(r.X, r.Y))
	p.LineTo(Pt(r.X+r.Width, r.Y))
	p.LineTo(Pt(r.X+r.Width, r.Y+r.Height))
	p.LineTo(Pt(r.X, r.Y+r.Height))
	p.Close()
	return p
}

// RoundedRectPath is a closed rectangle with circular corners of the given
// radius, clamped to half the shorter side
func RoundedRectPath(r Rect, radius float64) Path {
	r = r.Normalized()
	radius = math.Min(radius, math.Min(r.Width, r.Height)/2)
	if radius <= 0 {
		return RectPath(r)
	}
	k := radius * kappa
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height

	var p Path
	p.MoveTo(Pt(x0+radius, y0))
	p.LineTo(Pt(x1-radius, y0))
	p.CubeTo(Pt(x1-radius+k, y0), Pt(x1, y0+radius-k), Pt(x1, y0+radius))
	p.LineTo(Pt(x1, y1-radius))
	p.CubeTo(Pt(x1, y1-radius+k), Pt(x1-radius+k, y1), Pt(x1-radius, y1))
	p.LineTo(Pt(x0+radius, y1))
	p.CubeTo(Pt(x0+radius-k, y1), Pt(x0, y1-radius+k), Pt(x0, y1-radius))
	p.LineTo(Pt(x0, y0+radius))
	p.CubeTo(Pt(x0, y0+radius-k), Pt(x0+radius-k, y0), Pt(x0+radius, y0))
	p.Close()
	return p
}

// EllipsePath is the closed ellipse inscribed in r
func EllipsePath(r Rect) Path {
	r = r.Normalized()
	cx, cy := r.MidX(), r.MidY()
	rx, ry := r.Width/2, r.Height/2
	kx, ky := rx*kappa, ry*kappa

	var p Path
	p.MoveTo(Pt(cx+rx, cy))
	p.CubeTo(Pt(cx+rx, cy+ky), Pt(cx+kx, cy+ry), Pt(cx, cy+ry))
	p.CubeTo(Pt(cx-kx, cy+ry), Pt(cx-rx, cy+ky), Pt(cx-rx, cy))
	p.CubeTo(Pt(cx-rx, cy-ky), Pt(cx-kx, cy-ry), Pt(cx, cy-ry))
	p.CubeTo(Pt(cx+kx, cy-ry), Pt(cx+rx, cy-ky), Pt(cx+rx, cy))
	p.Close()
	return p
}
