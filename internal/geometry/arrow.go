package geometry

import "math"

// DefaultArrowHeadLength is the head length used by arrow annotations
const DefaultArrowHeadLength = 10.0

// ArrowHeadWidthRatio is the head half-width relative to its length
const ArrowHeadWidthRatio = 0.6

// BuildArrowPath returns the shaft and head(s) of an arrow from start to end.
//
// The shaft runs from start to a point headLength before end; the head is a
// closed triangle whose last vertex is end. headLength is clamped to half the
// arrow length. A zero-length arrow yields an empty path.
func BuildArrowPath(start, end Point, headLength float64, doubleHeaded bool) Path {
	var p Path

	v := end.Sub(start)
	length := v.Len()
	if length == 0 || math.IsNaN(length) {
		return p
	}

	dir := v.Mul(1 / length)
	perp := Point{X: -dir.Y, Y: dir.X}
	head := math.Min(headLength, length/2)
	halfWidth := ArrowHeadWidthRatio * head

	lineEnd := end.Sub(dir.Mul(head))

	if doubleHeaded {
		lineStart := start.Add(dir.Mul(head))
		p.MoveTo(lineStart.Sub(perp.Mul(halfWidth)))
		p.LineTo(lineStart.Add(perp.Mul(halfWidth)))
		p.LineTo(start)
		p.Close()
	}

	p.MoveTo(start)
	p.LineTo(lineEnd)

	p.MoveTo(lineEnd.Add(perp.Mul(halfWidth)))
	p.LineTo(lineEnd.Sub(perp.Mul(halfWidth)))
	p.LineTo(end)
	p.Close()

	return p
}
