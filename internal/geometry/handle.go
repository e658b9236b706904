package geometry

import (
	"fmt"
	"math"
)

// Handle is a grab point on a rectangle used for interactive resizing
type Handle string

const (
	HandleTopLeft      Handle = "top_left"
	HandleTopCenter    Handle = "top_center"
	HandleTopRight     Handle = "top_right"
	HandleRightCenter  Handle = "right_center"
	HandleBottomRight  Handle = "bottom_right"
	HandleBottomCenter Handle = "bottom_center"
	HandleBottomLeft   Handle = "bottom_left"
	HandleLeftCenter   Handle = "left_center"
	HandleMove         Handle = "move"
)

// Handles lists the resize handles in hit-test order. HandleMove is not
// included; it is chosen when a point is inside the rect but near no handle.
var Handles = []Handle{
	HandleTopLeft, HandleTopCenter, HandleTopRight, HandleRightCenter,
	HandleBottomRight, HandleBottomCenter, HandleBottomLeft, HandleLeftCenter,
}

// AspectTolerance is how far width/height may drift from a locked ratio
const AspectTolerance = 0.01

// HandleHitRadius is the grab distance around each handle
const HandleHitRadius = 20.0

// ParseHandle validates a handle name
func ParseHandle(s string) (Handle, error) {
	h := Handle(s)
	if h == HandleMove {
		return h, nil
	}
	for _, known := range Handles {
		if h == known {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown handle: %q", s)
}

// isLeft reports whether h sits on the left edge
func (h Handle) isLeft() bool {
	return h == HandleTopLeft || h == HandleLeftCenter || h == HandleBottomLeft
}

func (h Handle) isRight() bool {
	return h == HandleTopRight || h == HandleRightCenter || h == HandleBottomRight
}

func (h Handle) isTop() bool {
	return h == HandleTopLeft || h == HandleTopCenter || h == HandleTopRight
}

func (h Handle) isBottom() bool {
	return h == HandleBottomLeft || h == HandleBottomCenter || h == HandleBottomRight
}

// Position returns where handle h sits on rect r
func (h Handle) Position(r Rect) Point {
	x, y := r.MidX(), r.MidY()
	switch {
	case h.isLeft():
		x = r.MinX()
	case h.isRight():
		x = r.MaxX()
	}
	switch {
	case h.isTop():
		y = r.MinY()
	case h.isBottom():
		y = r.MaxY()
	}
	return Point{X: x, Y: y}
}

// HandleAt returns the handle within radius of p, HandleMove when p is inside
// r but near no handle, and false otherwise
func HandleAt(r Rect, p Point, radius float64) (Handle, bool) {
	for _, h := range Handles {
		if h.Position(r).Dist(p) <= radius {
			return h, true
		}
	}
	if r.Contains(p) {
		return HandleMove, true
	}
	return "", false
}

// ResizeRectByHandle applies a pointer delta to rect as if handle were dragged.
//
// The result never has negative size. When aspectRatio is non-nil and the
// adjusted rect drifts from it by more than AspectTolerance, the dimension
// that changed least is re-derived from the other and the rect is re-anchored
// so the edge opposite the dragged handle stays put.
func ResizeRectByHandle(rect Rect, handle Handle, delta Point, aspectRatio *float64) Rect {
	r := rect
	dx, dy := delta.X, delta.Y

	switch handle {
	case HandleMove:
		r.X += dx
		r.Y += dy
	case HandleTopLeft:
		r.X += dx
		r.Y += dy
		r.Width -= dx
		r.Height -= dy
	case HandleTopCenter:
		r.Y += dy
		r.Height -= dy
	case HandleTopRight:
		r.Y += dy
		r.Width += dx
		r.Height -= dy
	case HandleRightCenter:
		r.Width += dx
	case HandleBottomRight:
		r.Width += dx
		r.Height += dy
	case HandleBottomCenter:
		r.Height += dy
	case HandleBottomLeft:
		r.X += dx
		r.Width -= dx
		r.Height += dy
	case HandleLeftCenter:
		r.X += dx
		r.Width -= dx
	}

	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}

	if aspectRatio != nil && *aspectRatio > 0 {
		r = constrainToAspect(r, rect, handle, *aspectRatio)
	}
	return r
}

func constrainToAspect(r, orig Rect, handle Handle, ratio float64) Rect {
	if r.Height > 0 && math.Abs(r.Width/r.Height-ratio) <= AspectTolerance {
		return r
	}

	w, h := r.Width, r.Height
	if math.Abs(w-orig.Width) > math.Abs(h-orig.Height) {
		h = w / ratio
	} else {
		w = h * ratio
	}

	x := orig.MidX() - w/2
	switch {
	case handle.isLeft():
		x = orig.MaxX() - w
	case handle.isRight():
		x = orig.MinX()
	}

	y := orig.MidY() - h/2
	switch {
	case handle.isTop():
		y = orig.MaxY() - h
	case handle.isBottom():
		y = orig.MinY()
	}

	if handle == HandleMove {
		x, y = r.MidX()-w/2, r.MidY()-h/2
	}

	return Rect{X: x, Y: y, Width: w, Height: h}
}

// FitAspect keeps rect's origin and makes width/height match ratio: a too-wide
// rect gets taller, a too-tall rect gets wider
func FitAspect(rect Rect, ratio float64) Rect {
	if ratio <= 0 || rect.Height <= 0 {
		return rect
	}
	current := rect.Width / rect.Height
	if math.Abs(current-ratio) <= AspectTolerance {
		return rect
	}
	if current > ratio {
		rect.Height = rect.Width / ratio
	} else {
		rect.Width = rect.Height * ratio
	}
	return rect
}

// PaddingForAspect returns the padding that keeps the padding share of the
// canvas width while making the padded canvas match ratio
func PaddingForAspect(screenshot Size, padding, ratio float64) float64 {
	canvasWidth := screenshot.Width + 2*padding
	if ratio <= 0 || canvasWidth <= 0 || screenshot.Height <= 0 {
		return padding
	}
	share := padding / canvasWidth

	var newWidth float64
	if screenshot.Width/screenshot.Height > ratio {
		newHeight := screenshot.Height + 2*padding
		newWidth = newHeight * ratio
	} else {
		newWidth = screenshot.Width + 2*padding
	}
	return newWidth * share
}
