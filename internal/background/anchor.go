package background

import "github.com/bryanchriswhite/snapframe/internal/geometry"

// Anchor names one of nine points on the canvas used to position gradients
type Anchor string

const (
	TopLeading     Anchor = "topLeading"
	Top            Anchor = "top"
	TopTrailing    Anchor = "topTrailing"
	Leading        Anchor = "leading"
	Center         Anchor = "center"
	Trailing       Anchor = "trailing"
	BottomLeading  Anchor = "bottomLeading"
	Bottom         Anchor = "bottom"
	BottomTrailing Anchor = "bottomTrailing"
)

// Anchors lists every known anchor
var Anchors = []Anchor{
	TopLeading, Top, TopTrailing,
	Leading, Center, Trailing,
	BottomLeading, Bottom, BottomTrailing,
}

// Resolve maps a to a point on a w×h canvas in bottom-left native space,
// where "top" is the maximum y. ok is false for unknown anchors.
func Resolve(a Anchor, w, h float64) (geometry.Point, bool) {
	switch a {
	case TopLeading:
		return geometry.Pt(0, h), true
	case Top:
		return geometry.Pt(w/2, h), true
	case TopTrailing:
		return geometry.Pt(w, h), true
	case Leading:
		return geometry.Pt(0, h/2), true
	case Center:
		return geometry.Pt(w/2, h/2), true
	case Trailing:
		return geometry.Pt(w, h/2), true
	case BottomLeading:
		return geometry.Pt(0, 0), true
	case Bottom:
		return geometry.Pt(w/2, 0), true
	case BottomTrailing:
		return geometry.Pt(w, 0), true
	}
	return geometry.Point{}, false
}

// ResolveStart resolves a gradient start anchor, defaulting to topLeading
func ResolveStart(a Anchor, w, h float64) geometry.Point {
	if p, ok := Resolve(a, w, h); ok {
		return p
	}
	p, _ := Resolve(TopLeading, w, h)
	return p
}

// ResolveEnd resolves a gradient end anchor, defaulting to bottomTrailing
func ResolveEnd(a Anchor, w, h float64) geometry.Point {
	if p, ok := Resolve(a, w, h); ok {
		return p
	}
	p, _ := Resolve(BottomTrailing, w, h)
	return p
}
