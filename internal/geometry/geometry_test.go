package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestBuildArrowPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message      string
		start, end   Point
		headLength   float64
		expectedHead float64
	}{
		{
			message:      "use the full head length on long arrows",
			start:        Pt(0, 0),
			end:          Pt(100, 0),
			headLength:   10,
			expectedHead: 10,
		},
		{
			message:      "clamp the head to half of a short arrow",
			start:        Pt(10, 10),
			end:          Pt(13, 14),
			headLength:   10,
			expectedHead: 2.5,
		},
		{
			message:      "handle diagonal arrows pointing up and left",
			start:        Pt(200, 150),
			end:          Pt(40, 20),
			headLength:   DefaultArrowHeadLength,
			expectedHead: 10,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run("Should "+tt.message, func(t *testing.T) {
			t.Parallel()

			p := BuildArrowPath(tt.start, tt.end, tt.headLength, false)
			require.False(t, p.IsEmpty())

			last, ok := p.LastPoint()
			require.True(t, ok)
			assert.InDelta(t, tt.end.X, last.X, eps)
			assert.InDelta(t, tt.end.Y, last.Y, eps)

			// shaft is the first MoveTo/LineTo pair
			require.Equal(t, OpMoveTo, p.Ops[0].Kind)
			require.Equal(t, OpLineTo, p.Ops[1].Kind)
			assert.Equal(t, tt.start, p.Ops[0].Pts[0])
			lineEnd := p.Ops[1].Pts[0]
			assert.InDelta(t, tt.expectedHead, lineEnd.Dist(tt.end), eps)

			// lineEnd lies on the segment towards end
			dir := tt.end.Sub(tt.start).Mul(1 / tt.end.Dist(tt.start))
			back := tt.end.Sub(dir.Mul(tt.expectedHead))
			assert.InDelta(t, back.X, lineEnd.X, eps)
			assert.InDelta(t, back.Y, lineEnd.Y, eps)
		})
	}
}

func TestBuildArrowPathWings(t *testing.T) {
	p := BuildArrowPath(Pt(0, 0), Pt(100, 0), 10, false)

	var wings []Point
	for _, op := range p.Ops[2:] {
		if op.Kind == OpMoveTo || op.Kind == OpLineTo {
			wings = append(wings, op.Pts[0])
		}
	}
	require.Len(t, wings, 3)
	assert.InDelta(t, 90, wings[0].X, eps)
	assert.InDelta(t, 6, math.Abs(wings[0].Y), eps)
	assert.InDelta(t, 90, wings[1].X, eps)
	assert.InDelta(t, -wings[0].Y, wings[1].Y, eps)
	assert.Equal(t, OpClose, p.Ops[len(p.Ops)-1].Kind)
}

func TestBuildArrowPathDegenerate(t *testing.T) {
	require.NotPanics(t, func() {
		p := BuildArrowPath(Pt(5, 5), Pt(5, 5), 10, false)
		assert.True(t, p.IsEmpty())
		_, ok := p.LastPoint()
		assert.False(t, ok)

		p = BuildArrowPath(Pt(5, 5), Pt(5, 5), 10, true)
		assert.True(t, p.IsEmpty())
	})
}

func TestBuildArrowPathDoubleHeaded(t *testing.T) {
	start, end := Pt(0, 0), Pt(0, 50)
	p := BuildArrowPath(start, end, 10, true)

	last, ok := p.LastPoint()
	require.True(t, ok)
	assert.Equal(t, end, last)

	// the mirrored head converges at start
	var sawStart bool
	for i, op := range p.Ops {
		if op.Kind == OpLineTo && op.Pts[0] == start && p.Ops[i+1].Kind == OpClose {
			sawStart = true
		}
	}
	assert.True(t, sawStart)
}

func TestNormalizeRect(t *testing.T) {
	t.Parallel()

	corners := [][2]Point{
		{Pt(0, 0), Pt(10, 20)},
		{Pt(10, 20), Pt(0, 0)},
		{Pt(10, 0), Pt(0, 20)},
		{Pt(-5, 7), Pt(-15, -3)},
		{Pt(3, 3), Pt(3, 3)},
	}
	for _, c := range corners {
		r := NormalizeRect(c[0], c[1])
		assert.GreaterOrEqual(t, r.Width, 0.0)
		assert.GreaterOrEqual(t, r.Height, 0.0)
		assert.Equal(t, r, NormalizeRect(r.Min(), r.Max()))
		assert.Equal(t, r, r.Normalized())
	}

	assert.Equal(t, R(0, 0, 10, 20), NormalizeRect(Pt(10, 0), Pt(0, 20)))
}

func TestResizeRectByHandle(t *testing.T) {
	t.Parallel()

	base := R(100, 100, 200, 100)
	tests := []struct {
		message  string
		handle   Handle
		delta    Point
		expected Rect
	}{
		{"translate on move", HandleMove, Pt(10, -5), R(110, 95, 200, 100)},
		{"grow from the top left corner", HandleTopLeft, Pt(-10, -20), R(90, 80, 210, 120)},
		{"adjust only height from the top edge", HandleTopCenter, Pt(50, 10), R(100, 110, 200, 90)},
		{"adjust width and top from the top right corner", HandleTopRight, Pt(20, 10), R(100, 110, 220, 90)},
		{"adjust only width from the right edge", HandleRightCenter, Pt(30, 99), R(100, 100, 230, 100)},
		{"grow from the bottom right corner", HandleBottomRight, Pt(5, 5), R(100, 100, 205, 105)},
		{"adjust only height from the bottom edge", HandleBottomCenter, Pt(7, 15), R(100, 100, 200, 115)},
		{"move left edge and bottom from the bottom left corner", HandleBottomLeft, Pt(10, 10), R(110, 100, 190, 110)},
		{"adjust only width from the left edge", HandleLeftCenter, Pt(-20, 3), R(80, 100, 220, 100)},
		{"flip when dragged past the opposite edge", HandleRightCenter, Pt(-250, 0), R(50, 100, 50, 100)},
		{"flip vertically from the top edge", HandleTopCenter, Pt(0, 130), R(100, 200, 200, 30)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run("Should "+tt.message, func(t *testing.T) {
			t.Parallel()
			got := ResizeRectByHandle(base, tt.handle, tt.delta, nil)
			assert.InDelta(t, tt.expected.X, got.X, eps)
			assert.InDelta(t, tt.expected.Y, got.Y, eps)
			assert.InDelta(t, tt.expected.Width, got.Width, eps)
			assert.InDelta(t, tt.expected.Height, got.Height, eps)
		})
	}
}

func TestResizeRectByHandleAspect(t *testing.T) {
	t.Parallel()

	base := R(100, 100, 160, 90)
	deltas := []Point{Pt(0, 0), Pt(15, 2), Pt(-30, 40), Pt(3, -60), Pt(-500, -500), Pt(12.5, 7.25)}
	ratios := []float64{1, 16.0 / 9.0, 4.0 / 3.0, 21.0 / 9.0, 9.0 / 16.0, 3.0 / 4.0}

	for _, ratio := range ratios {
		ratio := ratio
		for _, h := range append([]Handle{HandleMove}, Handles...) {
			for _, d := range deltas {
				got := ResizeRectByHandle(base, h, d, &ratio)
				assert.GreaterOrEqual(t, got.Width, 0.0)
				assert.GreaterOrEqual(t, got.Height, 0.0)
				if got.Height > 0 {
					assert.InDelta(t, ratio, got.Width/got.Height, AspectTolerance,
						"handle %s delta %v ratio %f", h, d, ratio)
				}
			}
		}
	}
}

func TestResizeRectByHandleAspectAnchors(t *testing.T) {
	square := 1.0
	base := R(100, 100, 100, 100)

	// dragging the left edge keeps the right edge fixed
	got := ResizeRectByHandle(base, HandleLeftCenter, Pt(-50, 0), &square)
	assert.InDelta(t, base.MaxX(), got.MaxX(), eps)
	assert.InDelta(t, 150, got.Width, eps)
	assert.InDelta(t, base.MidY(), got.MidY(), eps)

	// dragging the right edge keeps the left edge fixed
	got = ResizeRectByHandle(base, HandleRightCenter, Pt(50, 0), &square)
	assert.InDelta(t, base.MinX(), got.MinX(), eps)

	// dragging the top edge keeps the bottom edge fixed
	got = ResizeRectByHandle(base, HandleTopCenter, Pt(0, -40), &square)
	assert.InDelta(t, base.MaxY(), got.MaxY(), eps)
	assert.InDelta(t, base.MidX(), got.MidX(), eps)

	// dragging the bottom right corner keeps the top left corner fixed
	got = ResizeRectByHandle(base, HandleBottomRight, Pt(30, 10), &square)
	assert.InDelta(t, base.MinX(), got.MinX(), eps)
	assert.InDelta(t, base.MinY(), got.MinY(), eps)
	assert.InDelta(t, 130, got.Width, eps)
}

func TestHandleAt(t *testing.T) {
	r := R(0, 0, 200, 100)

	h, ok := HandleAt(r, Pt(3, 4), HandleHitRadius)
	require.True(t, ok)
	assert.Equal(t, HandleTopLeft, h)

	h, ok = HandleAt(r, Pt(100, 98), HandleHitRadius)
	require.True(t, ok)
	assert.Equal(t, HandleBottomCenter, h)

	h, ok = HandleAt(r, Pt(60, 50), HandleHitRadius)
	require.True(t, ok)
	assert.Equal(t, HandleMove, h)

	_, ok = HandleAt(r, Pt(400, 400), HandleHitRadius)
	assert.False(t, ok)
}

func TestFitAspect(t *testing.T) {
	got := FitAspect(R(0, 0, 400, 100), 2)
	assert.InDelta(t, 200, got.Height, eps)
	assert.InDelta(t, 400, got.Width, eps)

	got = FitAspect(R(0, 0, 100, 400), 1)
	assert.InDelta(t, 400, got.Width, eps)

	unchanged := R(1, 2, 160, 90)
	assert.Equal(t, unchanged, FitAspect(unchanged, 16.0/9.0))
}

func TestPaddingForAspect(t *testing.T) {
	// wide screenshot: height drives the canvas
	p := PaddingForAspect(Size{Width: 400, Height: 100}, 20, 1)
	canvas := 440.0
	expected := (100 + 40) * 1.0 * (20 / canvas)
	assert.InDelta(t, expected, p, eps)

	// tall screenshot keeps the width-based canvas
	p = PaddingForAspect(Size{Width: 100, Height: 400}, 20, 1)
	assert.InDelta(t, 20, p, eps)

	assert.Equal(t, 20.0, PaddingForAspect(Size{}, 20, 1))
}

func TestShapePaths(t *testing.T) {
	r := R(10, 20, 100, 50)

	b := RoundedRectPath(r, 4).Bounds()
	assert.InDelta(t, 10, b.X, eps)
	assert.InDelta(t, 20, b.Y, eps)
	assert.InDelta(t, 100, b.Width, eps)
	assert.InDelta(t, 50, b.Height, eps)

	b = EllipsePath(r).Bounds()
	assert.InDelta(t, r.MinX(), b.MinX(), eps)
	assert.InDelta(t, r.MaxY(), b.MaxY(), eps)

	line := LinePath(Pt(1, 2), Pt(3, 4))
	last, _ := line.LastPoint()
	assert.Equal(t, Pt(3, 4), last)

	assert.Len(t, RoundedRectPath(r, 0).Ops, len(RectPath(r).Ops))
}

func TestParseHandle(t *testing.T) {
	h, err := ParseHandle("bottom_left")
	require.NoError(t, err)
	assert.Equal(t, HandleBottomLeft, h)

	_, err = ParseHandle("middle")
	require.Error(t, err)
}

func TestLookupAspectRatio(t *testing.T) {
	p, err := LookupAspectRatio("16:9")
	require.NoError(t, err)
	require.NotNil(t, p.Ratio)
	assert.InDelta(t, 16.0/9.0, *p.Ratio, eps)

	p, err = LookupAspectRatio("freeform")
	require.NoError(t, err)
	assert.Nil(t, p.Ratio)

	_, err = LookupAspectRatio("5:4")
	require.Error(t, err)
}
