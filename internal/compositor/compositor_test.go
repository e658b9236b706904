package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/paint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	red   = color.RGBA{255, 59, 48, 255}
)

func solid(w, h int, c paint.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	paint.FillRect(img, img.Bounds(), c)
	return img
}

func plainState() State {
	return State{
		Screenshot: solid(200, 100, paint.Red),
		Padding:    20,
	}
}

func TestRenderCanvasSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		padding float64
		w, h    int
	}{
		{message: "add padding on every side", padding: 20, w: 240, h: 140},
		{message: "render the bare screenshot without padding", padding: 0, w: 200, h: 100},
		{message: "round fractional padding", padding: 10.6, w: 222, h: 122},
		{message: "treat negative padding as zero", padding: -5, w: 200, h: 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run("Should "+tt.message, func(t *testing.T) {
			t.Parallel()
			s := plainState()
			s.Padding = tt.padding
			out, err := Render(s, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.w, out.Bounds().Dx())
			assert.Equal(t, tt.h, out.Bounds().Dy())
			assert.Equal(t, float64(tt.w), s.CanvasSize().Width)
		})
	}
}

func TestRenderPlacesScreenshotOnWhite(t *testing.T) {
	out, err := Render(plainState(), nil)
	require.NoError(t, err)

	assert.Equal(t, white, out.RGBAAt(0, 0))
	assert.Equal(t, white, out.RGBAAt(239, 139))
	assert.Equal(t, white, out.RGBAAt(19, 70))
	assert.Equal(t, white, out.RGBAAt(220, 120))

	assert.Equal(t, red, out.RGBAAt(20, 20), "square corner without a radius")
	assert.Equal(t, red, out.RGBAAt(219, 119))
	assert.Equal(t, red, out.RGBAAt(120, 70))
}

func TestRenderRoundsCorners(t *testing.T) {
	s := plainState()
	s.CornerRadius = 12
	out, err := Render(s, nil)
	require.NoError(t, err)

	corner := out.RGBAAt(20, 20)
	assert.Greater(t, int(corner.G), 200, "corner pixel shows the background")
	assert.Equal(t, red, out.RGBAAt(120, 20), "edge midpoint is not clipped")
	assert.Equal(t, red, out.RGBAAt(120, 70))
}

func TestRenderShadowStaysOutsideScreenshot(t *testing.T) {
	s := plainState()
	s.Shadow = Shadow{Color: paint.Black.WithAlpha(0.5), Blur: 10, Offset: geometry.Pt(0, 4)}
	out, err := Render(s, nil)
	require.NoError(t, err)

	for _, p := range []image.Point{{20, 20}, {120, 70}, {219, 119}, {120, 118}} {
		assert.Equal(t, red, out.RGBAAt(p.X, p.Y), "screenshot pixel %v", p)
	}

	below := out.RGBAAt(120, 124)
	assert.Less(t, int(below.R), 255, "shadow darkens the padding below")
	above := out.RGBAAt(120, 17)
	assert.Greater(t, int(above.R), int(below.R), "offset pushes the shadow downwards")
}

func TestRenderUsesBackground(t *testing.T) {
	s := plainState()
	s.Background = background.Gradient{Preset: background.Preset{
		Name:   "solid black",
		Kind:   background.Linear,
		Start:  background.Top,
		End:    background.Bottom,
		Colors: []paint.Color{paint.Black},
	}}
	out, err := Render(s, nil)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(0, 0))
	assert.Equal(t, red, out.RGBAAt(120, 70))
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		message string
		state   State
	}{
		{message: "fail without a screenshot", state: State{Padding: 20}},
		{message: "fail for an empty screenshot", state: State{Screenshot: image.NewRGBA(image.Rect(0, 0, 0, 0))}},
		{message: "fail for an oversized canvas", state: State{Screenshot: &image.Uniform{C: color.White}}},
	}
	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			out, err := Render(tt.state, nil)
			require.ErrorIs(t, err, ErrRenderFailed)
			assert.Nil(t, out)
		})
	}
}

func TestRenderAnnotations(t *testing.T) {
	rect := annotation.New(annotation.KindRectangle, geometry.R(50, 50, 40, 30),
		annotation.Style{Color: paint.Blue, StrokeWidth: 2}, annotation.DefaultTextStyle())

	out, err := Render(plainState(), []annotation.Annotation{rect})
	require.NoError(t, err)

	edge := out.RGBAAt(50, 65)
	assert.InDelta(t, 0, int(edge.R), 8)
	assert.InDelta(t, 122, int(edge.G), 8)
	assert.InDelta(t, 255, int(edge.B), 8)
	assert.Equal(t, red, out.RGBAAt(70, 65), "rectangles are outlined, not filled")
}

func TestRenderAnnotationOrder(t *testing.T) {
	style := func(c paint.Color) annotation.Style { return annotation.Style{Color: c, StrokeWidth: 4} }
	first := annotation.New(annotation.KindLine, geometry.R(40, 60, 100, 0), style(paint.Blue), annotation.DefaultTextStyle())
	second := annotation.New(annotation.KindLine, geometry.R(40, 60, 100, 0), style(paint.Black), annotation.DefaultTextStyle())

	out, err := Render(plainState(), []annotation.Annotation{first, second})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(90, 60), "later annotations draw on top")
}

func TestRenderText(t *testing.T) {
	text := annotation.New(annotation.KindText, geometry.R(30, 30, 150, 40),
		annotation.Style{Color: paint.Black, StrokeWidth: 2}, annotation.DefaultTextStyle())
	text.Text = "Hello, snapframe"

	out, err := Render(plainState(), []annotation.Annotation{text})
	require.NoError(t, err)

	inked := 0
	for y := 30; y < 70; y++ {
		for x := 30; x < 180; x++ {
			if out.RGBAAt(x, y) != red {
				inked++
			}
		}
	}
	assert.Positive(t, inked, "glyphs are drawn inside the frame")
	assert.Equal(t, red, out.RGBAAt(190, 50), "nothing is drawn beside the frame")
	assert.Equal(t, red, out.RGBAAt(60, 80), "nothing is drawn below the frame")
}

func TestRenderSkipsEmptyText(t *testing.T) {
	text := annotation.New(annotation.KindText, geometry.R(30, 30, 150, 40),
		annotation.DefaultStyle(), annotation.TextStyle{HasBorder: true, BorderColor: paint.Black, BorderWidth: 3})

	plain, err := Render(plainState(), nil)
	require.NoError(t, err)
	out, err := Render(plainState(), []annotation.Annotation{text})
	require.NoError(t, err)
	assert.Equal(t, plain.Pix, out.Pix, "empty text draws neither glyphs nor border")

	text.Text = "x"
	out, err = Render(plainState(), []annotation.Annotation{text})
	require.NoError(t, err)
	border := out.RGBAAt(30, 50)
	assert.Less(t, int(border.R), 40, "border is stroked once text is present")
}

func TestWrapText(t *testing.T) {
	d := &font.Drawer{Face: basicfont.Face7x13}
	width := fixed.I(7 * 11)

	lines := wrapText(d, "hello world again\nnext", width)
	assert.Equal(t, []string{"hello world", "again", "next"}, lines)

	lines = wrapText(d, "supercalifragilistic", width)
	assert.Equal(t, []string{"supercalifragilistic"}, lines)
}

func TestClamp(t *testing.T) {
	s := State{Padding: 500, CornerRadius: -3, Shadow: Shadow{Blur: 80}}.Clamp()
	assert.Equal(t, MaxPadding, s.Padding)
	assert.Equal(t, 0.0, s.CornerRadius)
	assert.Equal(t, MaxShadowBlur, s.Shadow.Blur)

	d := DefaultState()
	assert.Equal(t, d, d.Clamp())
}

func TestScreenshotRect(t *testing.T) {
	s := plainState()
	assert.Equal(t, geometry.R(20, 20, 200, 100), s.ScreenshotRect())
	assert.Equal(t, geometry.Size{}, State{}.ScreenshotSize())
}
