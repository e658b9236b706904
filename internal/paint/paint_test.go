package paint

import (
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message  string
		input    string
		expected Color
		wantErr  bool
	}{
		{message: "parse rrggbb as opaque", input: "#ff8000", expected: Color{255, 128, 0, 255}},
		{message: "parse rrggbbaa", input: "#0000004d", expected: Color{0, 0, 0, 77}},
		{message: "expand short hex", input: "#fff", expected: White},
		{message: "accept a missing hash", input: "007aff", expected: Blue},
		{message: "accept colour names", input: "Black", expected: Black},
		{message: "reject bad lengths", input: "#12345", wantErr: true},
		{message: "reject non-hex digits", input: "#zzzzzz", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run("Should "+tt.message, func(t *testing.T) {
			t.Parallel()
			got, err := ParseColor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestColorEncoding(t *testing.T) {
	type doc struct {
		Color Color `json:"color" yaml:"color"`
	}

	out, err := json.Marshal(doc{Color: RGBA(1, 0, 0, 0.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"#ff000080"}`, string(out))

	var d doc
	require.NoError(t, yaml.Unmarshal([]byte("color: \"#00ff00\"\n"), &d))
	assert.Equal(t, Color{0, 255, 0, 255}, d.Color)
}

func TestMask(t *testing.T) {
	m := Mask(geometry.RectPath(geometry.R(10, 10, 20, 20)), 40, 40)

	assert.Equal(t, uint8(255), m.AlphaAt(20, 20).A)
	assert.Equal(t, uint8(0), m.AlphaAt(2, 2).A)
	assert.Equal(t, uint8(0), m.AlphaAt(35, 35).A)
}

func TestCanvasStroke(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	c := NewCanvas(img)
	c.Stroke(geometry.LinePath(geometry.Pt(5, 25), geometry.Pt(45, 25)), Red, 4)

	r, _, _, a := img.At(25, 25).RGBA()
	assert.NotZero(t, a)
	assert.NotZero(t, r)
	_, _, _, a = img.At(25, 5).RGBA()
	assert.Zero(t, a)

	// zero width draws nothing
	blank := image.NewRGBA(image.Rect(0, 0, 10, 10))
	NewCanvas(blank).Stroke(geometry.LinePath(geometry.Pt(0, 5), geometry.Pt(10, 5)), Red, 0)
	assert.Equal(t, color.RGBA{}, blank.RGBAAt(5, 5))
}

func TestBlend(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	FillRect(dst, dst.Bounds(), White)

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	FillRect(src, src.Bounds(), Black)

	Blend(dst, src, image.Pt(1, 1), 1)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, dst.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, dst.RGBAAt(0, 0))

	Blend(dst, src, image.Pt(3, 3), 0.5)
	px := dst.RGBAAt(3, 3)
	assert.InDelta(t, 127, int(px.R), 2)
}
