package paint

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Color is a non-premultiplied 8-bit RGBA colour. It marshals to and from
// "#rrggbb" / "#rrggbbaa" hex strings in JSON and YAML.
type Color struct {
	R, G, B, A uint8
}

var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
	Blue  = Color{0, 122, 255, 255}
	Red   = Color{255, 59, 48, 255}
)

// RGB builds an opaque colour from unit-interval channels
func RGB(r, g, b float64) Color {
	return RGBA(r, g, b, 1)
}

// RGBA builds a colour from unit-interval channels
func RGBA(r, g, b, a float64) Color {
	return Color{R: unit(r), G: unit(g), B: unit(b), A: unit(a)}
}

func unit(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// RGBA implements color.Color
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA(c).RGBA()
}

// WithAlpha returns c with its alpha replaced by a in [0,1]
func (c Color) WithAlpha(a float64) Color {
	c.A = unit(a)
	return c
}

// Hex renders the colour as #rrggbbaa
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// String implements fmt.Stringer
func (c Color) String() string {
	return c.Hex()
}

// ParseColor accepts #rgb, #rrggbb or #rrggbbaa (leading # optional) and a
// few colour names
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black":
		return Black, nil
	case "white":
		return White, nil
	case "blue":
		return Blue, nil
	case "red":
		return Red, nil
	case "clear", "transparent":
		return Color{}, nil
	}

	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// MarshalText implements encoding.TextMarshaler
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
