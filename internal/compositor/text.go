package compositor

import (
	"image"
	"math"
	"strings"
	"sync"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// fontFamilies maps the family names accepted on text annotations to the
// bundled Go fonts. Unknown families render with the regular face.
var fontFamilies = map[string][]byte{
	"go":        goregular.TTF,
	"go bold":   gobold.TTF,
	"go italic": goitalic.TTF,
	"go mono":   gomono.TTF,
}

// FontFamilies lists the family names text annotations may use
func FontFamilies() []string {
	return []string{"Go", "Go Bold", "Go Italic", "Go Mono"}
}

var (
	fontMu    sync.Mutex
	fontCache = map[string]*opentype.Font{}
)

func parsedFont(family string) (*opentype.Font, error) {
	key := strings.ToLower(strings.TrimSpace(family))
	data, ok := fontFamilies[key]
	if !ok {
		key, data = "go", goregular.TTF
	}

	fontMu.Lock()
	defer fontMu.Unlock()
	if f, ok := fontCache[key]; ok {
		return f, nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	fontCache[key] = f
	return f, nil
}

// newFace returns a face for family at size points (72 DPI, so one point is
// one pixel). Faces that fail to load fall back to the fixed 7x13 face.
func newFace(family string, size float64) font.Face {
	f, err := parsedFont(family)
	if err == nil {
		var face font.Face
		face, err = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return face
		}
	}
	logger.WithComponent("compositor").Warn().
		Err(err).
		Str("family", family).
		Msg("Falling back to basic font")
	return basicfont.Face7x13
}

// drawText lays out a's text inside its frame, wrapping on word boundaries,
// and clips the glyphs to the frame
func drawText(dst *image.RGBA, a annotation.Annotation) {
	frame := a.Frame.Normalized()
	clip := image.Rect(
		int(math.Floor(frame.MinX())), int(math.Floor(frame.MinY())),
		int(math.Ceil(frame.MaxX())), int(math.Ceil(frame.MaxY())),
	).Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	sub, ok := dst.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}

	face := newFace(a.FontFamily, a.EffectiveFontSize())
	defer face.Close()

	d := &font.Drawer{Dst: sub, Src: image.NewUniform(a.Color), Face: face}
	left := floatToFixed(frame.MinX())
	right := floatToFixed(frame.MaxX())
	bottom := floatToFixed(frame.MaxY())

	metrics := face.Metrics()
	lineHeight := metrics.Height
	if lineHeight <= 0 {
		lineHeight = metrics.Ascent + metrics.Descent
	}

	baseline := floatToFixed(frame.MinY()) + metrics.Ascent
	for _, line := range wrapText(d, a.Text, right-left) {
		if baseline-metrics.Ascent >= bottom {
			break
		}
		x := left
		switch a.Alignment {
		case annotation.AlignCenter:
			x = left + (right-left-d.MeasureString(line))/2
		case annotation.AlignRight:
			x = right - d.MeasureString(line)
		}
		d.Dot = fixed.Point26_6{X: x, Y: baseline}
		d.DrawString(line)
		baseline += lineHeight
	}
}

// wrapText breaks text into lines no wider than width. Explicit newlines are
// kept and a single word wider than width gets a line of its own.
func wrapText(d *font.Drawer, text string, width fixed.Int26_6) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if d.MeasureString(candidate) <= width {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = w
		}
		lines = append(lines, line)
	}
	return lines
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
