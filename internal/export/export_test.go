package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/paint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu        sync.Mutex
	files     map[string][]byte
	clipboard []byte
	mime      string
	err       error
}

func (m *memorySink) WriteFile(_ context.Context, data []byte, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[path] = data
	return nil
}

func (m *memorySink) CopyToClipboard(_ context.Context, data []byte, mime string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.clipboard, m.mime = data, mime
	return nil
}

func testState() compositor.State {
	shot := image.NewRGBA(image.Rect(0, 0, 60, 40))
	paint.FillRect(shot, shot.Bounds(), paint.Red)
	s := compositor.DefaultState()
	s.Screenshot = shot
	return s
}

func TestEncodeFormatsDiffer(t *testing.T) {
	s := testState()
	s.Shadow.Blur = 0
	img, err := compositor.Render(s, nil)
	require.NoError(t, err)

	pngData, err := Encode(img, Options{Format: FormatPNG})
	require.NoError(t, err)
	jpegData, err := Encode(img, Options{Format: FormatJPEG, Quality: 0.5})
	require.NoError(t, err)
	webpData, err := Encode(img, Options{Format: FormatWebP, Quality: 0.8})
	require.NoError(t, err)

	assert.NotEqual(t, pngData, jpegData)
	assert.NotEmpty(t, webpData)
	assert.Equal(t, []byte("\x89PNG"), pngData[:4])
	assert.Equal(t, []byte{0xFF, 0xD8}, jpegData[:2])
	assert.Equal(t, []byte("RIFF"), webpData[:4])

	decoded, err := png.Decode(bytes.NewReader(pngData))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	r, g, b, a := decoded.At(40, 40).RGBA()
	er, eg, eb, ea := img.At(40, 40).RGBA()
	assert.Equal(t, []uint32{er, eg, eb, ea}, []uint32{r, g, b, a})
}

func TestJPEGQuality(t *testing.T) {
	tests := []struct {
		message string
		in      float64
		want    int
	}{
		{message: "use the default quality when unset", in: 0, want: 90},
		{message: "round to the nearest percent", in: 0.29, want: 29},
		{message: "keep full quality", in: 1, want: 100},
		{message: "cap quality at 100", in: 2, want: 100},
		{message: "floor tiny qualities at 1", in: 0.001, want: 1},
	}
	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, jpegQuality(tt.in))
		})
	}

	t.Run("Should encode an unset quality like the default", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		unset, err := Encode(img, Options{Format: FormatJPEG})
		require.NoError(t, err)
		def, err := Encode(img, Options{Format: FormatJPEG, Quality: DefaultJPEGQuality})
		require.NoError(t, err)
		assert.Equal(t, def, unset)
	})
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	_, err := Encode(image.NewRGBA(image.Rect(0, 0, 1, 1)), Options{Format: "tiff"})
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"png", FormatPNG},
		{".JPG", FormatJPEG},
		{"jpeg", FormatJPEG},
		{"webp", FormatWebP},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("gif")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	f, err := FormatForPath("/tmp/out.webp")
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, f)
}

func TestGenerateFileName(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 5, 9, 0, time.Local)

	assert.Equal(t, "Screenshot 2024-03-01 14-05-09", GenerateFileName("", now))
	assert.Equal(t, "release notes", GenerateFileName("release notes", now))
	assert.Regexp(t, regexp.MustCompile(`^Screenshot \d{4}-\d{2}-\d{2} \d{2}-\d{2}-\d{2}$`),
		GenerateFileName("  ", time.Now()))

	assert.Equal(t, "Screenshot 2024-03-01 14-05-09.png", FileName(Options{}, now))
	assert.Equal(t, "shot.jpg", FileName(Options{Format: FormatJPEG, FileName: "shot.jpg"}, now))
	assert.Equal(t, "shot.webp", FileName(Options{Format: FormatWebP, FileName: "shot"}, now))
}

func TestExporter(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 5, 9, 0, time.Local)

	t.Run("Should save into the output directory", func(t *testing.T) {
		sink := &memorySink{}
		e := NewExporter(sink)
		e.now = func() time.Time { return now }

		path, err := e.ExportAndSave(context.Background(), testState(), nil, DefaultOptions(), "/out")
		require.NoError(t, err)
		assert.Equal(t, "/out/Screenshot 2024-03-01 14-05-09.png", path)
		assert.Contains(t, sink.files, path)
	})

	t.Run("Should copy png to the clipboard", func(t *testing.T) {
		sink := &memorySink{}
		require.NoError(t, NewExporter(sink).ExportAndCopy(context.Background(), testState(), nil))
		assert.Equal(t, "image/png", sink.mime)
		assert.Equal(t, []byte("\x89PNG"), sink.clipboard[:4])
	})

	t.Run("Should wrap sink failures", func(t *testing.T) {
		sink := &memorySink{err: errors.New("disk full")}
		e := NewExporter(sink)

		_, err := e.ExportAndSave(context.Background(), testState(), nil, DefaultOptions(), "/out")
		assert.ErrorIs(t, err, ErrSaveFailed)

		err = e.ExportAndCopy(context.Background(), testState(), nil)
		assert.ErrorIs(t, err, ErrClipboardFailed)
	})

	t.Run("Should report render failures", func(t *testing.T) {
		_, err := NewExporter(&memorySink{}).Export(compositor.DefaultState(), nil, DefaultOptions())
		assert.ErrorIs(t, err, compositor.ErrRenderFailed)
	})
}
