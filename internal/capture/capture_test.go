package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelBounds(t *testing.T) {
	screen := image.Rect(0, 0, 100, 80)
	tests := []struct {
		rect    geometry.Rect
		want    image.Rectangle
		wantErr error
		message string
	}{
		{geometry.R(10, 10, 20, 30), image.Rect(10, 10, 30, 40), nil, "convert an integral rect"},
		{geometry.R(10.4, 10.6, 5, 5), image.Rect(10, 10, 16, 16), nil, "round outwards to whole pixels"},
		{geometry.R(30, 40, -20, -30), image.Rect(10, 10, 30, 40), nil, "normalize negative sizes"},
		{geometry.R(0, 0, 100, 80), screen, nil, "accept the whole screen"},
		{geometry.R(10, 10, 0, 10), image.Rectangle{}, ErrInvalidBounds, "reject an empty rect"},
		{geometry.R(90, 70, 20, 20), image.Rectangle{}, ErrInvalidBounds, "reject a rect past the screen"},
		{geometry.R(-1, 0, 10, 10), image.Rectangle{}, ErrInvalidBounds, "reject a negative origin"},
		{geometry.R(math.NaN(), 0, 10, 10), image.Rectangle{}, ErrInvalidBounds, "reject NaN"},
		{geometry.R(0, 0, math.Inf(1), 10), image.Rectangle{}, ErrInvalidBounds, "reject infinity"},
	}

	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			got, err := pixelBounds(tt.rect, screen)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	return img
}

func TestCropRegion(t *testing.T) {
	full := testImage(50, 40)

	got, err := cropRegion(full, geometry.R(10, 5, 20, 15))
	require.NoError(t, err)
	assert.Equal(t, 20, got.Bounds().Dx())
	assert.Equal(t, 15, got.Bounds().Dy())

	r, g, _, _ := got.At(got.Bounds().Min.X, got.Bounds().Min.Y).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(5), g>>8)

	t.Run("Should honor a non-zero image origin", func(t *testing.T) {
		sub := full.SubImage(image.Rect(20, 10, 50, 40))
		got, err := cropRegion(sub, geometry.R(0, 0, 5, 5))
		require.NoError(t, err)
		r, g, _, _ := got.At(got.Bounds().Min.X, got.Bounds().Min.Y).RGBA()
		assert.Equal(t, uint32(20), r>>8)
		assert.Equal(t, uint32(10), g>>8)
	})

	t.Run("Should reject rects outside the capture", func(t *testing.T) {
		_, err := cropRegion(full, geometry.R(40, 30, 20, 20))
		assert.ErrorIs(t, err, ErrInvalidBounds)
	})
}

func TestThumbnail(t *testing.T) {
	got := thumbnail(testImage(640, 200))
	assert.Equal(t, ThumbnailWidth, got.Bounds().Dx())
	assert.Equal(t, 100, got.Bounds().Dy())
}

func TestConvertImageData(t *testing.T) {
	// two BGRX pixels: blue-ish and red-ish
	data := []byte{
		0x10, 0x20, 0x30, 0x00,
		0xff, 0x00, 0x80, 0x00,
	}

	tests := []struct {
		depth   int
		data    []byte
		wantErr bool
		message string
	}{
		{24, data, false, "convert 24-bit data"},
		{32, data, false, "convert 32-bit data"},
		{16, data, true, "reject 16-bit data"},
		{24, data[:4], true, "reject short data"},
	}

	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			img, err := convertImageData(tt.data, 2, 1, tt.depth)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrCaptureFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, color.RGBA{R: 0x30, G: 0x20, B: 0x10, A: 255}, img.RGBAAt(0, 0))
			assert.Equal(t, color.RGBA{R: 0x80, G: 0x00, B: 0xff, A: 255}, img.RGBAAt(1, 0))
		})
	}
}

func TestParseScreenshotResponse(t *testing.T) {
	ok := map[string]dbus.Variant{"uri": dbus.MakeVariant("file:///tmp/shot.png")}

	tests := []struct {
		body    []interface{}
		want    string
		wantErr error
		message string
	}{
		{[]interface{}{uint32(0), ok}, "file:///tmp/shot.png", nil, "return the uri on success"},
		{[]interface{}{uint32(1), ok}, "", ErrPermissionDenied, "map a cancelled request to permission denied"},
		{[]interface{}{uint32(2), ok}, "", ErrCaptureFailed, "fail on other response codes"},
		{[]interface{}{uint32(0), map[string]dbus.Variant{}}, "", ErrCaptureFailed, "fail without a uri"},
		{[]interface{}{uint32(0)}, "", ErrCaptureFailed, "fail on a short body"},
		{[]interface{}{int32(0), ok}, "", ErrCaptureFailed, "fail on a mistyped code"},
	}

	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			got, err := parseScreenshotResponse(tt.body)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestFileProvider(t *testing.T) {
	ctx := context.Background()
	p := NewFileProvider(writePNG(t, testImage(60, 30)))
	defer p.Close()

	t.Run("Should load the whole file", func(t *testing.T) {
		img, err := p.CaptureFullscreen(ctx)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 60, 30), img.Bounds())
	})

	t.Run("Should crop a region", func(t *testing.T) {
		img, err := p.CaptureRegion(ctx, geometry.R(5, 5, 10, 10))
		require.NoError(t, err)
		assert.Equal(t, 10, img.Bounds().Dx())
		r, _, _, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
		assert.Equal(t, uint32(5), r>>8)
	})

	t.Run("Should not support windows", func(t *testing.T) {
		_, err := p.CaptureWindow(ctx, 1)
		assert.ErrorIs(t, err, ErrUnsupported)
		windows, err := p.ListWindows(ctx)
		require.NoError(t, err)
		assert.Empty(t, windows)
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := NewFileProvider(filepath.Join(t.TempDir(), "nope.png")).CaptureFullscreen(ctx)
		assert.ErrorIs(t, err, ErrCaptureFailed)
	})

	t.Run("Should respect a cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.CaptureFullscreen(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type fakeProvider struct {
	name    string
	img     image.Image
	err     error
	windows []WindowInfo
	calls   int
	closed  bool
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Close() error { f.closed = true; return nil }

func (f *fakeProvider) CaptureRegion(context.Context, geometry.Rect) (image.Image, error) {
	f.calls++
	return f.img, f.err
}

func (f *fakeProvider) CaptureFullscreen(context.Context) (image.Image, error) {
	f.calls++
	return f.img, f.err
}

func (f *fakeProvider) CaptureWindow(context.Context, uint32) (image.Image, error) {
	f.calls++
	return f.img, f.err
}

func (f *fakeProvider) ListWindows(context.Context) ([]WindowInfo, error) {
	f.calls++
	return f.windows, f.err
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	img := testImage(4, 4)

	t.Run("Should skip providers that do not support an operation", func(t *testing.T) {
		first := &fakeProvider{name: "a", err: ErrUnsupported}
		second := &fakeProvider{name: "b", img: img, windows: []WindowInfo{{ID: 7}}}
		r := NewRouter(first, second)

		got, err := r.CaptureWindow(ctx, 7)
		require.NoError(t, err)
		assert.Same(t, img, got)

		windows, err := r.ListWindows(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(7), windows[0].ID)
		assert.Equal(t, 2, first.calls)
		assert.Equal(t, "router(a,b)", r.Name())
	})

	t.Run("Should stop at the first real failure", func(t *testing.T) {
		failing := errors.New("boom")
		first := &fakeProvider{name: "a", err: failing}
		second := &fakeProvider{name: "b", img: img}
		r := NewRouter(first, second)

		_, err := r.CaptureFullscreen(ctx)
		assert.ErrorIs(t, err, failing)
		assert.Zero(t, second.calls)
	})

	t.Run("Should report unsupported when nobody can serve", func(t *testing.T) {
		r := NewRouter(&fakeProvider{name: "a", err: ErrUnsupported})
		_, err := r.CaptureRegion(ctx, geometry.R(0, 0, 1, 1))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("Should close every provider", func(t *testing.T) {
		a, b := &fakeProvider{name: "a"}, &fakeProvider{name: "b"}
		r := NewRouter(a, b)
		require.NoError(t, r.Close())
		assert.True(t, a.closed)
		assert.True(t, b.closed)
	})
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open("carrier-pigeon", false)
	assert.Error(t, err)
}

// scriptedRunner answers kdotool and spectacle invocations from canned output
type scriptedRunner struct {
	mu    sync.Mutex
	calls []string
	shot  image.Image
}

func (s *scriptedRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name+" "+strings.Join(args, " "))
	s.mu.Unlock()

	if name == "spectacle" {
		path := args[len(args)-1]
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return nil, png.Encode(f, s.shot)
	}

	switch args[0] {
	case "search":
		return []byte("{aaaa}\n{bbbb}\n\n{empty}\n"), nil
	case "getwindowname":
		switch args[1] {
		case "{aaaa}":
			return []byte("Terminal\n"), nil
		case "{bbbb}":
			return []byte("Browser\n"), nil
		}
		return nil, nil
	case "getwindowclassname":
		if args[1] == "{aaaa}" {
			return []byte("konsole\n"), nil
		}
		return nil, nil
	case "getwindowgeometry":
		return []byte("Window {aaaa}\n  Position: 10,20\n  Geometry: 800x600\n"), nil
	case "windowactivate":
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected command %s", args[0])
}

func TestKWinProvider(t *testing.T) {
	runner := &scriptedRunner{shot: testImage(40, 30)}
	p := newKWinProvider(runner.run, true)
	p.tempDir = t.TempDir()
	ctx := context.Background()

	t.Run("Should capture the screen through spectacle", func(t *testing.T) {
		img, err := p.CaptureFullscreen(ctx)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())

		img, err = p.CaptureRegion(ctx, geometry.R(5, 5, 10, 10))
		require.NoError(t, err)
		assert.Equal(t, 10, img.Bounds().Dx())

		entries, err := os.ReadDir(p.tempDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "should remove spectacle output")
	})

	t.Run("Should list windows with titles", func(t *testing.T) {
		windows, err := p.ListWindows(ctx)
		require.NoError(t, err)
		require.Len(t, windows, 2)
		assert.Equal(t, "Terminal", windows[0].Title)
		assert.Equal(t, "konsole", windows[0].AppName)
		assert.Equal(t, geometry.R(10, 20, 800, 600), windows[0].Bounds)
		assert.Equal(t, hashWindowID("{aaaa}"), windows[0].ID)
	})

	t.Run("Should raise a listed window before capturing it", func(t *testing.T) {
		_, err := p.CaptureWindow(ctx, hashWindowID("{bbbb}"))
		require.NoError(t, err)

		runner.mu.Lock()
		calls := strings.Join(runner.calls, "\n")
		runner.mu.Unlock()
		assert.Contains(t, calls, "kdotool windowactivate {bbbb}")
		assert.Contains(t, calls, "--activewindow")
	})

	t.Run("Should reject unknown windows", func(t *testing.T) {
		_, err := p.CaptureWindow(ctx, 12345)
		assert.ErrorIs(t, err, ErrWindowNotFound)
	})

	t.Run("Should report unsupported without kdotool", func(t *testing.T) {
		bare := newKWinProvider(runner.run, false)
		_, err := bare.ListWindows(ctx)
		assert.ErrorIs(t, err, ErrUnsupported)
		_, err = bare.CaptureWindow(ctx, 1)
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestParseKdotoolGeometry(t *testing.T) {
	assert.Equal(t, geometry.R(-5, 0, 1920, 1080), parseKdotoolGeometry("Window x\n  Position: -5,0\n  Geometry: 1920x1080"))
	assert.Equal(t, geometry.Rect{}, parseKdotoolGeometry(""))
}
