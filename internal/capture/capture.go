package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/disintegration/imaging"
)

var (
	ErrPermissionDenied = errors.New("screen capture permission denied")
	ErrInvalidBounds    = errors.New("invalid capture bounds")
	ErrCaptureFailed    = errors.New("screen capture failed")
	ErrWindowNotFound   = errors.New("window not found")
	ErrUnsupported      = errors.New("operation not supported by capture backend")
)

// Thumbnail dimensions used by window listings
const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 200
)

// WindowInfo describes a capturable window. Bounds are in screen pixels.
type WindowInfo struct {
	ID        uint32        `json:"id"`
	Title     string        `json:"title"`
	AppName   string        `json:"app_name"`
	Bounds    geometry.Rect `json:"bounds"`
	Thumbnail image.Image   `json:"-"`
}

// Provider captures raw screenshots from a display backend
type Provider interface {
	// Name returns a human-readable backend name
	Name() string

	// CaptureRegion captures rect in screen coordinates
	CaptureRegion(ctx context.Context, rect geometry.Rect) (image.Image, error)

	// CaptureFullscreen captures the whole screen
	CaptureFullscreen(ctx context.Context) (image.Image, error)

	// CaptureWindow captures the contents of window id
	CaptureWindow(ctx context.Context, id uint32) (image.Image, error)

	// ListWindows enumerates capturable windows
	ListWindows(ctx context.Context) ([]WindowInfo, error)

	// Close releases backend resources
	Close() error
}

// pixelBounds converts rect to whole pixels, rejecting empty or non-finite
// rects and rects reaching outside screen
func pixelBounds(rect geometry.Rect, screen image.Rectangle) (image.Rectangle, error) {
	rect = rect.Normalized()
	for _, v := range []float64{rect.X, rect.Y, rect.Width, rect.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return image.Rectangle{}, fmt.Errorf("%w: non-finite rect", ErrInvalidBounds)
		}
	}

	r := image.Rect(
		int(math.Floor(rect.MinX())), int(math.Floor(rect.MinY())),
		int(math.Ceil(rect.MaxX())), int(math.Ceil(rect.MaxY())),
	)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: empty rect %v", ErrInvalidBounds, r)
	}
	if !r.In(screen) {
		return image.Rectangle{}, fmt.Errorf("%w: %v outside screen %v", ErrInvalidBounds, r, screen)
	}
	return r, nil
}

// cropRegion cuts rect out of a full-screen capture
func cropRegion(full image.Image, rect geometry.Rect) (image.Image, error) {
	b := full.Bounds()
	r, err := pixelBounds(rect, image.Rect(0, 0, b.Dx(), b.Dy()))
	if err != nil {
		return nil, err
	}
	return imaging.Crop(full, r.Add(b.Min)), nil
}

// thumbnail scales img down for window listings
func thumbnail(img image.Image) image.Image {
	return imaging.Fit(img, ThumbnailWidth, ThumbnailHeight, imaging.Lanczos)
}
