package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/disintegration/imaging"
)

// FileProvider serves an image file as the "screen". It is used to edit
// existing screenshots and as a headless backend.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider reading path on every capture
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Name returns the provider name
func (p *FileProvider) Name() string {
	return "file"
}

// Close is a no-op
func (p *FileProvider) Close() error {
	return nil
}

// CaptureFullscreen decodes the whole file
func (p *FileProvider) CaptureFullscreen(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(p.Path, imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, p.Path)
		}
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrCaptureFailed, p.Path, err)
	}
	return img, nil
}

// CaptureRegion decodes the file and crops rect out of it
func (p *FileProvider) CaptureRegion(ctx context.Context, rect geometry.Rect) (image.Image, error) {
	full, err := p.CaptureFullscreen(ctx)
	if err != nil {
		return nil, err
	}
	return cropRegion(full, rect)
}

// CaptureWindow is not supported by files
func (p *FileProvider) CaptureWindow(context.Context, uint32) (image.Image, error) {
	return nil, fmt.Errorf("%w: files have no windows", ErrUnsupported)
}

// ListWindows returns no windows
func (p *FileProvider) ListWindows(context.Context) ([]WindowInfo, error) {
	return []WindowInfo{}, nil
}
