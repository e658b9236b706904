package session

import (
	"image"
	"math"

	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/disintegration/imaging"
)

// CropState is the transient crop selection, in canvas coordinates.
// PaddingFraction is the padding share of the canvas width when the crop
// started.
type CropState struct {
	Active          bool          `json:"active"`
	Rect            geometry.Rect `json:"rect"`
	AspectRatio     *float64      `json:"aspect_ratio,omitempty"`
	PaddingFraction float64       `json:"padding_fraction"`
}

// Crop returns the current crop state
func (s *Session) Crop() CropState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.crop
	if c.AspectRatio != nil {
		r := *c.AspectRatio
		c.AspectRatio = &r
	}
	return c
}

// StartCrop selects the whole screenshot as the crop rectangle
func (s *Session) StartCrop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.doc.State
	if state.Screenshot == nil {
		return ErrNoScreenshot
	}
	size := state.ScreenshotSize()
	rect := state.ScreenshotRect()
	pad := rect.X

	s.crop = CropState{
		Active:          true,
		Rect:            rect,
		AspectRatio:     s.crop.AspectRatio,
		PaddingFraction: pad / (size.Width + 2*pad),
	}
	if s.crop.AspectRatio != nil {
		s.crop.Rect = geometry.FitAspect(s.crop.Rect, *s.crop.AspectRatio)
	}
	return nil
}

// SetCropRect replaces the crop rectangle
func (s *Session) SetCropRect(r geometry.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.crop.Active {
		return ErrCropInactive
	}
	s.crop.Rect = r.Normalized()
	return nil
}

// UpdateCrop drags handle by delta, honouring the crop aspect ratio
func (s *Session) UpdateCrop(handle geometry.Handle, delta geometry.Point) (geometry.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.crop.Active {
		return geometry.Rect{}, ErrCropInactive
	}
	s.crop.Rect = geometry.ResizeRectByHandle(s.crop.Rect, handle, delta, s.crop.AspectRatio)
	return s.crop.Rect, nil
}

// SetCropAspect constrains the crop to ratio (width/height); nil is freeform.
// An active crop rect that misses the ratio is refitted from its origin.
func (s *Session) SetCropAspect(ratio *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ratio == nil || *ratio <= 0 {
		s.crop.AspectRatio = nil
		return
	}
	r := *ratio
	s.crop.AspectRatio = &r
	if s.crop.Active && s.crop.Rect.Width > 0 && s.crop.Rect.Height > 0 {
		s.crop.Rect = geometry.FitAspect(s.crop.Rect, r)
	}
}

// CancelCrop discards the crop selection
func (s *Session) CancelCrop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crop = CropState{}
}

// ApplyCrop cuts the screenshot to the crop rectangle as an undoable edit and
// ends the crop
func (s *Session) ApplyCrop() error {
	var bounds image.Rectangle
	err := s.do(func(doc *Document) (Command, error) {
		if !s.crop.Active {
			return nil, ErrCropInactive
		}
		src := doc.State.Screenshot
		if src == nil {
			return nil, ErrNoScreenshot
		}
		bounds = cropBounds(s.crop.Rect, doc.State.ScreenshotRect())
		if bounds.Empty() {
			return nil, ErrInvalidCrop
		}
		s.crop = CropState{}
		return ReplaceScreenshot{From: src, To: imaging.Crop(src, bounds.Add(src.Bounds().Min))}, nil
	})
	if err != nil {
		return err
	}

	logger.WithComponent("session").Info().
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Msg("Applied crop")
	return nil
}

// cropBounds converts a canvas crop rect into screenshot pixel bounds,
// clamped to the screenshot
func cropBounds(crop, shot geometry.Rect) image.Rectangle {
	crop = crop.Normalized()
	x := math.Max(0, crop.X-shot.X)
	y := math.Max(0, crop.Y-shot.Y)
	w := math.Min(crop.Width, shot.Width-x)
	h := math.Min(crop.Height, shot.Height-y)
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	x0, y0 := int(math.Round(x)), int(math.Round(y))
	r := image.Rect(x0, y0, x0+int(math.Round(w)), y0+int(math.Round(h)))
	return r.Intersect(image.Rect(0, 0, int(math.Round(shot.Width)), int(math.Round(shot.Height))))
}

// AdjustPaddingForAspect sets the padding so the padded canvas matches ratio
// while keeping the padding share of the canvas width
func (s *Session) AdjustPaddingForAspect(ratio float64) error {
	return s.do(func(doc *Document) (Command, error) {
		state := doc.State
		if state.Screenshot == nil {
			return nil, ErrNoScreenshot
		}
		to := geometry.PaddingForAspect(state.ScreenshotSize(), state.Padding, ratio)
		return SetPadding{From: state.Padding, To: compositor.State{Padding: to}.Clamp().Padding}, nil
	})
}
