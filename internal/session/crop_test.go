package session

import (
	"image"
	"math"
	"testing"

	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCrop(t *testing.T) {
	s := New(compositor.DefaultState())
	assert.ErrorIs(t, s.StartCrop(), ErrNoScreenshot)

	require.NoError(t, s.SetScreenshot(screenshot(200, 100)))
	require.NoError(t, s.SetTool(ToolCrop))

	c := s.Crop()
	assert.True(t, c.Active)
	assert.Equal(t, geometry.R(20, 20, 200, 100), c.Rect)
	assert.InDelta(t, 20.0/240.0, c.PaddingFraction, 1e-9)

	require.NoError(t, s.SetTool(ToolSelect))
	assert.False(t, s.Crop().Active, "switching tools cancels the crop")
}

func TestUpdateCropKeepsAspect(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.StartCrop())

	square := 1.0
	s.SetCropAspect(&square)
	c := s.Crop()
	require.NotNil(t, c.AspectRatio)
	assert.InDelta(t, 1.0, c.Rect.Width/c.Rect.Height, geometry.AspectTolerance)

	for _, h := range geometry.Handles {
		r, err := s.UpdateCrop(h, geometry.Pt(-7, 13))
		require.NoError(t, err)
		if r.Height > 0 {
			assert.InDelta(t, 1.0, r.Width/r.Height, geometry.AspectTolerance, string(h))
		}
	}

	s.SetCropAspect(nil)
	assert.Nil(t, s.Crop().AspectRatio)

	s.CancelCrop()
	_, err := s.UpdateCrop(geometry.HandleBottomRight, geometry.Pt(1, 1))
	assert.ErrorIs(t, err, ErrCropInactive)
}

func TestApplyCrop(t *testing.T) {
	s := newSession(t)
	original := s.Snapshot().State.Screenshot

	assert.ErrorIs(t, s.ApplyCrop(), ErrCropInactive)

	require.NoError(t, s.StartCrop())
	require.NoError(t, s.SetCropRect(geometry.R(30, 25, 80, 40)))
	require.NoError(t, s.ApplyCrop())

	doc := s.Snapshot()
	assert.Equal(t, image.Rect(0, 0, 80, 40), doc.State.Screenshot.Bounds())
	assert.False(t, s.Crop().Active)

	require.NoError(t, s.Undo())
	assert.Same(t, original, s.Snapshot().State.Screenshot)
	require.NoError(t, s.Redo())
	assert.Equal(t, 80, s.Snapshot().State.Screenshot.Bounds().Dx())
}

func TestCropBounds(t *testing.T) {
	shot := geometry.R(20, 20, 200, 100)

	tests := []struct {
		message string
		crop    geometry.Rect
		want    image.Rectangle
	}{
		{message: "map canvas coordinates to screenshot pixels", crop: geometry.R(30, 25, 80, 40), want: image.Rect(10, 5, 90, 45)},
		{message: "clamp crops that start in the padding", crop: geometry.R(0, 0, 50, 50), want: image.Rect(0, 0, 50, 50)},
		{message: "clamp crops that overrun the screenshot", crop: geometry.R(200, 100, 100, 100), want: image.Rect(180, 80, 200, 100)},
		{message: "reject crops outside the screenshot", crop: geometry.R(300, 300, 10, 10), want: image.Rectangle{}},
		{message: "accept reversed rects", crop: geometry.R(110, 65, -80, -40), want: image.Rect(10, 5, 90, 45)},
	}
	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, cropBounds(tt.crop, shot))
		})
	}
}

func TestApplyCropRejectsEmptyRect(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.StartCrop())
	require.NoError(t, s.SetCropRect(geometry.R(500, 500, 10, 10)))
	assert.ErrorIs(t, s.ApplyCrop(), ErrInvalidCrop)
}

func TestAdjustPaddingForAspect(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.AdjustPaddingForAspect(1))

	got := s.Snapshot().State.Padding
	want := geometry.PaddingForAspect(geometry.Size{Width: 200, Height: 100}, 20, 1)
	assert.InDelta(t, want, got, 1e-9)
	assert.False(t, math.IsNaN(got))

	require.NoError(t, s.Undo())
	assert.Equal(t, 20.0, s.Snapshot().State.Padding)
}
