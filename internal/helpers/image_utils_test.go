package helpers

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intersection-worker-go/internal/models"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name                  string
		w, h, maxW, maxH      int
		wantWidth, wantHeight int
	}{
		{name: "downscale width bound", w: 1280, h: 720, maxW: 640, maxH: 480, wantWidth: 640, wantHeight: 360},
		{name: "downscale height bound", w: 1000, h: 1000, maxW: 640, maxH: 480, wantWidth: 480, wantHeight: 480},
		{name: "no upscale", w: 320, h: 240, maxW: 640, maxH: 480, wantWidth: 320, wantHeight: 240},
		{name: "zero bounds", w: 320, h: 240, maxW: 0, maxH: 0, wantWidth: 320, wantHeight: 240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantWidth, w)
			assert.Equal(t, tt.wantHeight, h)
		})
	}
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, MediumQuality, ClampQuality(0))
	assert.Equal(t, 1, ClampQuality(-5))
	assert.Equal(t, 100, ClampQuality(250))
	assert.Equal(t, 80, ClampQuality(80))
}

func TestEncodeFrameJPEG(t *testing.T) {
	frame := &models.Frame{Data: make([]byte, 8*6*3), Width: 8, Height: 6}
	jpeg, err := EncodeFrameJPEG(frame, 80)
	require.NoError(t, err)
	assert.True(t, IsJPEGData(jpeg))

	// JPEG input passes through untouched
	same, err := EncodeFrameJPEG(&models.Frame{Data: jpeg}, 80)
	require.NoError(t, err)
	assert.Equal(t, jpeg, same)

	_, err = EncodeFrameJPEG(&models.Frame{Data: []byte{1, 2, 3, 4}, Width: 8, Height: 6}, 80)
	assert.Error(t, err)
}

func TestEncodeImageJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	jpeg, err := EncodeImageJPEG(img, 90)
	require.NoError(t, err)
	assert.True(t, IsJPEGData(jpeg))

	_, err = EncodeImageJPEG(image.NewRGBA(image.Rect(0, 0, 0, 0)), 90)
	assert.Error(t, err)
}
