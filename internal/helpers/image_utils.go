package helpers

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"intersection-worker-go/internal/models"
)

const (
	// JPEG quality settings
	HighQuality   = 95
	MediumQuality = 75
	LowQuality    = 50
)

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// ClampQuality keeps a JPEG quality inside 1..100, using MediumQuality for zero
func ClampQuality(quality int) int {
	switch {
	case quality == 0:
		return MediumQuality
	case quality < 1:
		return 1
	case quality > 100:
		return 100
	default:
		return quality
	}
}

// FitWithin scales width x height down to fit maxWidth x maxHeight keeping
// the aspect ratio. Images are never upscaled.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return width, height
	}

	scaleX := float64(maxWidth) / float64(width)
	scaleY := float64(maxHeight) / float64(height)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	if scale >= 1.0 {
		return width, height
	}

	w := max(1, int(float64(width)*scale))
	h := max(1, int(float64(height)*scale))
	return w, h
}

// EncodeBGRToJPEG converts BGR raw bytes to JPEG format
func EncodeBGRToJPEG(bgrData []byte, width, height int, quality int) ([]byte, error) {
	if len(bgrData) == 0 {
		return nil, fmt.Errorf("empty BGR data")
	}
	if width <= 0 || height <= 0 || width*height*3 != len(bgrData) {
		return nil, fmt.Errorf("BGR length %d does not match %dx%d", len(bgrData), width, height)
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, bgrData)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from BGR data: %w", err)
	}
	defer mat.Close()

	return EncodeMatJPEG(mat, quality)
}

// EncodeFrameJPEG encodes a captured frame, passing JPEG data through as is
func EncodeFrameJPEG(frame *models.Frame, quality int) ([]byte, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}
	if IsJPEGData(frame.Data) {
		return frame.Data, nil
	}
	return EncodeBGRToJPEG(frame.Data, frame.Width, frame.Height, quality)
}

// EncodeImageJPEG encodes a display image (RGBA) as JPEG
func EncodeImageJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %w", err)
	}
	defer mat.Close()

	return EncodeMatJPEG(mat, quality)
}

// EncodeMatJPEG returns an owned copy of the encoded bytes
func EncodeMatJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, ClampQuality(quality)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// JPEGEncoder returns a frame encoder with a fixed quality
func JPEGEncoder(quality int) func(*models.Frame) ([]byte, error) {
	return func(frame *models.Frame) ([]byte, error) {
		return EncodeFrameJPEG(frame, quality)
	}
}
