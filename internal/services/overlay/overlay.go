// Package overlay draws detections onto camera frames and converts the result
// into an RGBA image sized for the display.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/helpers"
	"intersection-worker-go/internal/models"
)

var boxColors = map[string]color.RGBA{
	"car":       {R: 0, G: 140, B: 255, A: 255},
	"truck":     {R: 0, G: 100, B: 255, A: 255},
	"bus":       {R: 0, G: 200, B: 255, A: 255},
	"motorbike": {R: 255, G: 0, B: 255, A: 255},
	"default":   {R: 128, G: 128, B: 128, A: 255},
}

type Renderer struct {
	width      int
	height     int
	labels     []string
	showBanner bool
}

func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{
		width:      cfg.DisplayWidth,
		height:     cfg.DisplayHeight,
		labels:     cfg.VehicleLabels,
		showBanner: true,
	}
}

// Annotate draws boxes and the vehicle count on frame, converts BGR to RGBA
// and resizes to fit the display. frame.Data is modified in place.
func (r *Renderer) Annotate(frame *models.Frame, detections []models.Detection, vehicleCount int) (*image.RGBA, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("overlay: empty frame")
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("overlay: frame to mat: %w", err)
	}
	defer mat.Close()

	r.drawDetections(&mat, detections)
	if r.showBanner {
		drawVehicleBanner(&mat, vehicleCount)
	}

	w, h := helpers.FitWithin(frame.Width, frame.Height, r.width, r.height)
	if w != frame.Width || h != frame.Height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
		return toRGBA(resized)
	}
	return toRGBA(mat)
}

// drawDetections outlines vehicle detections with corner accents. Other
// classes are not drawn.
func (r *Renderer) drawDetections(mat *gocv.Mat, detections []models.Detection) {
	width, height := mat.Cols(), mat.Rows()
	for _, det := range detections {
		if !det.IsVehicle(r.labels) {
			continue
		}
		x1 := max(0, min(width-2, det.BBox[0]))
		y1 := max(0, min(height-2, det.BBox[1]))
		x2 := max(x1+1, min(width-1, det.BBox[2]))
		y2 := max(y1+1, min(height-1, det.BBox[3]))

		detColor, ok := boxColors[det.Label]
		if !ok {
			detColor = boxColors["default"]
		}
		gocv.Rectangle(mat, image.Rect(x1, y1, x2, y2), detColor, 2)
		drawCorners(mat, x1, y1, x2, y2, detColor)

		label := fmt.Sprintf("%s %.2f", det.Label, det.Score)
		gocv.PutText(mat, label, image.Pt(x1, max(12, y1-6)), gocv.FontHersheySimplex, 0.5, detColor, 1)
	}
}

func drawCorners(mat *gocv.Mat, x1, y1, x2, y2 int, c color.RGBA) {
	const length, thickness = 15, 3
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1+length, y1), c, thickness)
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1, y1+length), c, thickness)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2-length, y1), c, thickness)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2, y1+length), c, thickness)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1+length, y2), c, thickness)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1, y2-length), c, thickness)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2-length, y2), c, thickness)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2, y2-length), c, thickness)
}

func drawVehicleBanner(mat *gocv.Mat, count int) {
	drawTextEnhanced(mat, fmt.Sprintf("Vehicles: %d", count), 15, 35, vehicleCountColor(count), 0.8, 2)
}

// drawTextEnhanced puts text on a dark padded background with a drop shadow
func drawTextEnhanced(mat *gocv.Mat, text string, x, y int, textColor color.RGBA, fontScale float64, thickness int) {
	fontFace := gocv.FontHersheySimplex
	textSize := gocv.GetTextSize(text, fontFace, fontScale, thickness)

	padding := 8
	bgRect := image.Rect(x-padding, y-textSize.Y-padding, x+textSize.X+padding, y+padding)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 0, G: 0, B: 0, A: 200}, -1)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 40, G: 40, B: 40, A: 255}, 1)

	gocv.PutText(mat, text, image.Pt(x+1, y+1), fontFace, fontScale, color.RGBA{A: 100}, thickness)
	gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, thickness)
}

// vehicleCountColor is gray for an empty road, green for light traffic and red above five
func vehicleCountColor(count int) color.RGBA {
	switch {
	case count == 0:
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	case count <= 5:
		return color.RGBA{R: 0, G: 255, B: 0, A: 255}
	default:
		return color.RGBA{R: 255, G: 0, B: 0, A: 255}
	}
}

// toRGBA converts a BGR mat into a freshly allocated image
func toRGBA(bgr gocv.Mat) (*image.RGBA, error) {
	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(bgr, &rgba, gocv.ColorBGRToRGBA)

	img := image.NewRGBA(image.Rect(0, 0, rgba.Cols(), rgba.Rows()))
	data := rgba.ToBytes()
	if len(data) != len(img.Pix) {
		return nil, fmt.Errorf("overlay: unexpected RGBA size %d, want %d", len(data), len(img.Pix))
	}
	copy(img.Pix, data)
	return img, nil
}
