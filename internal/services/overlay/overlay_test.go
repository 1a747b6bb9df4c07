package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/models"
)

func testRenderer() *Renderer {
	return NewRenderer(&config.Config{
		DisplayWidth:  64,
		DisplayHeight: 48,
		VehicleLabels: models.DefaultVehicleLabels,
	})
}

func TestAnnotateResizesToDisplay(t *testing.T) {
	frame := &models.Frame{Data: make([]byte, 128*72*3), Width: 128, Height: 72}
	dets := []models.Detection{
		{Label: "car", Score: 0.9, BBox: [4]int{10, 10, 60, 50}},
		{Label: "person", Score: 0.8, BBox: [4]int{70, 5, 90, 60}},
		{Label: "bus", Score: 0.7, BBox: [4]int{-20, -20, 500, 500}},
	}

	img, err := testRenderer().Annotate(frame, dets, 2)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 36, img.Bounds().Dy())

	// alpha is opaque after the conversion
	assert.Equal(t, uint8(255), img.Pix[3])
}

func TestAnnotateDrawsVehiclesOnly(t *testing.T) {
	r := NewRenderer(&config.Config{
		DisplayWidth:  200,
		DisplayHeight: 160,
		VehicleLabels: models.DefaultVehicleLabels,
	})
	frame := &models.Frame{Data: make([]byte, 200*160*3), Width: 200, Height: 160}
	dets := []models.Detection{
		{Label: "car", Score: 0.9, BBox: [4]int{20, 100, 80, 150}},
		{Label: "person", Score: 0.9, BBox: [4]int{120, 100, 180, 150}},
	}

	img, err := r.Annotate(frame, dets, 1)
	require.NoError(t, err)

	car := img.RGBAAt(50, 100)
	assert.NotZero(t, uint32(car.R)+uint32(car.G)+uint32(car.B), "car box edge should be drawn")

	person := img.RGBAAt(150, 100)
	assert.Zero(t, uint32(person.R)+uint32(person.G)+uint32(person.B), "person box must not be drawn")
}

func TestAnnotateKeepsSmallFrames(t *testing.T) {
	frame := &models.Frame{Data: make([]byte, 32*24*3), Width: 32, Height: 24}
	img, err := testRenderer().Annotate(frame, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestAnnotateEmptyFrame(t *testing.T) {
	_, err := testRenderer().Annotate(&models.Frame{}, nil, 0)
	assert.Error(t, err)
}

func TestVehicleCountColor(t *testing.T) {
	assert.Equal(t, uint8(128), vehicleCountColor(0).R)
	assert.Equal(t, uint8(255), vehicleCountColor(3).G)
	assert.Equal(t, uint8(255), vehicleCountColor(9).R)
}
