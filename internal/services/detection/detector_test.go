package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intersection-worker-go/internal/models"
)

func TestCounterRun(t *testing.T) {
	det := DetectorFunc(func(ctx context.Context, f *models.Frame) ([]models.Detection, error) {
		return []models.Detection{
			{Label: "car"}, {Label: "bus"}, {Label: "person"}, {Label: "motorbike"},
		}, nil
	})

	c := NewCounter(det, nil)
	res, err := c.Run(context.Background(), &models.Frame{Seq: 7, Data: []byte{1}, Width: 1, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.FrameSeq)
	assert.Equal(t, 3, res.VehicleCount)
	assert.Len(t, res.Detections, 4)
	assert.Equal(t, models.DefaultVehicleLabels, c.Labels())
}

func TestCounterRunError(t *testing.T) {
	boom := errors.New("inference crashed")
	c := NewCounter(DetectorFunc(func(ctx context.Context, f *models.Frame) ([]models.Detection, error) {
		return nil, boom
	}), []string{"car"})

	res, err := c.Run(context.Background(), nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, res.VehicleCount)
	assert.Equal(t, "inference crashed", res.ErrorMessage)
}
