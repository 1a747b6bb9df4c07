package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"intersection-worker-go/internal/models"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder(10)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	for _, n := range []int{2, 4, 4, 4, 5, 5, 7, 9} {
		r.ObservePhase(0, models.DetectionResult{VehicleCount: n}, float64(n)*3)
	}
	r.ObservePhase(1, models.DetectionResult{VehicleCount: 3}, 9)
	r.ObservePhase(2, models.DetectionResult{ErrorMessage: "camera unavailable"}, 2)

	snap := r.Snapshot()

	assert.Equal(t, 8, snap[0].Samples)
	assert.InDelta(t, 5.0, snap[0].MeanCount, 1e-9)
	// sample standard deviation of the classic 2,4,4,4,5,5,7,9 series
	assert.InDelta(t, math.Sqrt(32.0/7.0), snap[0].StdDevCount, 1e-9)
	assert.Equal(t, 9, snap[0].MaxCount)
	assert.Equal(t, 9, snap[0].LastCount)
	assert.Equal(t, 27.0, snap[0].LastGreenSeconds)
	assert.Equal(t, at, snap[0].LastSampledAt)

	assert.Equal(t, 1, snap[1].Samples)
	assert.Equal(t, 3.0, snap[1].MeanCount)
	assert.Equal(t, 0.0, snap[1].StdDevCount)

	assert.Equal(t, 0, snap[2].Samples)
	assert.Equal(t, 1, snap[2].Failures)
	assert.Equal(t, 2.0, snap[2].LastGreenSeconds)

	assert.Equal(t, ApproachStats{Index: 3}, snap[3])
}

func TestRecorderWindow(t *testing.T) {
	r := NewRecorder(3)
	for _, n := range []int{100, 1, 2, 3} {
		r.ObservePhase(1, models.DetectionResult{VehicleCount: n}, 0)
	}

	snap := r.Snapshot()
	assert.Equal(t, 3, snap[1].Samples)
	assert.InDelta(t, 2.0, snap[1].MeanCount, 1e-9)
	assert.Equal(t, 3, snap[1].MaxCount)
}

func TestRecorderIgnoresUnknownHead(t *testing.T) {
	r := NewRecorder(0)
	r.ObservePhase(7, models.DetectionResult{VehicleCount: 1}, 3)
	r.ObservePhase(-1, models.DetectionResult{VehicleCount: 1}, 3)
	for _, s := range r.Snapshot() {
		assert.Equal(t, 0, s.Samples)
	}

	r.ObservePhase(0, models.DetectionResult{VehicleCount: 1}, 3)
	r.Reset()
	assert.Equal(t, 0, r.Snapshot()[0].Samples)
}
