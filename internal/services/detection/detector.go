package detection

import (
	"context"
	"errors"
	"time"

	"intersection-worker-go/internal/models"
)

// ErrDetectorUnavailable is returned when no inference backend can serve a request
var ErrDetectorUnavailable = errors.New("detector unavailable")

// Detector runs object detection on a single frame. Implementations are
// synchronous and hold no per-frame state between calls.
type Detector interface {
	Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error)
}

// DetectorFunc adapts a function to Detector
type DetectorFunc func(ctx context.Context, frame *models.Frame) ([]models.Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	return f(ctx, frame)
}

// Counter wraps a Detector and reduces its output to a vehicle count
type Counter struct {
	detector Detector
	labels   []string
}

func NewCounter(detector Detector, labels []string) *Counter {
	if len(labels) == 0 {
		labels = models.DefaultVehicleLabels
	}
	return &Counter{detector: detector, labels: labels}
}

// Labels returns the labels counted as vehicles
func (c *Counter) Labels() []string {
	return c.labels
}

// Run detects once on frame and returns the full result including the vehicle count
func (c *Counter) Run(ctx context.Context, frame *models.Frame) (models.DetectionResult, error) {
	start := time.Now()
	result := models.DetectionResult{}
	if frame != nil {
		result.FrameSeq = frame.Seq
	}

	dets, err := c.detector.Detect(ctx, frame)
	result.ProcessingTime = time.Since(start)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	result.Detections = dets
	result.VehicleCount = models.CountVehicles(dets, c.labels)
	return result, nil
}
