package models

import (
	"time"

	"github.com/samber/lo"
)

// DefaultVehicleLabels are the detector class labels that count as vehicles
var DefaultVehicleLabels = []string{"car", "truck", "bus", "motorbike"}

// Detection represents a single object reported by the detector
type Detection struct {
	Label   string  `json:"label"`
	ClassID int     `json:"class_id"`
	Score   float32 `json:"score"`
	// BBox is x1, y1, x2, y2 in frame pixels
	BBox [4]int `json:"bbox"`
}

// IsVehicle reports whether the detection label is one of labels
func (d Detection) IsVehicle(labels []string) bool {
	return lo.Contains(labels, d.Label)
}

// CountVehicles returns the number of detections whose label is in labels.
// Every sample is independent: no deduplication or tracking across frames.
func CountVehicles(detections []Detection, labels []string) int {
	return lo.CountBy(detections, func(d Detection) bool {
		return d.IsVehicle(labels)
	})
}

// VehicleDetections filters detections down to vehicles
func VehicleDetections(detections []Detection, labels []string) []Detection {
	return lo.Filter(detections, func(d Detection, _ int) bool {
		return d.IsVehicle(labels)
	})
}

// DetectionResult is the ephemeral per-frame outcome of one detector call
type DetectionResult struct {
	FrameSeq       int64         `json:"frame_seq"`
	Detections     []Detection   `json:"detections"`
	VehicleCount   int           `json:"vehicle_count"`
	ProcessingTime time.Duration `json:"processing_time"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}
