// Package stats keeps per-approach vehicle count statistics over a sliding
// window of sampled phases.
package stats

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"intersection-worker-go/internal/models"
)

const DefaultWindow = 100

// ApproachStats summarizes the sampled counts for one head
type ApproachStats struct {
	Index            int       `json:"index"`
	Samples          int       `json:"samples"`
	Failures         int       `json:"failures"`
	MeanCount        float64   `json:"mean_count"`
	StdDevCount      float64   `json:"stddev_count"`
	MaxCount         int       `json:"max_count"`
	LastCount        int       `json:"last_count"`
	LastGreenSeconds float64   `json:"last_green_seconds"`
	LastSampledAt    time.Time `json:"last_sampled_at,omitempty"`
}

type approach struct {
	counts    []float64
	failures  int
	lastCount int
	lastGreen float64
	lastAt    time.Time
}

// Recorder implements scheduler.PhaseObserver
type Recorder struct {
	mu         sync.RWMutex
	window     int
	now        func() time.Time
	approaches [models.HeadCount]approach
}

func NewRecorder(window int) *Recorder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Recorder{window: window, now: time.Now}
}

// ObservePhase records one sampled phase. Failed samples count as failures
// and are kept out of the count distribution.
func (r *Recorder) ObservePhase(index int, result models.DetectionResult, greenSeconds float64) {
	if index < 0 || index >= models.HeadCount {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a := &r.approaches[index]
	a.lastGreen = greenSeconds
	a.lastAt = r.now()
	if result.ErrorMessage != "" {
		a.failures++
		a.lastCount = 0
		return
	}

	a.lastCount = result.VehicleCount
	a.counts = append(a.counts, float64(result.VehicleCount))
	if len(a.counts) > r.window {
		a.counts = a.counts[len(a.counts)-r.window:]
	}
}

// Snapshot computes the statistics for all four approaches
func (r *Recorder) Snapshot() [models.HeadCount]ApproachStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out [models.HeadCount]ApproachStats
	for i := range r.approaches {
		a := &r.approaches[i]
		s := ApproachStats{
			Index:            i,
			Samples:          len(a.counts),
			Failures:         a.failures,
			LastCount:        a.lastCount,
			LastGreenSeconds: a.lastGreen,
			LastSampledAt:    a.lastAt,
		}
		switch len(a.counts) {
		case 0:
		case 1:
			s.MeanCount = a.counts[0]
			s.MaxCount = int(a.counts[0])
		default:
			s.MeanCount, s.StdDevCount = stat.MeanStdDev(a.counts, nil)
			s.MaxCount = int(floats.Max(a.counts))
		}
		out[i] = s
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approaches = [models.HeadCount]approach{}
}
