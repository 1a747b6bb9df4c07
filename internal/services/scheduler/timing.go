package scheduler

import (
	"math"
	"time"

	"intersection-worker-go/internal/config"
)

// Timing holds the phase duration rules
type Timing struct {
	GreenPerVehicle float64 // seconds of green per counted vehicle
	MinGreen        float64 // seconds
	Yellow          float64 // seconds
	Tick            time.Duration
	Pause           time.Duration
}

// DefaultTiming is 3s of green per vehicle, at least 2s, 4s yellow, 0.1s ticks, 1s pause
func DefaultTiming() Timing {
	return Timing{
		GreenPerVehicle: 3.0,
		MinGreen:        2.0,
		Yellow:          4.0,
		Tick:            100 * time.Millisecond,
		Pause:           time.Second,
	}
}

func TimingFromConfig(cfg *config.Config) Timing {
	t := Timing{
		GreenPerVehicle: cfg.GreenSecondsPerVehicle,
		MinGreen:        cfg.MinGreenSeconds,
		Yellow:          cfg.YellowSeconds,
		Tick:            cfg.CountdownTick,
		Pause:           cfg.PhasePause,
	}
	if t.Tick <= 0 {
		t.Tick = DefaultTiming().Tick
	}
	return t
}

// GreenDuration returns max(count*GreenPerVehicle, MinGreen) in seconds
func (t Timing) GreenDuration(vehicleCount int) float64 {
	if vehicleCount < 0 {
		vehicleCount = 0
	}
	return math.Max(float64(vehicleCount)*t.GreenPerVehicle, t.MinGreen)
}

// YellowDuration is fixed regardless of the vehicle count
func (t Timing) YellowDuration() float64 {
	return t.Yellow
}

// ticks converts seconds into a whole number of countdown ticks
func (t Timing) ticks(seconds float64) int {
	return int(math.Round(seconds / t.Tick.Seconds()))
}

// remainingAt is the displayed remaining time with i ticks left
func (t Timing) remainingAt(i int) float64 {
	return math.Round(float64(i)*t.Tick.Seconds()*1000) / 1000
}
