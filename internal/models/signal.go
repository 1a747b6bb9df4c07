package models

import "fmt"

// Color is the lit lamp of a signal head
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
)

// String returns the string representation of Color
func (c Color) String() string {
	return string(c)
}

// IsValid checks if the color is one of the three lamps
func (c Color) IsValid() bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen:
		return true
	default:
		return false
	}
}

// HeadCount is the number of signal heads at the intersection
const HeadCount = 4

// HeadState is the displayed state of one signal head
type HeadState struct {
	Index     int     `json:"index"`
	Color     Color   `json:"color"`
	Remaining float64 `json:"remaining"`
}

// Countdown formats the remaining time the way the heads display it
func (s HeadState) Countdown() string {
	if s.Color == ColorRed || s.Remaining <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", s.Remaining)
}

// IntersectionSnapshot is a consistent view of scheduler and head state
type IntersectionSnapshot struct {
	Running          bool                 `json:"running"`
	CurrentIndex     int                  `json:"current_index"`
	CycleID          string               `json:"cycle_id,omitempty"`
	Heads            [HeadCount]HeadState `json:"heads"`
	LastVehicleCount int                  `json:"last_vehicle_count"`
	LastGreenSeconds float64              `json:"last_green_seconds"`
	Degraded         bool                 `json:"degraded"`
	DegradedReason   string               `json:"degraded_reason,omitempty"`
}

// NonRedCount returns how many heads are currently green or yellow
func (s IntersectionSnapshot) NonRedCount() int {
	n := 0
	for _, h := range s.Heads {
		if h.Color != ColorRed {
			n++
		}
	}
	return n
}
