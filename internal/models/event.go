package models

import "time"

// EventType identifies what happened in the scheduler
type EventType string

const (
	EventCycleStarted   EventType = "cycle_started"
	EventPhaseSampled   EventType = "phase_sampled"
	EventHeadChanged    EventType = "head_changed"
	EventPhaseCompleted EventType = "phase_completed"
	EventCycleCompleted EventType = "cycle_completed"
	EventStopped        EventType = "stopped"
	EventDegraded       EventType = "degraded"
	EventRecovered      EventType = "recovered"
)

// IntersectionEvent is published by the scheduler on every state transition
type IntersectionEvent struct {
	ID            string               `json:"id"`
	Type          EventType            `json:"type"`
	CycleID       string               `json:"cycle_id,omitempty"`
	HeadIndex     int                  `json:"head_index"`
	Color         Color                `json:"color,omitempty"`
	VehicleCount  int                  `json:"vehicle_count"`
	GreenSeconds  float64              `json:"green_seconds,omitempty"`
	YellowSeconds float64              `json:"yellow_seconds,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	Snapshot      IntersectionSnapshot `json:"snapshot"`
	Timestamp     time.Time            `json:"timestamp"`
}

// ControlCommand is a remote start/stop request
type ControlCommand struct {
	Command string `json:"command"`
}

const (
	CommandStart = "start"
	CommandStop  = "stop"
)
