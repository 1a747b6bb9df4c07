package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CAMERA_SOURCE", "")
	t.Setenv("VEHICLE_LABELS", "")

	cfg := Load()

	assert.Equal(t, "0", cfg.CameraSource)
	assert.Equal(t, []string{"car", "truck", "bus", "motorbike"}, cfg.VehicleLabels)
	assert.Equal(t, 3.0, cfg.GreenSecondsPerVehicle)
	assert.Equal(t, 2.0, cfg.MinGreenSeconds)
	assert.Equal(t, 4.0, cfg.YellowSeconds)
	assert.Equal(t, 100*time.Millisecond, cfg.CountdownTick)
	assert.Equal(t, time.Second, cfg.PhasePause)
	assert.Equal(t, 10*time.Millisecond, cfg.DisplayRefreshInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CAMERA_SOURCE", "rtsp://cam/1")
	t.Setenv("VEHICLE_LABELS", " car, bus ,,")
	t.Setenv("YELLOW_SECONDS", "3.5")
	t.Setenv("COUNTDOWN_TICK", "50ms")
	t.Setenv("UI_ENABLED", "false")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, "rtsp://cam/1", cfg.CameraSource)
	assert.Equal(t, []string{"car", "bus"}, cfg.VehicleLabels)
	assert.Equal(t, 3.5, cfg.YellowSeconds)
	assert.Equal(t, 50*time.Millisecond, cfg.CountdownTick)
	assert.False(t, cfg.UIEnabled)
	assert.Equal(t, 8000, cfg.Port)
}

func TestGetNatsURLPrefersEnv(t *testing.T) {
	t.Setenv("NATS_URL", "nats://broker:4222")
	assert.Equal(t, "nats://broker:4222", getNatsURL())
}
