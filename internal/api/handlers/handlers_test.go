package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/camera"
	"intersection-worker-go/internal/services/scheduler"
	"intersection-worker-go/internal/services/stats"
)

type fakeController struct {
	snap     models.IntersectionSnapshot
	startErr error
	starts   int
	stops    int
}

func (f *fakeController) Snapshot() models.IntersectionSnapshot { return f.snap }

func (f *fakeController) Start() (bool, error) {
	f.starts++
	if f.startErr != nil {
		return false, f.startErr
	}
	if f.snap.Running {
		return false, nil
	}
	f.snap.Running = true
	return true, nil
}

func (f *fakeController) Stop() {
	f.stops++
	f.snap.Running = false
}

func (f *fakeController) SubscriberStats() map[string]scheduler.SubscriberStats {
	return map[string]scheduler.SubscriberStats{"nats": {Sent: 12, Dropped: 1}}
}

type fakeStats struct{}

func (fakeStats) Snapshot() [models.HeadCount]stats.ApproachStats {
	var out [models.HeadCount]stats.ApproachStats
	out[2] = stats.ApproachStats{Index: 2, Samples: 3, MeanCount: 4}
	return out
}

type fakeCamera struct{}

func (fakeCamera) Health() camera.Health {
	return camera.Health{Degraded: true, ConsecutiveFails: 5, LastError: "read failed"}
}

func setup(ctrl *fakeController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewIntersectionHandler(ctrl, fakeStats{}, fakeCamera{}, nil)
	hh := NewHealthHandler("junction-7", "1.2.3", ctrl)
	r.GET("/", hh.WorkerInfo)
	r.GET("/health", hh.HealthCheck)
	r.GET("/intersection", h.GetState)
	r.POST("/intersection/start", h.Start)
	r.POST("/intersection/stop", h.Stop)
	r.GET("/intersection/stats", h.GetStats)
	r.GET("/stream", NewStreamHandler(nil).MJPEG)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestGetState(t *testing.T) {
	ctrl := &fakeController{snap: models.IntersectionSnapshot{CurrentIndex: 2, CycleID: "c1"}}
	ctrl.snap.Heads[2] = models.HeadState{Index: 2, Color: models.ColorGreen, Remaining: 4.5}

	var snap models.IntersectionSnapshot
	assert.Equal(t, http.StatusOK, do(t, setup(ctrl), http.MethodGet, "/intersection", &snap))
	assert.Equal(t, ctrl.snap, snap)
}

func TestStartAndStop(t *testing.T) {
	ctrl := &fakeController{}
	r := setup(ctrl)

	var resp ControlResponse
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/intersection/start", &resp))
	assert.Equal(t, "cycle started", resp.Message)
	assert.True(t, resp.Snapshot.Running)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/intersection/start", &resp))
	assert.Equal(t, "cycle already running", resp.Message)
	assert.Equal(t, 2, ctrl.starts)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/intersection/stop", &resp))
	assert.False(t, resp.Snapshot.Running)
	assert.Equal(t, 1, ctrl.stops)
}

// staleController reports a running cycle in its snapshot while Start still
// launches a new one, as when the previous cycle ends in between.
type staleController struct {
	fakeController
}

func (f *staleController) Start() (bool, error) {
	f.starts++
	return true, nil
}

func TestStartMessageComesFromStart(t *testing.T) {
	ctrl := &staleController{}
	ctrl.snap.Running = true

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/intersection/start", NewIntersectionHandler(ctrl, nil, nil, nil).Start)

	var resp ControlResponse
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/intersection/start", &resp))
	assert.Equal(t, "cycle started", resp.Message)
	assert.Equal(t, 1, ctrl.starts)
}

func TestStartErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("start: %w", scheduler.ErrClosed), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			var resp ErrorResponse
			code := do(t, setup(&fakeController{startErr: tt.err}), http.MethodPost, "/intersection/start", &resp)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestGetStats(t *testing.T) {
	var resp StatsResponse
	assert.Equal(t, http.StatusOK, do(t, setup(&fakeController{}), http.MethodGet, "/intersection/stats", &resp))
	assert.Equal(t, 3, resp.Approaches[2].Samples)
	require.NotNil(t, resp.Camera)
	assert.True(t, resp.Camera.Degraded)
	assert.Nil(t, resp.Display)
	assert.Equal(t, uint64(1), resp.Subscribers["nats"].Dropped)
}

func TestHealthCheck(t *testing.T) {
	ctrl := &fakeController{}
	r := setup(ctrl)

	var resp HealthResponse
	do(t, r, http.MethodGet, "/health", &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.Reason)

	ctrl.snap.Degraded = true
	ctrl.snap.DegradedReason = "camera: read failed"
	do(t, r, http.MethodGet, "/health", &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "camera: read failed", resp.Reason)
}

func TestWorkerInfo(t *testing.T) {
	var resp WorkerInfoResponse
	do(t, setup(&fakeController{}), http.MethodGet, "/", &resp)
	assert.Equal(t, "junction-7", resp.WorkerID)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Contains(t, resp.Capabilities, "signal_scheduling")
}

func TestStreamUnavailable(t *testing.T) {
	var resp ErrorResponse
	assert.Equal(t, http.StatusServiceUnavailable, do(t, setup(&fakeController{}), http.MethodGet, "/stream", &resp))
}
