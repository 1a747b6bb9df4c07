package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intersection-worker-go/internal/logging"
	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/camera"
	"intersection-worker-go/internal/services/display"
	"intersection-worker-go/internal/services/scheduler"
	"intersection-worker-go/internal/services/stats"
)

// Controller is the scheduler surface used by the HTTP API
type Controller interface {
	SnapshotSource
	Start() (bool, error)
	Stop()
	SubscriberStats() map[string]scheduler.SubscriberStats
}

type StatsSource interface {
	Snapshot() [models.HeadCount]stats.ApproachStats
}

type CameraHealthSource interface {
	Health() camera.Health
}

type DisplayStatsSource interface {
	Stats() display.Stats
}

type IntersectionHandler struct {
	ctrl    Controller
	stats   StatsSource
	camera  CameraHealthSource
	display DisplayStatsSource
}

func NewIntersectionHandler(ctrl Controller, stats StatsSource, camera CameraHealthSource, display DisplayStatsSource) *IntersectionHandler {
	return &IntersectionHandler{ctrl: ctrl, stats: stats, camera: camera, display: display}
}

type ControlResponse struct {
	Success  bool                        `json:"success" example:"true"`
	Message  string                      `json:"message" example:"cycle started"`
	Snapshot models.IntersectionSnapshot `json:"snapshot"`
}

type StatsResponse struct {
	Approaches  [models.HeadCount]stats.ApproachStats `json:"approaches"`
	Camera      *camera.Health                        `json:"camera,omitempty"`
	Display     *display.Stats                        `json:"display,omitempty"`
	Subscribers map[string]scheduler.SubscriberStats  `json:"subscribers"`
}

// @Summary Get intersection state
// @Description Running flag, current head, the four head states and degraded status
// @Tags intersection
// @Produce json
// @Success 200 {object} models.IntersectionSnapshot
// @Router /intersection [get]
func (h *IntersectionHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// @Summary Start the signal cycle
// @Description Starts a cycle from the current head. Does nothing while a cycle is running.
// @Tags intersection
// @Produce json
// @Success 200 {object} ControlResponse
// @Failure 503 {object} ErrorResponse
// @Router /intersection/start [post]
func (h *IntersectionHandler) Start(c *gin.Context) {
	started, err := h.ctrl.Start()
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to start signal cycle")
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	msg := "cycle started"
	if !started {
		msg = "cycle already running"
	}
	logging.Info(c).Str("result", msg).Msg("Start requested over HTTP")
	c.JSON(http.StatusOK, ControlResponse{Success: true, Message: msg, Snapshot: h.ctrl.Snapshot()})
}

// @Summary Stop the signal cycle
// @Description Stops the cycle within one countdown tick. The active head keeps its color.
// @Tags intersection
// @Produce json
// @Success 200 {object} ControlResponse
// @Router /intersection/stop [post]
func (h *IntersectionHandler) Stop(c *gin.Context) {
	h.ctrl.Stop()
	logging.Info(c).Msg("Stop requested over HTTP")
	c.JSON(http.StatusOK, ControlResponse{Success: true, Message: "stop requested", Snapshot: h.ctrl.Snapshot()})
}

// @Summary Get per-approach statistics
// @Description Sampled vehicle count statistics per head plus camera and display health
// @Tags intersection
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /intersection/stats [get]
func (h *IntersectionHandler) GetStats(c *gin.Context) {
	resp := StatsResponse{Subscribers: h.ctrl.SubscriberStats()}
	if h.stats != nil {
		resp.Approaches = h.stats.Snapshot()
	}
	if h.camera != nil {
		health := h.camera.Health()
		resp.Camera = &health
	}
	if h.display != nil {
		ds := h.display.Stats()
		resp.Display = &ds
	}
	c.JSON(http.StatusOK, resp)
}
