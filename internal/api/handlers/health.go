package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intersection-worker-go/internal/models"
)

// SnapshotSource exposes the current intersection state
type SnapshotSource interface {
	Snapshot() models.IntersectionSnapshot
}

type HealthHandler struct {
	WorkerID string
	Version  string
	state    SnapshotSource
}

func NewHealthHandler(workerID, version string, state SnapshotSource) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, state: state}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	WorkerID string `json:"worker_id" example:"intersection-1"`
	Running  bool   `json:"running" example:"false"`
	Reason   string `json:"reason,omitempty" example:"camera: camera unavailable"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"intersection-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Reports healthy, or degraded while camera or detector sampling is failing
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	snap := h.state.Snapshot()
	resp := HealthResponse{
		Status:   "healthy",
		WorkerID: h.WorkerID,
		Running:  snap.Running,
	}
	if snap.Degraded {
		resp.Status = "degraded"
		resp.Reason = snap.DegradedReason
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"signal_scheduling",
			"vehicle_detection",
			"mjpeg_streaming",
		},
	})
}
