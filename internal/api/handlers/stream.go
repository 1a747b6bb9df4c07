package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MJPEGStreamer writes a multipart JPEG stream until the client goes away
type MJPEGStreamer interface {
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request)
}

type StreamHandler struct {
	streamer MJPEGStreamer
}

func NewStreamHandler(streamer MJPEGStreamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

// @Summary Live annotated video
// @Description MJPEG stream of the display feed with detection boxes and vehicle count
// @Tags stream
// @Produce multipart/x-mixed-replace
// @Success 200
// @Failure 503 {object} ErrorResponse
// @Router /stream [get]
func (h *StreamHandler) MJPEG(c *gin.Context) {
	if h.streamer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "video stream not available"})
		return
	}
	h.streamer.StreamMJPEGHTTP(c.Writer, c.Request)
}
