package opencv

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/camera"
)

// Capture wraps an OpenCV VideoCapture. Reads are serialized because the
// scheduler and the display loop share one device.
type Capture struct {
	cfg *config.Config

	mu      sync.Mutex
	cap     *gocv.VideoCapture
	img     gocv.Mat
	frameID int64
	closed  bool
}

// Open opens the configured camera source: a numeric device index or a stream URL
func Open(cfg *config.Config) (*Capture, error) {
	var source interface{} = cfg.CameraSource
	if idx, err := strconv.Atoi(cfg.CameraSource); err == nil {
		source = idx
	}

	log.Info().
		Str("source", cfg.CameraSource).
		Msg("Opening OpenCV VideoCapture")

	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", cfg.CameraSource, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture is not opened for camera %s", cfg.CameraSource)
	}

	vc.Set(gocv.VideoCaptureBufferSize, 1) // Minimal buffer
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.CameraWidth))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.CameraHeight))

	log.Info().
		Str("source", cfg.CameraSource).
		Float64("actual_fps", vc.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened successfully with actual properties")

	return &Capture{
		cfg: cfg,
		cap: vc,
		img: gocv.NewMat(),
	}, nil
}

// ReadFrame reads a single BGR frame. It does not retry; callers decide.
func (c *Capture) ReadFrame(ctx context.Context) (*models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, camera.ErrCameraUnavailable
	}

	if ok := c.cap.Read(&c.img); !ok {
		return nil, fmt.Errorf("failed to read frame from VideoCapture")
	}
	if c.img.Empty() {
		return nil, camera.ErrEmptyFrame
	}

	width, height := c.img.Cols(), c.img.Rows()
	var data []byte
	if c.cfg.CameraWidth > 0 && c.cfg.CameraHeight > 0 && (width != c.cfg.CameraWidth || height != c.cfg.CameraHeight) {
		resized := gocv.NewMat()
		gocv.Resize(c.img, &resized, image.Pt(c.cfg.CameraWidth, c.cfg.CameraHeight), 0, 0, gocv.InterpolationLinear)
		data = resized.ToBytes()
		width, height = resized.Cols(), resized.Rows()
		resized.Close()
	} else {
		data = c.img.ToBytes()
	}

	c.frameID++
	return &models.Frame{
		Data:      data,
		Width:     width,
		Height:    height,
		Seq:       c.frameID,
		Timestamp: time.Now(),
	}, nil
}

// Close releases the device
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.img.Close()
	return c.cap.Close()
}
