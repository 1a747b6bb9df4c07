package mjpeg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Encoder turns a display image into JPEG bytes
type Encoder func(img image.Image, quality int) ([]byte, error)

const boundary = "frame"

// Publisher is a display surface that serves the annotated video as
// multipart/x-mixed-replace. Frames are only encoded while a viewer is
// connected.
type Publisher struct {
	encode  Encoder
	quality int
	logger  zerolog.Logger

	jpegMutex   sync.RWMutex
	latestImage *image.RGBA
	latestJPEG  []byte
	count       atomic.Int64

	notifyMutex sync.RWMutex
	frameNotify map[string]chan struct{}

	keepalive time.Duration
}

func NewPublisher(encode Encoder, quality int, logger zerolog.Logger) *Publisher {
	return &Publisher{
		encode:      encode,
		quality:     quality,
		logger:      logger,
		frameNotify: make(map[string]chan struct{}),
		keepalive:   2 * time.Second,
	}
}

// PushFrame implements display.Surface
func (p *Publisher) PushFrame(img *image.RGBA) {
	if img == nil {
		return
	}

	p.jpegMutex.Lock()
	p.latestImage = img
	p.latestJPEG = nil
	p.jpegMutex.Unlock()

	if p.Viewers() == 0 {
		return
	}
	if _, err := p.latest(); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to encode MJPEG frame")
		return
	}
	p.notifyStreamers()
}

// UpdateCount implements display.Surface
func (p *Publisher) UpdateCount(count int) {
	p.count.Store(int64(count))
}

// LastCount is the most recent vehicle count pushed with a frame
func (p *Publisher) LastCount() int {
	return int(p.count.Load())
}

func (p *Publisher) Viewers() int {
	p.notifyMutex.RLock()
	defer p.notifyMutex.RUnlock()
	return len(p.frameNotify)
}

// latest returns the JPEG for the newest frame, encoding it on first use
func (p *Publisher) latest() ([]byte, error) {
	p.jpegMutex.RLock()
	jpeg, img := p.latestJPEG, p.latestImage
	p.jpegMutex.RUnlock()

	if jpeg != nil || img == nil {
		return jpeg, nil
	}

	encoded, err := p.encode(img, p.quality)
	if err != nil {
		return nil, err
	}

	p.jpegMutex.Lock()
	// a newer frame may have replaced img while encoding
	if p.latestImage == img {
		p.latestJPEG = encoded
	}
	p.jpegMutex.Unlock()
	return encoded, nil
}

func (p *Publisher) notifyStreamers() {
	p.notifyMutex.RLock()
	defer p.notifyMutex.RUnlock()

	for _, notify := range p.frameNotify {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) addViewer() (string, chan struct{}) {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()

	id := uuid.NewString()
	notify := make(chan struct{}, 5)
	p.frameNotify[id] = notify
	return id, notify
}

func (p *Publisher) removeViewer(id string) {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()

	if notify, exists := p.frameNotify[id]; exists {
		close(notify)
		delete(p.frameNotify, id)
	}
}

func (p *Publisher) placeholder() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 640, 360))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 64, G: 64, B: 64, A: 255}}, image.Point{}, draw.Src)
	jpeg, err := p.encode(img, p.quality)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Failed to encode MJPEG placeholder")
		return nil
	}
	return jpeg
}

// StreamMJPEGHTTP writes frames until the client disconnects
func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, notify := p.addViewer()
	defer p.removeViewer(id)

	p.logger.Info().Str("viewer", id).Str("remote", r.RemoteAddr).Msg("MJPEG viewer connected")
	defer p.logger.Info().Str("viewer", id).Msg("MJPEG viewer disconnected")

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first, err := p.latest()
	if err != nil || len(first) == 0 {
		first = p.placeholder()
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	keepaliveTicker := time.NewTicker(p.keepalive)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notify:
			if !ok {
				return
			}
		case <-keepaliveTicker.C:
		}

		buf, err := p.latest()
		if err == nil && len(buf) > 0 {
			if !writePart(buf) {
				return
			}
		}
	}
}

// Shutdown drops every viewer
func (p *Publisher) Shutdown() {
	p.notifyMutex.Lock()
	for id, notify := range p.frameNotify {
		close(notify)
		delete(p.frameNotify, id)
	}
	p.notifyMutex.Unlock()
	p.logger.Info().Msg("MJPEG Publisher shutting down")
}
