// Package display runs the live video refresh: capture, detect, annotate and
// push to every attached surface together with the current vehicle count.
package display

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/timeutil"
)

type FrameSource interface {
	ReadFrame(ctx context.Context) (*models.Frame, error)
}

type VehicleCounter interface {
	Run(ctx context.Context, frame *models.Frame) (models.DetectionResult, error)
}

// Annotator draws detections and returns a display-ready image
type Annotator interface {
	Annotate(frame *models.Frame, detections []models.Detection, vehicleCount int) (*image.RGBA, error)
}

// Surface receives every refreshed frame and count. Implementations must not
// block for long; the refresh loop calls them inline.
type Surface interface {
	PushFrame(img *image.RGBA)
	UpdateCount(count int)
}

// Stats describes refresh loop activity
type Stats struct {
	Frames        uint64        `json:"frames"`
	Skipped       uint64        `json:"skipped"`
	CaptureErrors uint64        `json:"capture_errors"`
	DetectErrors  uint64        `json:"detect_errors"`
	LastCount     int           `json:"last_count"`
	LastLatency   time.Duration `json:"last_latency"`
	LastFrameAt   time.Time     `json:"last_frame_at"`
}

type Loop struct {
	source    FrameSource
	counter   VehicleCounter
	annotator Annotator
	interval  time.Duration
	clock     timeutil.Clock
	logger    zerolog.Logger

	surfacesMu sync.RWMutex
	surfaces   []Surface

	busy       atomic.Bool
	failStreak atomic.Int64
	inflight   sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

func NewLoop(source FrameSource, counter VehicleCounter, annotator Annotator, interval time.Duration, clock timeutil.Clock, logger zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Loop{
		source:    source,
		counter:   counter,
		annotator: annotator,
		interval:  interval,
		clock:     clock,
		logger:    logger,
	}
}

func (l *Loop) AddSurface(s Surface) {
	l.surfacesMu.Lock()
	l.surfaces = append(l.surfaces, s)
	l.surfacesMu.Unlock()
}

// Run refreshes on every tick until ctx is cancelled. A tick that arrives
// while the previous refresh is still running is skipped.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info().Dur("interval", l.interval).Msg("Display refresh loop started")
	defer l.logger.Info().Msg("Display refresh loop stopped")

	for {
		select {
		case <-ctx.Done():
			l.inflight.Wait()
			return nil
		case <-ticker.C():
			if !l.busy.CompareAndSwap(false, true) {
				l.statsMu.Lock()
				l.stats.Skipped++
				l.statsMu.Unlock()
				continue
			}
			l.inflight.Add(1)
			go func() {
				defer l.inflight.Done()
				defer l.busy.Store(false)
				_ = l.RefreshOnce(ctx)
			}()
		}
	}
}

// RefreshOnce performs a single capture, detect, annotate and push
func (l *Loop) RefreshOnce(ctx context.Context) error {
	start := l.clock.Now()

	frame, err := l.source.ReadFrame(ctx)
	if err != nil {
		l.statsMu.Lock()
		l.stats.CaptureErrors++
		l.statsMu.Unlock()
		// only the first failure of a streak is logged at warn
		if l.failStreak.Add(1) == 1 {
			l.logger.Warn().Err(err).Msg("Display capture failed")
		} else {
			l.logger.Debug().Err(err).Msg("Display capture failed")
		}
		return err
	}
	if streak := l.failStreak.Swap(0); streak > 1 {
		l.logger.Info().Int64("failed_reads", streak).Msg("Display capture recovered")
	}

	result, err := l.counter.Run(ctx, frame)
	if err != nil {
		l.statsMu.Lock()
		l.stats.DetectErrors++
		l.statsMu.Unlock()
		l.logger.Debug().Err(err).Int64("frame_seq", frame.Seq).Msg("Display detection failed, showing raw frame")
		result = models.DetectionResult{FrameSeq: frame.Seq}
	}

	img, err := l.annotator.Annotate(frame, result.Detections, result.VehicleCount)
	if err != nil {
		l.logger.Warn().Err(err).Int64("frame_seq", frame.Seq).Msg("Failed to annotate frame")
		return err
	}

	l.surfacesMu.RLock()
	surfaces := append([]Surface(nil), l.surfaces...)
	l.surfacesMu.RUnlock()

	for _, s := range surfaces {
		s.PushFrame(img)
		s.UpdateCount(result.VehicleCount)
	}

	now := l.clock.Now()
	l.statsMu.Lock()
	l.stats.Frames++
	l.stats.LastCount = result.VehicleCount
	l.stats.LastLatency = now.Sub(start)
	l.stats.LastFrameAt = now
	l.statsMu.Unlock()
	return nil
}

func (l *Loop) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}
