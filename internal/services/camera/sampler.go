package camera

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/timeutil"
)

var (
	// ErrCameraUnavailable is returned when a frame could not be read after all retries
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrEmptyFrame is returned by sources that produced a frame with no pixels
	ErrEmptyFrame = errors.New("empty frame")
)

// Source reads single frames from a capture device
type Source interface {
	ReadFrame(ctx context.Context) (*models.Frame, error)
}

// RetryPolicy bounds how hard the sampler tries before giving up on a sample
type RetryPolicy struct {
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
	JitterPct  int
}

// Health is the observable state of the sampler
type Health struct {
	Degraded         bool      `json:"degraded"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	TotalFailures    int64     `json:"total_failures"`
	LastError        string    `json:"last_error,omitempty"`
	LastSuccess      time.Time `json:"last_success"`
	LastFailure      time.Time `json:"last_failure"`
	SamplesDelivered int64     `json:"samples_delivered"`
	SamplesAbandoned int64     `json:"samples_abandoned"`
}

// Sampler reads one frame with bounded retries and jittered exponential backoff
type Sampler struct {
	source Source
	policy RetryPolicy
	clock  timeutil.Clock
	logger zerolog.Logger

	mu     sync.RWMutex
	health Health
}

func NewSampler(source Source, policy RetryPolicy, clock timeutil.Clock, logger zerolog.Logger) *Sampler {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Sampler{source: source, policy: policy, clock: clock, logger: logger}
}

// Sample returns one frame, retrying up to MaxRetries times. After exhausting
// retries the sampler is marked degraded and ErrCameraUnavailable is returned.
// The degraded mark clears on the next successful read.
func (s *Sampler) Sample(ctx context.Context) (*models.Frame, error) {
	var lastErr error
	for attempt := 0; attempt <= s.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			if err := s.clock.SleepContext(ctx, s.BackoffDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		frame, err := s.source.ReadFrame(ctx)
		if err == nil && frame.Empty() {
			err = ErrEmptyFrame
		}
		if err == nil {
			s.recordSuccess()
			return frame, nil
		}

		lastErr = err
		s.recordFailure(err)
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", s.policy.MaxRetries+1).
			Msg("Failed to read frame from camera")
	}

	s.mu.Lock()
	s.health.Degraded = true
	s.health.SamplesAbandoned++
	s.mu.Unlock()

	return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, lastErr)
}

// Health returns a copy of the current sampler health
func (s *Sampler) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// BackoffDelay calculates jittered exponential backoff delay
func (s *Sampler) BackoffDelay(attempt int) time.Duration {
	baseDelay := s.policy.BackoffMin << uint(attempt)
	if baseDelay <= 0 || (s.policy.BackoffMax > 0 && baseDelay > s.policy.BackoffMax) {
		baseDelay = s.policy.BackoffMax
	}
	if baseDelay < s.policy.BackoffMin {
		baseDelay = s.policy.BackoffMin
	}

	jitterPct := float64(s.policy.JitterPct) / 100.0
	jitter := time.Duration(float64(baseDelay) * jitterPct * (rand.Float64()*2 - 1))

	return baseDelay + jitter
}

func (s *Sampler) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.health.Degraded {
		s.logger.Info().
			Int("consecutive_fails", s.health.ConsecutiveFails).
			Msg("Camera recovered")
	}
	s.health.Degraded = false
	s.health.ConsecutiveFails = 0
	s.health.LastError = ""
	s.health.LastSuccess = s.clock.Now()
	s.health.SamplesDelivered++
}

func (s *Sampler) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.ConsecutiveFails++
	s.health.TotalFailures++
	s.health.LastError = err.Error()
	s.health.LastFailure = s.clock.Now()
}
