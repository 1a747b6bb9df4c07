// Package scheduler runs the round-robin signal cycle. Each phase samples
// one camera frame, sizes the green time from the vehicle count and counts
// the active head down through green and yellow before returning it to red.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"intersection-worker-go/internal/logging"
	"intersection-worker-go/internal/models"
	"intersection-worker-go/internal/services/signal"
	"intersection-worker-go/internal/timeutil"
)

// FrameSampler delivers one frame per phase
type FrameSampler interface {
	Sample(ctx context.Context) (*models.Frame, error)
}

// VehicleCounter turns a frame into a vehicle count
type VehicleCounter interface {
	Run(ctx context.Context, frame *models.Frame) (models.DetectionResult, error)
}

// PhaseObserver is told about every sampled phase
type PhaseObserver interface {
	ObservePhase(index int, result models.DetectionResult, greenSeconds float64)
}

// Scheduler owns the running flag and the current head index. Both are
// atomics so the phase loop, the display loop and control surfaces can read
// them without sharing a lock with the countdown.
type Scheduler struct {
	bank     *signal.Bank
	sampler  FrameSampler
	counter  VehicleCounter
	timing   Timing
	clock    timeutil.Clock
	logger   zerolog.Logger
	observer PhaseObserver

	running      atomic.Bool
	currentIndex atomic.Int32
	closed       atomic.Bool

	// lifecycle guards cancel and done across Start/Stop
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	stateMu        sync.RWMutex
	cycleID        string
	lastCount      int
	lastGreen      float64
	degraded       bool
	degradedReason string

	hub *eventHub
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests
func WithClock(c timeutil.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithObserver(o PhaseObserver) Option {
	return func(s *Scheduler) { s.observer = o }
}

func New(bank *signal.Bank, sampler FrameSampler, counter VehicleCounter, timing Timing, opts ...Option) *Scheduler {
	s := &Scheduler{
		bank:    bank,
		sampler: sampler,
		counter: counter,
		timing:  timing,
		clock:   timeutil.RealClock{},
		logger:  zerolog.Nop(),
		hub:     newEventHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the phase loop from the current index and reports whether
// it did. It is a no-op while a cycle is already running. A stopped loop
// still finishing its last tick or pause is waited for outside the lock, so
// two loops never drive the heads at once and Stop is never held up.
func (s *Scheduler) Start() (bool, error) {
	for {
		s.lifecycle.Lock()
		if s.closed.Load() {
			s.lifecycle.Unlock()
			return false, ErrClosed
		}
		if s.running.Load() {
			s.lifecycle.Unlock()
			s.logger.Debug().Msg("Start ignored, cycle already running")
			return false, nil
		}
		if prev := s.done; prev != nil {
			select {
			case <-prev:
			default:
				s.lifecycle.Unlock()
				<-prev
				continue
			}
		}

		s.launch()
		s.lifecycle.Unlock()
		return true, nil
	}
}

// launch spawns a new phase loop. Callers hold lifecycle.
func (s *Scheduler) launch() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	index := int(s.currentIndex.Load())
	s.stateMu.Lock()
	if index == 0 || s.cycleID == "" {
		s.cycleID = uuid.NewString()
	}
	s.stateMu.Unlock()

	s.running.Store(true)
	s.emit(models.IntersectionEvent{Type: models.EventCycleStarted, HeadIndex: index})
	s.logger.Info().Int("start_index", index).Str("cycle_id", s.CycleID()).Msg("Signal cycle started")

	go s.runPhaseLoop(ctx, cancel, done)
}

// Stop requests the loop to halt. The active head keeps its current color
// and the index is left where it is so the next Start resumes there.
// The flag and the cancel func change together under lifecycle, so a Stop
// only ever cancels the loop it saw running.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.running.Swap(false) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info().Int("index", s.CurrentIndex()).Msg("Signal cycle stop requested")
}

// Wait blocks until the current loop, if any, has exited
func (s *Scheduler) Wait(ctx context.Context) error {
	s.lifecycle.Lock()
	done := s.done
	s.lifecycle.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop, waits for it and closes all subscriber channels
func (s *Scheduler) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	s.Stop()
	err := s.Wait(ctx)
	s.hub.close()
	return err
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) CurrentIndex() int {
	return int(s.currentIndex.Load())
}

func (s *Scheduler) CycleID() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.cycleID
}

// Timing returns the duration rules in use
func (s *Scheduler) Timing() Timing {
	return s.timing
}

// Snapshot returns the scheduler and head state in one value
func (s *Scheduler) Snapshot() models.IntersectionSnapshot {
	s.stateMu.RLock()
	snap := models.IntersectionSnapshot{
		CycleID:          s.cycleID,
		LastVehicleCount: s.lastCount,
		LastGreenSeconds: s.lastGreen,
		Degraded:         s.degraded,
		DegradedReason:   s.degradedReason,
	}
	s.stateMu.RUnlock()

	snap.Running = s.running.Load()
	snap.CurrentIndex = int(s.currentIndex.Load())
	snap.Heads = s.bank.Snapshot()
	return snap
}

// Subscribe registers a buffered event channel. Slow subscribers lose
// events instead of stalling the countdown.
func (s *Scheduler) Subscribe(id string, buffer int) (<-chan models.IntersectionEvent, error) {
	return s.hub.subscribe(id, buffer)
}

func (s *Scheduler) Unsubscribe(id string) error {
	return s.hub.unsubscribe(id)
}

// SubscriberStats reports delivered and dropped counts per subscriber
func (s *Scheduler) SubscriberStats() map[string]SubscriberStats {
	return s.hub.stats()
}

func (s *Scheduler) runPhaseLoop(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.running.Store(false)
			s.logger.Error().Interface("panic", r).Msg("Phase loop panicked")
			s.emit(models.IntersectionEvent{
				Type:      models.EventStopped,
				HeadIndex: s.CurrentIndex(),
				Reason:    fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	for s.running.Load() {
		index := int(s.currentIndex.Load())
		if !s.runPhase(ctx, index) {
			break
		}

		next := (index + 1) % models.HeadCount
		s.currentIndex.Store(int32(next))
		if next == 0 {
			s.running.Store(false)
			s.emit(models.IntersectionEvent{Type: models.EventCycleCompleted, HeadIndex: index})
			s.logger.Info().Str("cycle_id", s.CycleID()).Msg("Signal cycle completed")
			return
		}
	}

	// a cancelled context without a Stop must not leave the flag set. No
	// newer loop can exist yet since Start waits for done.
	s.running.CompareAndSwap(true, false)

	s.emit(models.IntersectionEvent{Type: models.EventStopped, HeadIndex: s.CurrentIndex(), Reason: "stop requested"})
	s.logger.Info().Int("index", s.CurrentIndex()).Msg("Signal cycle stopped")
}

// runPhase drives one head through sample, green, yellow, red and the
// closing pause. It returns false when the phase was aborted by Stop.
func (s *Scheduler) runPhase(ctx context.Context, index int) bool {
	logger := logging.WithHead(s.logger, index)

	head, err := s.bank.Head(index)
	if err != nil {
		// the index is always reduced mod HeadCount, so this is a bug
		panic(err)
	}

	count := s.sampleVehicles(ctx, index, logger)
	if ctx.Err() != nil || !s.running.Load() {
		return false
	}

	green := s.timing.GreenDuration(count)
	yellow := s.timing.YellowDuration()

	s.stateMu.Lock()
	s.lastCount = count
	s.lastGreen = green
	s.stateMu.Unlock()

	s.emit(models.IntersectionEvent{
		Type:          models.EventPhaseSampled,
		HeadIndex:     index,
		VehicleCount:  count,
		GreenSeconds:  green,
		YellowSeconds: yellow,
	})
	logger.Info().Int("vehicles", count).Float64("green_s", green).Float64("yellow_s", yellow).Msg("Phase sampled")

	s.bank.AllRed()

	if !s.countdown(head, models.ColorGreen, green) {
		return false
	}
	if !s.countdown(head, models.ColorYellow, yellow) {
		return false
	}

	// red is always valid
	_ = head.SetState(models.ColorRed, 0)
	s.emit(models.IntersectionEvent{Type: models.EventHeadChanged, HeadIndex: index, Color: models.ColorRed})

	// the pause after yellow is not interruptible
	s.clock.Sleep(s.timing.Pause)

	s.emit(models.IntersectionEvent{Type: models.EventPhaseCompleted, HeadIndex: index, VehicleCount: count})
	return true
}

// countdown shows color on head with the remaining time refreshed once per
// tick. It returns false as soon as it sees the running flag cleared.
func (s *Scheduler) countdown(head *signal.Head, color models.Color, seconds float64) bool {
	ticks := s.timing.ticks(seconds)
	s.emit(models.IntersectionEvent{Type: models.EventHeadChanged, HeadIndex: head.Index(), Color: color})

	for i := ticks; i > 0; i-- {
		if !s.running.Load() {
			return false
		}
		if err := head.SetState(color, s.timing.remainingAt(i)); err != nil {
			s.logger.Error().Err(err).Int("head", head.Index()).Msg("Failed to update head")
			return false
		}
		s.clock.Sleep(s.timing.Tick)
	}
	return s.running.Load()
}

// sampleVehicles captures and counts for one phase. Camera and detector
// failures fall back to a zero count and mark the scheduler degraded.
func (s *Scheduler) sampleVehicles(ctx context.Context, index int, logger zerolog.Logger) int {
	frame, err := s.sampler.Sample(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		logger.Warn().Err(err).Msg("Camera sample failed, using zero vehicles")
		s.setDegraded(index, "camera: "+err.Error())
		s.observe(index, models.DetectionResult{ErrorMessage: err.Error()}, s.timing.GreenDuration(0))
		return 0
	}

	result, err := s.counter.Run(ctx, frame)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		logger.Warn().Err(err).Msg("Vehicle detection failed, using zero vehicles")
		s.setDegraded(index, "detector: "+err.Error())
		s.observe(index, result, s.timing.GreenDuration(0))
		return 0
	}

	s.clearDegraded(index)
	s.observe(index, result, s.timing.GreenDuration(result.VehicleCount))
	return result.VehicleCount
}

func (s *Scheduler) observe(index int, result models.DetectionResult, green float64) {
	if s.observer != nil {
		s.observer.ObservePhase(index, result, green)
	}
}

func (s *Scheduler) setDegraded(index int, reason string) {
	s.stateMu.Lock()
	changed := !s.degraded || s.degradedReason != reason
	s.degraded = true
	s.degradedReason = reason
	s.stateMu.Unlock()

	if changed {
		s.emit(models.IntersectionEvent{Type: models.EventDegraded, HeadIndex: index, Reason: reason})
	}
}

func (s *Scheduler) clearDegraded(index int) {
	s.stateMu.Lock()
	was := s.degraded
	s.degraded = false
	s.degradedReason = ""
	s.stateMu.Unlock()

	if was {
		s.logger.Info().Int("head", index).Msg("Sampling recovered")
		s.emit(models.IntersectionEvent{Type: models.EventRecovered, HeadIndex: index})
	}
}

// emit stamps and fans out an event with the current snapshot
func (s *Scheduler) emit(evt models.IntersectionEvent) {
	evt.ID = uuid.NewString()
	evt.CycleID = s.CycleID()
	evt.Timestamp = s.clock.Now()
	evt.Snapshot = s.Snapshot()
	s.hub.publish(evt)
}
