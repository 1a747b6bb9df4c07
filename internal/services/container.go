package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/helpers"
	"intersection-worker-go/internal/logging"
	"intersection-worker-go/internal/services/camera"
	"intersection-worker-go/internal/services/camera/opencv"
	"intersection-worker-go/internal/services/detection"
	"intersection-worker-go/internal/services/detection/remote"
	"intersection-worker-go/internal/services/detection/yolo"
	"intersection-worker-go/internal/services/display"
	"intersection-worker-go/internal/services/messaging"
	"intersection-worker-go/internal/services/overlay"
	"intersection-worker-go/internal/services/publisher/mjpeg"
	"intersection-worker-go/internal/services/scheduler"
	"intersection-worker-go/internal/services/signal"
	"intersection-worker-go/internal/services/stats"
	"intersection-worker-go/internal/timeutil"
)

const natsSubscriberID = "nats"

type closableDetector interface {
	detection.Detector
	io.Closer
}

// ServiceContainer holds all services
type ServiceContainer struct {
	Config *config.Config

	Capture   *opencv.Capture
	Sampler   *camera.Sampler
	Detector  detection.Detector
	Counter   *detection.Counter
	Bank      *signal.Bank
	Scheduler *scheduler.Scheduler
	Stats     *stats.Recorder
	Overlay   *overlay.Renderer
	Display   *display.Loop
	MJPEG     *mjpeg.Publisher

	Messaging *messaging.Service
	Bridge    *messaging.Bridge

	detector   closableDetector
	controlSub *nats.Subscription
	logger     zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServiceContainer creates a new service container. The camera and the
// detector must both come up; NATS is optional and only logged on failure.
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	sc := &ServiceContainer{
		Config: cfg,
		logger: logging.NewServiceLogger(cfg, "container"),
	}
	clock := timeutil.RealClock{}

	capture, err := opencv.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", camera.ErrCameraUnavailable, err)
	}
	sc.Capture = capture

	det, err := newDetector(cfg)
	if err != nil {
		_ = capture.Close()
		return nil, err
	}
	sc.detector = det
	sc.Detector = det

	sc.Sampler = camera.NewSampler(capture, camera.RetryPolicy{
		MaxRetries: cfg.CameraMaxRetries,
		BackoffMin: cfg.ReconnectBackoffMin,
		BackoffMax: cfg.ReconnectBackoffMax,
		JitterPct:  cfg.ReconnectJitterPct,
	}, clock, logging.NewServiceLogger(cfg, "camera"))
	sc.Counter = detection.NewCounter(det, cfg.VehicleLabels)

	sc.Bank = signal.NewBank()
	sc.Stats = stats.NewRecorder(0)
	sc.Scheduler = scheduler.New(sc.Bank, sc.Sampler, sc.Counter, scheduler.TimingFromConfig(cfg),
		scheduler.WithClock(clock),
		scheduler.WithLogger(logging.NewServiceLogger(cfg, "scheduler")),
		scheduler.WithObserver(sc.Stats),
	)

	sc.Overlay = overlay.NewRenderer(cfg)
	sc.MJPEG = mjpeg.NewPublisher(helpers.EncodeImageJPEG, cfg.JPEGQuality, logging.NewServiceLogger(cfg, "mjpeg"))
	sc.Display = display.NewLoop(capture, sc.Counter, sc.Overlay, cfg.DisplayRefreshInterval, clock, logging.NewServiceLogger(cfg, "display"))
	sc.Display.AddSurface(sc.MJPEG)

	if cfg.NatsEnabled {
		sc.setupMessaging()
	}

	return sc, nil
}

func newDetector(cfg *config.Config) (closableDetector, error) {
	logger := logging.NewServiceLogger(cfg, "detector")

	switch strings.ToLower(cfg.DetectorBackend) {
	case "remote":
		client := remote.NewClient(remote.Options{
			Endpoint: cfg.AIGRPCURL,
			WorkerID: cfg.WorkerID,
			Timeout:  cfg.AITimeout,
			Encoder:  helpers.JPEGEncoder(cfg.JPEGQuality),
		}, logger)
		if err := client.Connect(); err != nil {
			return nil, fmt.Errorf("%w: %v", detection.ErrDetectorUnavailable, err)
		}
		return client, nil
	case "yolo", "":
		det, err := yolo.New(yolo.OptionsFromConfig(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", detection.ErrDetectorUnavailable, err)
		}
		return det, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
}

func (sc *ServiceContainer) setupMessaging() {
	svc, err := messaging.NewService(sc.Config)
	if err != nil {
		sc.logger.Warn().Err(err).Str("url", sc.Config.NatsURL).Msg("NATS unavailable, events will not be published")
		return
	}
	sc.Messaging = svc

	bridgeLogger := logging.NewServiceLogger(sc.Config, "bridge")
	sc.Bridge = messaging.NewBridge(svc, sc.Scheduler, sc.Config.NatsSubjectPrefix, bridgeLogger)

	sub, err := svc.Subscribe(sc.Bridge.ControlSubject(), func(data []byte) {
		if err := sc.Bridge.HandleControl(data); err != nil {
			bridgeLogger.Warn().Err(err).Msg("Rejected control message")
		}
	})
	if err != nil {
		sc.logger.Warn().Err(err).Msg("Failed to subscribe to control subject")
		return
	}
	sc.controlSub = sub
}

// Run starts the display refresh loop and the event bridge. It returns
// immediately; Shutdown stops both.
func (sc *ServiceContainer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel

	if sc.Bridge != nil {
		events, err := sc.Scheduler.Subscribe(natsSubscriberID, sc.Config.EventBufferSize)
		if err != nil {
			cancel()
			return err
		}
		sc.wg.Add(1)
		go func() {
			defer sc.wg.Done()
			sc.Bridge.Run(ctx, events)
		}()
	}

	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		if err := sc.Display.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sc.logger.Error().Err(err).Msg("Display loop stopped")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if err := sc.Scheduler.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}

	if sc.cancel != nil {
		sc.cancel()
	}
	sc.wg.Wait()

	sc.MJPEG.Shutdown()

	if sc.controlSub != nil {
		_ = sc.controlSub.Unsubscribe()
	}
	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("messaging: %w", err))
		}
	}

	if err := sc.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	if err := sc.Capture.Close(); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	}

	return errors.Join(errs...)
}
