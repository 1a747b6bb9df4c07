package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"intersection-worker-go/internal/models"
)

var ErrUnknownCommand = errors.New("unknown control command")

// Publisher is satisfied by Service
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// Controller is the start/stop surface of the scheduler
type Controller interface {
	Start() (bool, error)
	Stop()
}

// Bridge forwards scheduler events to NATS and applies remote control commands
type Bridge struct {
	pub    Publisher
	ctrl   Controller
	prefix string
	logger zerolog.Logger
}

func NewBridge(pub Publisher, ctrl Controller, prefix string, logger zerolog.Logger) *Bridge {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = "intersection"
	}
	return &Bridge{pub: pub, ctrl: ctrl, prefix: prefix, logger: logger}
}

func (b *Bridge) EventSubject(t models.EventType) string {
	return b.prefix + ".events." + string(t)
}

func (b *Bridge) ControlSubject() string {
	return b.prefix + ".control"
}

// Run publishes every event until ctx is done or the channel is closed.
// Publish failures are logged and the event dropped.
func (b *Bridge) Run(ctx context.Context, events <-chan models.IntersectionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := b.pub.Publish(b.EventSubject(evt.Type), evt); err != nil {
				b.logger.Warn().Err(err).Str("type", string(evt.Type)).Msg("Failed to publish intersection event")
			}
		}
	}
}

// HandleControl decodes and applies one control message
func (b *Bridge) HandleControl(data []byte) error {
	var cmd models.ControlCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode control command: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(cmd.Command)) {
	case models.CommandStart:
		started, err := b.ctrl.Start()
		if err != nil {
			return err
		}
		b.logger.Info().Bool("started", started).Msg("Remote start requested")
		return nil
	case models.CommandStop:
		b.logger.Info().Msg("Remote stop requested")
		b.ctrl.Stop()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}
