package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"intersection-worker-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

func WithHead(base zerolog.Logger, index int) zerolog.Logger {
	return base.With().Int("head", index).Logger()
}
