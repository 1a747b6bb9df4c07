package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"intersection-worker-go/internal/api/handlers"
	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/logging"
)

// Deps are the services the HTTP API reads from and controls
type Deps struct {
	Controller handlers.Controller
	Stats      handlers.StatsSource
	Camera     handlers.CameraHealthSource
	Display    handlers.DisplayStatsSource
	Stream     handlers.MJPEGStreamer
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server
	logger zerolog.Logger

	healthHandler       *handlers.HealthHandler
	intersectionHandler *handlers.IntersectionHandler
	streamHandler       *handlers.StreamHandler
	systemHandler       *handlers.SystemHandler
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:              cfg,
		router:              router,
		logger:              logging.NewServiceLogger(cfg, "api"),
		healthHandler:       handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, deps.Controller),
		intersectionHandler: handlers.NewIntersectionHandler(deps.Controller, deps.Stats, deps.Camera, deps.Display),
		streamHandler:       handlers.NewStreamHandler(deps.Stream),
		systemHandler:       handlers.NewSystemHandler(cfg.WorkerID),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Msg("Starting intersection API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping intersection API")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) GetServer() *http.Server {
	return s.server
}

// Handler exposes the router for in-process tests
func (s *Server) Handler() http.Handler {
	return s.router
}
