package api

import "intersection-worker-go/internal/api/middleware"

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	intersection := s.router.Group("/intersection")
	{
		intersection.GET("", s.intersectionHandler.GetState)
		intersection.POST("/start", s.intersectionHandler.Start)
		intersection.POST("/stop", s.intersectionHandler.Stop)
		intersection.GET("/stats", s.intersectionHandler.GetStats)
	}

	s.router.GET("/stream", s.streamHandler.MJPEG)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}
}
