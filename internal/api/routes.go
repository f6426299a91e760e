package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.Root)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/info", s.healthHandler.WorkerInfo)
	s.router.GET("/system", s.systemHandler.GetStats)

	s.router.GET("/stats", s.statsHandler.GetStats)
	s.router.GET("/ws/stats", s.statsHandler.StreamStats)

	if s.videoHandler != nil {
		s.router.GET("/video", s.videoHandler.Stream)
	}
}
