package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/api/handlers"
	"fvgvision-worker-go/internal/api/middleware"
	"fvgvision-worker-go/internal/config"
)

// Dependencies are the live components the API reads from.
type Dependencies struct {
	Stats handlers.StatsSource
	Video handlers.VideoStreamer // nil disables /video
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server
	logger zerolog.Logger

	healthHandler *handlers.HealthHandler
	systemHandler *handlers.SystemHandler
	statsHandler  *handlers.StatsHandler
	videoHandler  *handlers.VideoHandler
}

func NewServer(cfg *config.Config, deps Dependencies, logger zerolog.Logger) (*Server, error) {
	if deps.Stats == nil {
		return nil, errors.New("api: stats source is required")
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		logger:        logger,
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, cfg.Environment, capabilities(cfg)),
		systemHandler: handlers.NewSystemHandler(cfg.WorkerID),
		statsHandler:  handlers.NewStatsHandler(deps.Stats, time.Second),
	}
	if deps.Video != nil {
		s.videoHandler = handlers.NewVideoHandler(deps.Video)
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS())
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Msg("Starting worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Stopping worker API")
	return s.server.Shutdown(ctx)
}

func capabilities(cfg *config.Config) []string {
	var caps []string
	add := func(enabled bool, name string) {
		if enabled {
			caps = append(caps, name)
		}
	}
	add(true, "object_detection")
	add(cfg.Zone.Enabled, "zone")
	add(cfg.Parking.Enabled, "parking")
	add(cfg.Door.Enabled, "door")
	add(cfg.RaisedHandEnabled, "raised_hand")
	add(cfg.ImageEnabled, "mjpeg")
	add(cfg.StreamEnabled, "hls")
	add(cfg.NotificationEnabled, "notification")
	add(cfg.BenchmarkEnabled, "benchmark")
	return caps
}
