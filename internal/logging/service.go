package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fvgvision-worker-go/internal/config"
)

// NewServiceLogger returns the global logger tagged with the worker and the
// service name.
func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

// WithCamera tags a logger with the notification camera id.
func WithCamera(base zerolog.Logger, cameraID string) zerolog.Logger {
	if cameraID == "" {
		return base
	}
	return base.With().Str("camera_id", cameraID).Logger()
}
