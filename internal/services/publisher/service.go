package publisher

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/services/publisher/hls"
	"fvgvision-worker-go/internal/services/publisher/mjpeg"
	"fvgvision-worker-go/internal/stream"
)

// Service owns the web outputs fed from the processed-frame buffer: the
// MJPEG endpoint and, when enabled, the HLS encoder.
type Service struct {
	mjpegPublisher *mjpeg.Publisher
	hlsStreamer    *hls.Streamer
	logger         zerolog.Logger
}

func NewService(cfg *config.Config, buffer *stream.TripleBuffer, encoder mjpeg.Encoder, logger zerolog.Logger) *Service {
	s := &Service{logger: logger}
	if cfg.ImageEnabled {
		s.mjpegPublisher = mjpeg.NewPublisher(cfg, buffer, encoder, logger.With().Str("output", "mjpeg").Logger())
	}
	if cfg.StreamEnabled {
		s.hlsStreamer = hls.NewStreamer(cfg, buffer, logger.With().Str("output", "hls").Logger())
	}
	return s
}

// Observer returns the HLS streamer so it can learn the frame size, or nil
// when HLS is disabled.
func (s *Service) Observer() stream.Observer {
	if s.hlsStreamer == nil {
		return nil
	}
	return s.hlsStreamer
}

// MJPEGEnabled reports whether the /video endpoint has something to serve.
func (s *Service) MJPEGEnabled() bool {
	return s.mjpegPublisher != nil
}

// Run drives every enabled output until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.mjpegPublisher != nil {
		g.Go(func() error { return s.mjpegPublisher.Run(ctx) })
	}
	if s.hlsStreamer != nil {
		g.Go(func() error { return s.hlsStreamer.Run(ctx) })
	}
	return g.Wait()
}

func (s *Service) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	if s.mjpegPublisher == nil {
		http.Error(w, "Video output disabled", http.StatusNotFound)
		return
	}
	s.mjpegPublisher.StreamMJPEGHTTP(w, r)
}
