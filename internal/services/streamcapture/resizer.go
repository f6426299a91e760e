package streamcapture

import (
	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
)

// ResizeFunc scales a frame to width x height.
type ResizeFunc func(frame *models.Frame, width, height int) (*models.Frame, error)

// Resizer applies the forced resolution limit. A source wider than the limit
// is scaled to the limit width; otherwise a source taller than the limit is
// scaled to the limit height. The aspect ratio is kept.
type Resizer struct {
	enabled bool
	maxW    int
	maxH    int
	resize  ResizeFunc
	logger  zerolog.Logger

	width  int
	height int
	active bool
}

func NewResizer(cfg *config.Config, resize ResizeFunc, logger zerolog.Logger) *Resizer {
	return &Resizer{
		enabled: cfg.ForcedResolutionEnabled,
		maxW:    cfg.ForcedWidth,
		maxH:    cfg.ForcedHeight,
		resize:  resize,
		logger:  logger,
	}
}

// Init computes the output size for a source of width x height.
func (r *Resizer) Init(width, height int) (int, int) {
	r.width, r.height, r.active = width, height, false

	if r.enabled && r.resize != nil {
		switch {
		case width > r.maxW:
			r.width = r.maxW
			r.height = height * r.maxW / width
			r.active = true
		case height > r.maxH:
			r.width = width * r.maxH / height
			r.height = r.maxH
			r.active = true
		}
	}

	if r.active {
		r.logger.Warn().
			Int("source_width", width).
			Int("source_height", height).
			Int("width", r.width).
			Int("height", r.height).
			Msg("Source image size is changed")
	} else {
		r.logger.Info().Int("width", r.width).Int("height", r.height).Msg("Source image size")
	}
	return r.width, r.height
}

// Apply resizes frame when the source exceeds the limit.
func (r *Resizer) Apply(frame *models.Frame) (*models.Frame, error) {
	if !r.active {
		return frame, nil
	}
	return r.resize(frame, r.width, r.height)
}
