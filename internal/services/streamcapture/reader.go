// Package streamcapture reads the video source and fans frames out to the
// stream observers, reconnecting when the source goes away.
package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/alarm"
	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/stream"
)

// ErrSourceUnavailable is returned when the source cannot be opened or
// every reconnect attempt failed.
var ErrSourceUnavailable = errors.New("video source unavailable")

const defaultSourceFPS = 25

// Source is an opened video stream.
type Source interface {
	Open(url string) error
	// Read fills frame with the next image. It returns false on end of
	// stream or a read error.
	Read(frame *models.Frame) bool
	// Rewind seeks back to the first frame, for file sources.
	Rewind()
	Info() (width, height int, fps float64)
	Close()
}

// Reader drives a Source.
type Reader struct {
	url          string
	source       Source
	resizer      *Resizer
	observable   *stream.Observable
	noConnection func(width, height int) *models.Frame
	logger       zerolog.Logger
	clock        alarm.Clock

	defaultFPS    float64
	reconnectWait time.Duration
	maxAttempts   int
	frameLimit    int64
}

// Option configures a Reader.
type Option func(*Reader)

// WithFrameLimit stops reading once the frame index reaches limit.
func WithFrameLimit(limit int64) Option {
	return func(r *Reader) { r.frameLimit = limit }
}

// WithNoConnectionImage sets the placeholder emitted while reconnecting.
func WithNoConnectionImage(fn func(width, height int) *models.Frame) Option {
	return func(r *Reader) { r.noConnection = fn }
}

func NewReader(cfg *config.Config, source Source, resizer *Resizer, observable *stream.Observable, logger zerolog.Logger, opts ...Option) *Reader {
	r := &Reader{
		url:           cfg.VideoSource,
		source:        source,
		resizer:       resizer,
		observable:    observable,
		noConnection:  models.NewFrame,
		logger:        logger,
		clock:         time.Now,
		defaultFPS:    cfg.DefaultSourceFPS,
		reconnectWait: cfg.SourceReconnectWait,
		maxAttempts:   cfg.SourceMaxReconnects,
	}
	if r.defaultFPS <= 0 {
		r.defaultFPS = defaultSourceFPS
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads until ctx is done, the frame limit is reached or the source is
// lost for good. exit is called on the last two so the rest of the worker
// can stop.
func (r *Reader) Run(ctx context.Context, exit func()) error {
	if err := r.source.Open(r.url); err != nil {
		r.logger.Error().Err(err).Str("source", r.url).Msg("Video source is not available")
		exit()
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer r.source.Close()

	width, height, fps := r.source.Info()
	if fps <= 0 {
		r.logger.Warn().Float64("fps", fps).Float64("default_fps", r.defaultFPS).Msg("Source reports no frame rate, using default")
		fps = r.defaultFPS
	}
	declared := time.Duration(float64(time.Second) / fps)
	r.logger.Info().Str("source", r.url).Int("width", width).Int("height", height).Float64("fps", fps).Msg("Video source opened")

	width, height = r.resizer.Init(width, height)
	noConnection := r.noConnection(width, height)
	r.observable.NotifyParameters(width, height, declared)

	var index int64
	recovery := true
	timer := alarm.NewTimer(r.clock)
	timer.Start()

	for r.continueReading(ctx, index) {
		frame := &models.Frame{}
		if !r.source.Read(frame) {
			if !recovery {
				recovery = true
				r.source.Rewind()
				continue
			}
			if !r.reconnect(ctx, declared, timer, noConnection) {
				if ctx.Err() != nil {
					break
				}
				r.logger.Error().Str("source", r.url).Msg("Video source is not available, closing program")
				exit()
				return ErrSourceUnavailable
			}
			timer.Start()
			continue
		}
		recovery = false
		index = nextIndex(index)

		frame, err := r.resizer.Apply(frame)
		if err != nil {
			r.logger.Warn().Err(err).Int64("index", index).Msg("Failed to resize frame")
			continue
		}

		acquisition := timer.Stop()
		r.logger.Debug().Int64("index", index).Dur("acquisition", acquisition).Dur("declared", declared).Msg("Frame read")
		r.observable.NotifyFrame(index, frame, maxDuration(declared, acquisition))

		if !sleep(ctx, declared-acquisition) {
			break
		}
		timer.Start()
	}

	if ctx.Err() == nil && r.limitReached(index) {
		r.logger.Info().Int64("index", index).Int64("limit", r.frameLimit).Msg("Frame limit reached, closing program")
		exit()
	}
	r.logger.Warn().Int64("index", index).Msg("Frame reader is shutting down")
	return nil
}

func (r *Reader) continueReading(ctx context.Context, index int64) bool {
	if ctx.Err() != nil {
		return false
	}
	return !r.limitReached(index)
}

func (r *Reader) limitReached(index int64) bool {
	return r.frameLimit > 0 && index >= r.frameLimit
}

// reconnect reopens the source, emitting a no-connection frame per attempt.
func (r *Reader) reconnect(ctx context.Context, declared time.Duration, timer *alarm.Timer, noConnection *models.Frame) bool {
	for attempt := 1; attempt < r.maxAttempts; attempt++ {
		r.logger.Warn().
			Int("attempt", attempt).
			Dur("wait", r.reconnectWait).
			Msg("Video source is not available, trying to reconnect")

		r.source.Close()
		if !sleep(ctx, r.reconnectWait) {
			return false
		}

		r.observable.NotifyFrame(models.NoConnectionFrameIndex, noConnection, maxDuration(declared, timer.Elapsed()))

		if err := r.source.Open(r.url); err == nil {
			r.logger.Warn().Int("attempt", attempt).Msg("Video source is available again")
			return true
		}
	}
	return false
}

func nextIndex(index int64) int64 {
	return (index + 1) % models.MaxFrameIndex
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// sleep waits for d or until ctx is done. It reports false when ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
