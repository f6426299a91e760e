// Package mjpeg serves the annotated frames as a multipart MJPEG (or WEBP)
// stream.
package mjpeg

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/stream"
)

const (
	boundary        = "frame"
	loadingStepDeg  = 30
	defaultInterval = 100 * time.Millisecond
)

// Encoder compresses frames for the web output.
type Encoder interface {
	EncodeFrame(frame *models.Frame) ([]byte, error)
	LoadingImage(angle float64) ([]byte, error)
}

// Publisher keeps the latest frame of the buffer encoded as a multipart part
// and streams it to HTTP clients.
type Publisher struct {
	buffer   *stream.TripleBuffer
	encoder  Encoder
	password string
	mime     string
	interval time.Duration
	logger   zerolog.Logger

	mu       sync.RWMutex
	part     []byte
	cachedID int64
	cached   bool
	angle    float64
}

func NewPublisher(cfg *config.Config, buffer *stream.TripleBuffer, encoder Encoder, logger zerolog.Logger) *Publisher {
	interval := defaultInterval
	if cfg.OutputFPS > 0 {
		interval = time.Second / time.Duration(cfg.OutputFPS)
	}
	mime := "image/jpeg"
	if cfg.ImageType == config.ImageTypeWEBP {
		mime = "image/webp"
	}
	return &Publisher{
		buffer:   buffer,
		encoder:  encoder,
		password: cfg.ImagePassword,
		mime:     mime,
		interval: interval,
		logger:   logger,
	}
}

// Run refreshes the cached part at the output frame rate until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Str("mime", p.mime).Msg("MJPEG publisher started")
	for {
		start := time.Now()
		p.refresh()

		wait := p.interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			p.logger.Warn().Msg("MJPEG publisher is shutting down")
			return nil
		case <-time.After(wait):
		}
	}
}

// refresh encodes the ready frame when it changed, or the next step of the
// loading animation while no frame has been published yet.
func (p *Publisher) refresh() {
	id, frame := p.buffer.ReadyFrame()

	p.mu.RLock()
	unchanged := p.cached && p.cachedID == id
	p.mu.RUnlock()
	if unchanged {
		return
	}

	var (
		data []byte
		err  error
	)
	if frame != nil {
		data, err = p.encoder.EncodeFrame(frame)
	} else {
		data, err = p.encoder.LoadingImage(p.angle)
		p.angle = float64((int(p.angle) - loadingStepDeg + 360) % 360)
	}
	if err != nil {
		p.logger.Warn().Err(err).Int64("frame_id", id).Msg("Failed to encode web frame")
		return
	}

	part := p.buildPart(data)
	p.mu.Lock()
	p.part = part
	if frame != nil {
		p.cachedID, p.cached = id, true
	}
	p.mu.Unlock()
}

func (p *Publisher) buildPart(data []byte) []byte {
	header := fmt.Sprintf("--%s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n", boundary, p.mime, len(data))
	part := make([]byte, 0, len(header)+len(data)+2)
	part = append(part, header...)
	part = append(part, data...)
	return append(part, "\r\n"...)
}

// Part returns the cached multipart part, or nil before the first refresh.
func (p *Publisher) Part() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.part
}

// Authorized checks the login query parameter. A missing parameter is
// always rejected.
func (p *Publisher) Authorized(r *http.Request) bool {
	values, ok := r.URL.Query()["login"]
	return ok && len(values) > 0 && values[0] == p.password
}

// StreamMJPEGHTTP writes the cached part at the output frame rate until the
// client goes away.
func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	if !p.Authorized(r) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Invalid login"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	p.logger.Info().Str("remote", r.RemoteAddr).Msg("New client requires video")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		if part := p.Part(); len(part) > 0 {
			if _, err := w.Write(part); err != nil {
				p.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("Video client disconnected")
				return
			}
			flusher.Flush()
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
