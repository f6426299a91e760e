// Package hls encodes the annotated frames into an HLS playlist with an
// external ffmpeg process.
package hls

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"fvgvision-worker-go/internal/config"
	"fvgvision-worker-go/internal/models"
	"fvgvision-worker-go/internal/stream"
)

const (
	playlistName   = "live.m3u8"
	reconnectDelay = 2 * time.Second
	paramsPoll     = time.Second
)

// Streamer pipes raw BGR frames into ffmpeg at the output frame rate. It
// observes the stream to learn the frame size; frames themselves are read
// from the triple buffer.
type Streamer struct {
	buffer    *stream.TripleBuffer
	logger    zerolog.Logger
	path      string
	fps       int
	bandwidth int
	hlsTime   int
	gop       int

	mu      sync.Mutex
	width   int
	height  int
	restart chan struct{}

	retryDelay time.Duration
	newCmd     func(width, height int) *exec.Cmd

	cmd   *exec.Cmd
	stdin io.WriteCloser
}

var _ stream.Observer = (*Streamer)(nil)

func NewStreamer(cfg *config.Config, buffer *stream.TripleBuffer, logger zerolog.Logger) *Streamer {
	fps := cfg.OutputFPS
	if fps <= 0 {
		fps = 10
	}
	s := &Streamer{
		buffer:     buffer,
		logger:     logger,
		path:       cfg.StreamPath,
		fps:        fps,
		bandwidth:  cfg.StreamBandwidth,
		hlsTime:    cfg.StreamHLSTime,
		gop:        cfg.StreamHLSGOP,
		restart:    make(chan struct{}, 1),
		retryDelay: reconnectDelay,
	}
	s.newCmd = s.command
	return s
}

// OnParameters records the new frame size and asks Run to restart ffmpeg.
func (s *Streamer) OnParameters(width, height int, _ time.Duration) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()

	s.logger.Info().Int("width", width).Int("height", height).Msg("Updating HLS video parameters")
	select {
	case s.restart <- struct{}{}:
	default:
	}
}

func (s *Streamer) OnFrame(int64, *models.Frame, time.Duration) {}

func (s *Streamer) size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Run clears the output folder, waits for the stream parameters and feeds
// ffmpeg until ctx is done. Folder and ffmpeg failures are logged and
// retried; Run only returns once ctx is cancelled.
func (s *Streamer) Run(ctx context.Context) error {
	for {
		err := cleanDir(s.path)
		if err == nil {
			break
		}
		s.logger.Error().Err(err).Str("path", s.path).Dur("retry_in", s.retryDelay).Msg("Cannot prepare HLS folder")
		if !sleep(ctx, s.retryDelay) {
			return nil
		}
	}

	for w, _ := s.size(); w == 0; w, _ = s.size() {
		s.logger.Warn().Dur("wait", paramsPoll).Msg("Waiting for video input")
		select {
		case <-ctx.Done():
			return nil
		case <-s.restart:
		case <-time.After(paramsPoll):
		}
	}
	// the first start already uses the latest size
	select {
	case <-s.restart:
	default:
	}

	if !s.startWithRetry(ctx) {
		return nil
	}
	defer s.stop()
	s.logger.Info().Str("path", s.path).Msg("Start generating HLS output")

	interval := time.Second / time.Duration(s.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Warn().Msg("HLS streamer is shutting down")
			return nil
		case <-s.restart:
			s.stop()
			if !s.startWithRetry(ctx) {
				return nil
			}
		case <-ticker.C:
			if err := s.send(); err != nil {
				s.logger.Warn().Err(err).Dur("retry_in", s.retryDelay).Msg("Broken pipe to ffmpeg, restarting")
				s.stop()
				if !sleep(ctx, s.retryDelay) || !s.startWithRetry(ctx) {
					return nil
				}
			}
		}
	}
}

// startWithRetry starts ffmpeg, retrying every retryDelay. It reports false
// when ctx ends first.
func (s *Streamer) startWithRetry(ctx context.Context) bool {
	for {
		err := s.start()
		if err == nil {
			return true
		}
		s.logger.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("Cannot start ffmpeg")
		if !sleep(ctx, s.retryDelay) {
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Streamer) send() error {
	_, frame := s.buffer.ReadyFrame()
	w, h := s.size()
	if frame == nil || frame.Width != w || frame.Height != h {
		return nil
	}
	_, err := s.stdin.Write(frame.Data)
	return err
}

// command builds the ffmpeg invocation for a w x h BGR24 input.
func (s *Streamer) command(width, height int) *exec.Cmd {
	return ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"vcodec":  "rawvideo",
		"pix_fmt": "bgr24",
		"s":       fmt.Sprintf("%dx%d", width, height),
		"r":       strconv.Itoa(s.fps),
	}).Output(filepath.Join(s.path, playlistName), ffmpeg.KwArgs{
		"c:v":           "libx264",
		"pix_fmt":       "yuv420p",
		"preset":        "ultrafast",
		"tune":          "zerolatency",
		"movflags":      "+faststart",
		"g":             strconv.Itoa(s.gop),
		"b:v":           fmt.Sprintf("%dk", s.bandwidth),
		"f":             "hls",
		"hls_time":      strconv.Itoa(s.hlsTime),
		"hls_list_size": "3",
		"hls_flags":     "delete_segments",
		"vsync":         "0",
	}).OverWriteOutput().Compile()
}

func (s *Streamer) start() error {
	w, h := s.size()
	cmd := s.newCmd(w, h)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	s.cmd, s.stdin = cmd, stdin
	s.logger.Info().Strs("args", cmd.Args).Msg("HLS stream opened")
	return nil
}

func (s *Streamer) stop() {
	if s.cmd == nil {
		return
	}
	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		s.logger.Debug().Err(err).Msg("ffmpeg exited")
	}
	s.cmd, s.stdin = nil, nil
	s.logger.Warn().Msg("External ffmpeg process is shutting down")
}

// cleanDir removes the files left in dir by a previous run, creating dir
// when it does not exist.
func cleanDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("clean HLS folder: %w", err)
		}
	}
	return nil
}
