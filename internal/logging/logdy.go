package logging

import (
	"io"
	"net"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog/log"

	"fvgvision-worker-go/internal/config"
)

// logdyWriter forwards every log line to the Logdy UI.
type logdyWriter struct {
	ui logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (int, error) {
	w.ui.LogString(string(p))
	return len(p), nil
}

// StartLogdy starts the embedded Logdy web UI when enabled and returns a
// writer to tee logs into plus the UI URL. It returns a nil writer when the
// UI is disabled.
func StartLogdy(cfg *config.Config) (io.Writer, string) {
	if !cfg.LogdyEnabled {
		return nil, ""
	}
	port := strconv.Itoa(cfg.LogdyPort)
	ui := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: port,
	}, nil)

	url := "http://" + net.JoinHostPort(cfg.LogdyHost, port)
	log.Info().Str("url", url).Msg("Logdy UI available")
	return &logdyWriter{ui: ui}, url
}
