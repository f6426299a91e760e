package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fvgvision-worker-go/internal/logging"
	"fvgvision-worker-go/internal/services/aggregation"
)

const (
	statsWriteWait = 5 * time.Second
	statsPongWait  = 60 * time.Second
)

// StatsSource exposes the last published aggregation window.
type StatsSource interface {
	Stats() aggregation.Snapshot
}

type StatsHandler struct {
	source   StatsSource
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewStatsHandler(source StatsSource, interval time.Duration) *StatsHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &StatsHandler{
		source:   source,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// @Summary Analytics statistics
// @Description Statistics of the last aggregation window
// @Tags stats
// @Produce json
// @Success 200 {object} aggregation.Snapshot
// @Router /stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Stats())
}

// @Summary Analytics statistics feed
// @Description Websocket that pushes the statistics snapshot every second
// @Tags stats
// @Router /ws/stats [get]
func (h *StatsHandler) StreamStats(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c).Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	logging.Info(c).Str("remote", c.Request.RemoteAddr).Msg("Stats viewer connected")

	// The reader only services control frames; it ends the feed on close.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(statsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(statsPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		_ = conn.SetWriteDeadline(time.Now().Add(statsWriteWait))
		if err := conn.WriteJSON(h.source.Stats()); err != nil {
			logging.Debug(c).Err(err).Msg("Stats viewer disconnected")
			return
		}
		select {
		case <-gone:
			logging.Info(c).Msg("Stats viewer left")
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
