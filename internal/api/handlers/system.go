package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler reports process level figures.
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
}

func NewSystemHandler(workerID string) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: time.Now(),
	}
}

// @Summary Get system stats
// @Description Memory, goroutine and uptime figures of the worker process
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"worker_id":      h.WorkerID,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"cpu_cores":      runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
		"timestamp":      time.Now().Unix(),
	})
}
