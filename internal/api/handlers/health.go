package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	WorkerID     string
	Version      string
	Environment  string
	Capabilities []string
}

func NewHealthHandler(workerID, version, environment string, capabilities []string) *HealthHandler {
	return &HealthHandler{
		WorkerID:     workerID,
		Version:      version,
		Environment:  environment,
		Capabilities: capabilities,
	}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	WorkerID string `json:"worker_id" example:"worker-1"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"worker-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Environment  string   `json:"environment" example:"production"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Liveness probe
// @Description Plain text answer used by the camera dashboards
// @Tags health
// @Produce plain
// @Success 200 {string} string "Service is up!"
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "Service is up!")
}

// @Summary Health check
// @Description Check if the worker is healthy and responsive
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		WorkerID: h.WorkerID,
	})
}

// @Summary Worker information
// @Description Get basic worker information and the enabled features
// @Tags health
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router /info [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID:     h.WorkerID,
		Status:       "running",
		Version:      h.Version,
		Environment:  h.Environment,
		Capabilities: h.Capabilities,
	})
}
