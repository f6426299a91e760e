package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fvgvision-worker-go/internal/logging"
)

// VideoStreamer writes the live multipart stream to one client.
type VideoStreamer interface {
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request)
}

type VideoHandler struct {
	streamer VideoStreamer
}

func NewVideoHandler(streamer VideoStreamer) *VideoHandler {
	return &VideoHandler{streamer: streamer}
}

// @Summary Live video
// @Description Annotated frames as multipart/x-mixed-replace. Requires the image password.
// @Tags video
// @Produce multipart/x-mixed-replace
// @Param login query string true "Image password"
// @Success 200 {string} string "MJPEG stream, or Invalid login"
// @Router /video [get]
func (h *VideoHandler) Stream(c *gin.Context) {
	logging.Debug(c).Str("remote", c.Request.RemoteAddr).Msg("Video requested")
	h.streamer.StreamMJPEGHTTP(c.Writer, c.Request)
}
