package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Keys set on the gin context by the API middleware.
const (
	RequestIDKey = "request_id"
	StartTimeKey = "start_time"
)

// request decorates e with the request id, route and elapsed time of c.
func request(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if id := c.GetString(RequestIDKey); id != "" {
		e.Str("request_id", id)
	}
	if c.Request != nil {
		e.Str("path", c.Request.URL.Path)
	}
	if v, ok := c.Get(StartTimeKey); ok {
		if t, ok := v.(time.Time); ok {
			e.Dur("elapsed", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return request(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return request(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return request(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return request(c, log.Error()) }
