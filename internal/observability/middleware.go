package observability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// route is the matched gin route, or the raw path for unmatched requests.
func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return c.Request.URL.Path
}

// IngressLogger writes one ingress_request line per request. Long-poll
// timeouts on the mailbox route are routine and stay at debug; 4xx is warn
// and 5xx is error.
func IngressLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		case status == http.StatusNoContent:
			event = logger.Debug()
		default:
			event = logger.Info()
		}
		if address := c.Param("address"); address != "" {
			event = event.Str("mailbox", address)
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.Last().Error())
		}
		event.
			Str("route", route(c)).
			Str("method", c.Request.Method).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("remote", c.ClientIP()).
			Msg("ingress_request")
	}
}

// IngressMetrics counts requests served by the named agent's ingress.
func IngressMetrics(agent string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordIngressRequest(agent, route(c), c.Writer.Status(), time.Since(start))
	}
}
