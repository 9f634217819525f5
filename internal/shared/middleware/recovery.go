package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"themepark-backend/internal/infrastructure/metrics"
	"themepark-backend/internal/shared/response"
)

const codeHandlerPanic = "SYS500"

// Recovery converts a handler panic into the standard 500 envelope. The panic
// value and stack are logged with the request id; neither reaches the client.
// http.ErrAbortHandler is re-panicked so net/http can drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.HandlerPanics.WithLabelValues(route).Inc()

			log.Error().
				Str("request_id", c.GetString("request_id")).
				Str("method", c.Request.Method).
				Str("route", route).
				Str("client_ip", clientIP(c)).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("handler panic recovered")

			// headers already sent: nothing useful left to write
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.ErrorResponse(c, http.StatusInternalServerError, codeHandlerPanic, "internal server error")
			c.Abort()
		}()

		c.Next()
	}
}
