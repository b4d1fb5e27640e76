package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"pdfsearch/internal/shared/server/respond"
	"pdfsearch/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error envelope carrying the request ID.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			reqID := RequestIDFromContext(c)
			fields := map[string]any{
				"request_id": reqID,
				"error":      rec,
				"stack":      string(debug.Stack()),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"route":      c.FullPath(),
			}
			if itemID := c.Param("id"); itemID != "" {
				fields["item_id"] = itemID
			}
			telemetry.Error("http.panic", fields)
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", map[string]string{
				"requestId": reqID,
			})
		}()
		c.Next()
	}
}
