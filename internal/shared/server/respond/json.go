package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload any) { JSON(c, http.StatusOK, payload) }

func Created(c *gin.Context, payload any) { JSON(c, http.StatusCreated, payload) }

// Accepted is used when work was handed to the queue instead of run inline.
func Accepted(c *gin.Context, payload any) { JSON(c, http.StatusAccepted, payload) }

// NoContent writes an empty 204; hook webhooks and deletes use it.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}
