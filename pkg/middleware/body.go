package middleware

import (
	"net/http"

	"bitwise74/account-api/pkg/httpx"

	"github.com/gin-gonic/gin"
)

// BodySizeLimiter caps request bodies at maxBytes. Bind errors past the limit
// surface as *http.MaxBytesError in the handlers.
func BodySizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Fast reject for legit requests
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httpx.ErrorBody{
				Status:    "fail",
				Code:      "body_too_large",
				Message:   "Request body size exceeds limit",
				RequestID: httpx.RequestID(c),
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
