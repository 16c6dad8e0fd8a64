// Package root contains endpoints that belong to no resource
package root

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Heartbeat answers load balancer probes
func Heartbeat(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
}

// Validate runs behind the session middleware, reaching it means the session
// is valid
func Validate(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusNoContent)
}
