package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /healthz.
func Health(facade HealthFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := facade.Health(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
