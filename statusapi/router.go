// Package statusapi exposes the engine's latest command over a small REST
// API, grounded on the gin-based HTTP layer used elsewhere in the example
// pack for serving computed results to a frontend.
package statusapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solarhome/gridctl/telemetry"
)

// CommandSource is implemented by engine.Engine.
type CommandSource interface {
	LastCommand() telemetry.Command
}

// NewRouter builds the gin router serving /health and /status.
func NewRouter(source CommandSource) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, source.LastCommand())
	})

	return router
}
