package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	appName string
	version string
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(appName, version string) *HealthHandler {
	return &HealthHandler{appName: appName, version: version}
}

// Register mounts the health routes.
func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/health/liveness", h.liveness)
	r.GET("/health/readiness", h.readiness)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"app":     h.appName,
		"version": h.version,
	})
}

func (h *HealthHandler) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h *HealthHandler) readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
