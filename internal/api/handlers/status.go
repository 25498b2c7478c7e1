package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/gameradar/internal/services"
)

// JanitorStatusProvider is satisfied by *services.CacheJanitor
type JanitorStatusProvider interface {
	GetStatus() services.JanitorStatus
}

type StatusHandler struct {
	janitor JanitorStatusProvider
	backend string
}

func NewStatusHandler(janitor JanitorStatusProvider, backend string) *StatusHandler {
	return &StatusHandler{
		janitor: janitor,
		backend: backend,
	}
}

// GetStatus returns the cache backend in use and the janitor's last run
func (h *StatusHandler) GetStatus(c *gin.Context) {
	resp := gin.H{"cache_backend": h.backend}
	if h.janitor != nil {
		resp["janitor"] = h.janitor.GetStatus()
	}
	c.JSON(http.StatusOK, resp)
}

// Health is the liveness probe
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
