package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/logger"
	"github.com/gridbeat/gridbeat-api/internal/middleware"
	"github.com/gridbeat/gridbeat-api/internal/realtime"
)

type RealtimeHandler struct {
	hub    *realtime.Hub
	engine *realtime.Engine
}

func NewRealtimeHandler(hub *realtime.Hub, engine *realtime.Engine) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, engine: engine}
}

// Connect upgrades the request to a WebSocket session on the realtime
// channel. The caller joins a project and exchanges note toggles from there.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := realtime.ServeWS(h.hub, h.engine, c.Writer, c.Request, userID); err != nil {
		logger.Warn("WebSocket upgrade failed", logger.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
