package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/models"
	"github.com/gridbeat/gridbeat-api/internal/services"
)

type ReplaceEventsRequest struct {
	Events []models.NoteEvent `json:"events"`
}

// ReplaceTrackEvents overwrites one track's entire event set in a single
// write, used to merge an accepted AI suggestion or paste a full pattern.
// Exactly one version of the pre-write state is captured; peers are not sent
// per-note toggles and re-fetch the project instead.
func (h *ProjectHandler) ReplaceTrackEvents(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.CanEdit(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this project"})
		return
	}

	var req ReplaceEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.projects.ReplaceTrackEvents(project.ID, c.Param("trackId"), req.Events, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Track not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace track events"})
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}
