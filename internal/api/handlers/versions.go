package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/models"
	"github.com/gridbeat/gridbeat-api/internal/services"
)

// ListVersions returns a project's version history, newest first
func (h *ProjectHandler) ListVersions(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.CanView(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to access this project"})
		return
	}

	versions, err := h.projects.Versions().List(project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list versions"})
		return
	}

	out := make([]gin.H, 0, len(versions))
	for _, v := range versions {
		out = append(out, gin.H{
			"id":          v.ID,
			"version":     v.Version,
			"description": v.Description,
			"created_at":  v.CreatedAt,
			"created_by":  v.Creator.Username,
		})
	}

	c.JSON(http.StatusOK, out)
}

// RestoreVersion rolls the project's tracks back to a snapshot. The current
// state is checkpointed first so the restore itself can be undone.
func (h *ProjectHandler) RestoreVersion(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.CanEdit(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this project"})
		return
	}

	versionID, err := strconv.ParseUint(c.Param("versionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Version not found"})
		return
	}

	restored, tracks, err := h.projects.RestoreVersion(project.ID, uint(versionID), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Version not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restore version"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Restored to version",
		"version": restored.Version,
		"tracks":  tracks,
	})
}
