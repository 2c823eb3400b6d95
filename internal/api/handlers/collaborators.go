package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/models"
)

type AddCollaboratorRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

// ListCollaborators returns a project's collaborator entries
func (h *ProjectHandler) ListCollaborators(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.CanView(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to view this project"})
		return
	}

	c.JSON(http.StatusOK, project.Collaborators)
}

// AddCollaborator grants a user access to the project by email. Owner only.
func (h *ProjectHandler) AddCollaborator(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.IsOwner(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to add collaborators"})
		return
	}

	var req AddCollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleEditor
	}
	if role != models.RoleEditor && role != models.RoleViewer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be editor or viewer"})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	for _, collab := range project.Collaborators {
		if collab.UserID == user.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User is already a collaborator"})
			return
		}
	}

	collaborator := models.Collaborator{
		ProjectID: project.ID,
		UserID:    user.ID,
		Role:      role,
	}
	if err := h.db.Create(&collaborator).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add collaborator"})
		return
	}
	collaborator.User = user

	c.JSON(http.StatusOK, collaborator)
}

// RemoveCollaborator revokes a user's access. Owner only; the owner's own
// entry cannot be removed.
func (h *ProjectHandler) RemoveCollaborator(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.IsOwner(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to remove collaborators"})
		return
	}

	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if project.OwnerID == uint(targetID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot remove project owner"})
		return
	}

	if err := h.db.Where("project_id = ? AND user_id = ?", project.ID, uint(targetID)).
		Delete(&models.Collaborator{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove collaborator"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed"})
}
