package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/middleware"
	"github.com/gridbeat/gridbeat-api/internal/models"
	"github.com/gridbeat/gridbeat-api/internal/services"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	db       *gorm.DB
	projects *services.ProjectService
}

func NewProjectHandler(db *gorm.DB, projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{db: db, projects: projects}
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name          *string               `json:"name"`
	Description   *string               `json:"description"`
	BPM           *int                  `json:"bpm"`
	TimeSignature *models.TimeSignature `json:"timeSignature"`
	Tracks        *models.TrackList     `json:"tracks"`
	IsPublic      *bool                 `json:"is_public"`
}

// List returns the projects the caller owns or collaborates on
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	projects, err := h.projects.List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

// Create makes a new project owned by the caller
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.Create(userID, req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// Get returns a single project with tracks and collaborators
func (h *ProjectHandler) Get(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.CanView(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to access this project"})
		return
	}

	c.JSON(http.StatusOK, project)
}

// Update applies a partial update. A tracks payload captures one version of
// the pre-write state before being committed.
func (h *ProjectHandler) Update(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.CanEdit(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this project"})
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.projects.Update(project.ID, userID, services.UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		BPM:           req.BPM,
		TimeSignature: req.TimeSignature,
		Tracks:        req.Tracks,
		IsPublic:      req.IsPublic,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLastTrack):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete removes a project. Owner only.
func (h *ProjectHandler) Delete(c *gin.Context) {
	project, userID, ok := h.loadProject(c)
	if !ok {
		return
	}

	if !models.IsOwner(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this project"})
		return
	}

	if err := h.projects.Delete(project.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project removed"})
}

// loadProject parses the :id param, loads the project and resolves the
// caller. Writes the error response itself when it returns ok=false.
func (h *ProjectHandler) loadProject(c *gin.Context) (*models.Project, uint, bool) {
	userID, okUser := middleware.GetCurrentUserID(c)
	if !okUser {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, 0, false
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return nil, 0, false
	}

	project, err := h.projects.Get(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		}
		return nil, 0, false
	}

	return project, userID, true
}
