package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/audio"
	"github.com/gridbeat/gridbeat-api/internal/logger"
	"github.com/gridbeat/gridbeat-api/internal/metrics"
	"github.com/gridbeat/gridbeat-api/internal/models"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9-_]+`)

type ExportHandler struct {
	projects *ProjectHandler
	cw       *metrics.Client
	sentry   *metrics.SentryMetrics
}

func NewExportHandler(projects *ProjectHandler, cw *metrics.Client) *ExportHandler {
	return &ExportHandler{
		projects: projects,
		cw:       cw,
		sentry:   metrics.NewSentryMetrics(),
	}
}

// Export renders the project's current timeline to a 16-bit mono WAV file.
// Rendering is a pure function of the track state, so the same project state
// always downloads as byte-identical audio.
func (h *ExportHandler) Export(c *gin.Context) {
	project, userID, ok := h.projects.loadProject(c)
	if !ok {
		return
	}

	if !models.CanView(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to export this project"})
		return
	}

	start := time.Now()
	samples := audio.Render(project)
	wav := audio.WAV(samples, audio.SampleRate)
	renderTime := time.Since(start)

	if h.cw != nil {
		h.cw.RecordRenderDuration(renderTime, len(samples))
	}
	h.sentry.RecordRender(c.Request.Context(), project.ID, len(samples), renderTime)

	logger.Info("Project exported", logger.Fields{
		"project_id":  project.ID,
		"samples":     len(samples),
		"duration_ms": renderTime.Milliseconds(),
	})

	safeName := unsafeFilenameChars.ReplaceAllString(project.Name, "_")
	if safeName == "" {
		safeName = "project"
	}
	filename := fmt.Sprintf("%s-%d.wav", safeName, time.Now().UnixMilli())

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Length", strconv.Itoa(len(wav)))
	c.Data(http.StatusOK, "audio/wav", wav)
}
