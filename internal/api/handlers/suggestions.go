package handlers

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gridbeat/gridbeat-api/internal/llm"
	"github.com/gridbeat/gridbeat-api/internal/logger"
	"github.com/gridbeat/gridbeat-api/internal/models"
)

const maxContextEvents = 64

type SuggestionHandler struct {
	projects  *ProjectHandler
	suggester llm.Suggester
	fallback  llm.Suggester
}

func NewSuggestionHandler(projects *ProjectHandler, suggester llm.Suggester) *SuggestionHandler {
	return &SuggestionHandler{
		projects:  projects,
		suggester: suggester,
		fallback:  llm.NewMockSuggester(),
	}
}

type SuggestionRequest struct {
	Prompt string   `json:"prompt"`
	Grid   llm.Grid `json:"grid"`
}

// Suggest asks the configured provider for a candidate note layer fitting the
// project. Provider failures degrade to the mock patterns rather than erroring,
// so the endpoint stays usable when the upstream model is down.
func (h *SuggestionHandler) Suggest(c *gin.Context) {
	project, userID, ok := h.projects.loadProject(c)
	if !ok {
		return
	}

	if !models.CanView(project, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to access this project"})
		return
	}

	var req SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	llmReq := buildSuggestionRequest(project, req)

	suggestion, err := h.suggester.Suggest(c.Request.Context(), llmReq)
	if err != nil {
		logger.Warn("Suggestion provider failed, falling back to mock", logger.Fields{
			"provider":   h.suggester.Name(),
			"project_id": project.ID,
			"error":      err.Error(),
		})
		suggestion, err = h.fallback.Suggest(c.Request.Context(), llmReq)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating suggestions"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

// buildSuggestionRequest assembles the model context: project parameters,
// per-track summaries and the tail of the first track's events quantized onto
// the request grid.
func buildSuggestionRequest(project *models.Project, req SuggestionRequest) llm.Request {
	grid := req.Grid.Normalize()

	tracks := make([]llm.TrackSummary, 0, len(project.Tracks))
	for _, t := range project.Tracks {
		tracks = append(tracks, llm.TrackSummary{
			Name:       t.Name,
			Instrument: t.Instrument,
			EventCount: len(t.Events),
		})
	}

	var existing []llm.GridNote
	if len(project.Tracks) > 0 {
		events := project.Tracks[0].Events
		if len(events) > maxContextEvents {
			events = events[len(events)-maxContextEvents:]
		}
		for _, ev := range events {
			if ev.Type != models.EventTypeNote {
				continue
			}
			step := int(math.Round(ev.Time / grid.StepSeconds))
			if step < 0 || step >= grid.Steps {
				continue
			}
			durationSteps := int(math.Round(ev.Duration / grid.StepSeconds))
			if durationSteps < 1 {
				durationSteps = 1
			}
			existing = append(existing, llm.GridNote{
				Note:          ev.Note,
				Step:          step,
				DurationSteps: durationSteps,
				Velocity:      ev.Velocity,
			})
		}
	}

	return llm.Request{
		Prompt: req.Prompt,
		Grid:   grid,
		BPM:    project.BPM,
		TimeSignature: fmt.Sprintf("%d/%d",
			project.TimeSignature.Numerator, project.TimeSignature.Denominator),
		Tracks:   tracks,
		Existing: existing,
	}
}
