package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/gridbeat/gridbeat-api/internal/logger"
)

const (
	providerNameOpenAI = "openai"
	suggestionModel    = openai.ChatModelGPT4oMini
	maxSuggestionToks  = 600
	temperature        = 0.6
)

// OpenAISuggester asks an OpenAI chat model for a note layer matching the
// grid constraints and validates whatever comes back.
type OpenAISuggester struct {
	client *openai.Client
}

// NewOpenAISuggester creates a suggester backed by the OpenAI API.
func NewOpenAISuggester(apiKey string) *OpenAISuggester {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAISuggester{client: &client}
}

// Name returns the provider name.
func (s *OpenAISuggester) Name() string {
	return providerNameOpenAI
}

// Suggest implements Suggester.
func (s *OpenAISuggester) Suggest(ctx context.Context, req Request) (*Suggestion, error) {
	grid := req.Grid.Normalize()
	start := time.Now()

	span := sentry.StartSpan(ctx, "llm.suggest")
	span.SetTag("provider", providerNameOpenAI)
	defer span.Finish()

	prompt := req.Prompt
	if prompt == "" {
		prompt = "Suggest a simple harmony that fits the existing notes. Prefer consonant intervals and a repeatable loop."
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: suggestionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildSystemPrompt(req, grid)),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxSuggestionToks),
	})
	if err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai suggestion request failed: %w", err)
	}

	logger.Debug("Suggestion generated", logger.Fields{
		"provider":    providerNameOpenAI,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	raw := resp.Choices[0].Message.Content

	parsed := parseSuggestionJSON(raw)
	if parsed == nil {
		// Unparseable model output is surfaced rather than failed: the
		// client shows the raw text and no notes get merged.
		return &Suggestion{
			Title:       "AI Suggestion",
			Description: "Model response could not be parsed as JSON. Showing raw suggestion text.",
			Notes:       []GridNote{},
			Raw:         raw,
		}, nil
	}

	title := parsed.Title
	if title == "" {
		title = "AI Suggestion"
	}
	return &Suggestion{
		Title:       title,
		Description: parsed.Description,
		Notes:       sanitizeNotes(parsed.Notes, grid),
	}, nil
}

func buildSystemPrompt(req Request, grid Grid) string {
	contextJSON, _ := json.Marshal(map[string]interface{}{
		"bpm":           req.BPM,
		"timeSignature": req.TimeSignature,
		"tracks":        req.Tracks,
	})
	existingJSON, _ := json.Marshal(req.Existing)

	return fmt.Sprintf(`You are a music composition assistant.
Return ONLY valid JSON (no markdown) with this shape:
{"title": string, "description": string, "notes": [{"note": int, "step": int, "durationSteps": int, "velocity": int}]}
Constraints:
- steps=%d, stepSeconds=%g
- pitchMin=%d, pitchMax=%d
- Use MIDI note numbers.
- Provide 4 to 12 notes that sound musical as a harmony/melody layer.
Project context: %s
Existing notes: %s`,
		grid.Steps, grid.StepSeconds, grid.PitchMin, grid.PitchMax,
		string(contextJSON), string(existingJSON))
}

// parseSuggestionJSON parses the model output, tolerating prose around the
// JSON object by retrying on the outermost brace span.
func parseSuggestionJSON(raw string) *Suggestion {
	var s Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err == nil && s.Notes != nil {
		return &s
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}
	s = Suggestion{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &s); err != nil || s.Notes == nil {
		return nil
	}
	return &s
}
