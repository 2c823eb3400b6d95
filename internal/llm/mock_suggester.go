package llm

import (
	"context"
	"strings"
)

// MockSuggester serves canned patterns when no LLM provider is configured,
// keyed off the prompt text. It keeps the suggestion endpoint usable in local
// and self-hosted deployments.
type MockSuggester struct{}

func NewMockSuggester() *MockSuggester {
	return &MockSuggester{}
}

func (s *MockSuggester) Name() string {
	return "mock"
}

func (s *MockSuggester) Suggest(_ context.Context, req Request) (*Suggestion, error) {
	promptLower := strings.ToLower(req.Prompt)

	var title, description string
	var notes []GridNote

	switch {
	case strings.Contains(promptLower, "bass"):
		title = "Mock Bassline"
		description = "AI services unavailable. Using a simple bassline demo."
		notes = []GridNote{
			{Note: 36, Step: 0, DurationSteps: 4, Velocity: 100},
			{Note: 41, Step: 4, DurationSteps: 4, Velocity: 100},
			{Note: 43, Step: 8, DurationSteps: 4, Velocity: 100},
			{Note: 36, Step: 12, DurationSteps: 4, Velocity: 100},
		}
	case strings.Contains(promptLower, "melody"), strings.Contains(promptLower, "lead"):
		title = "Mock Melody"
		description = "AI services unavailable. Using a simple melody demo."
		notes = []GridNote{
			{Note: 72, Step: 0, DurationSteps: 1, Velocity: 100},
			{Note: 74, Step: 1, DurationSteps: 1, Velocity: 100},
			{Note: 76, Step: 2, DurationSteps: 1, Velocity: 100},
			{Note: 77, Step: 3, DurationSteps: 1, Velocity: 100},
			{Note: 79, Step: 4, DurationSteps: 2, Velocity: 100},
			{Note: 77, Step: 6, DurationSteps: 1, Velocity: 100},
			{Note: 76, Step: 7, DurationSteps: 1, Velocity: 100},
			{Note: 74, Step: 8, DurationSteps: 2, Velocity: 100},
		}
	default:
		title = "Mock Harmony (Demo)"
		description = "AI services unavailable. Using a simple harmony demo."
		notes = []GridNote{
			{Note: 60, Step: 0, DurationSteps: 2, Velocity: 100},
			{Note: 64, Step: 2, DurationSteps: 2, Velocity: 100},
			{Note: 67, Step: 4, DurationSteps: 2, Velocity: 100},
			{Note: 72, Step: 6, DurationSteps: 2, Velocity: 100},
		}
	}

	// Canned patterns are already in range; they skip grid clamping so a
	// bassline demo stays in the bass register.
	return &Suggestion{
		Title:       title,
		Description: description,
		Notes:       notes,
	}, nil
}
