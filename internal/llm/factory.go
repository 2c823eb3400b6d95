package llm

import (
	"log"

	"github.com/gridbeat/gridbeat-api/internal/config"
)

// NewSuggester picks the suggestion provider from configuration: OpenAI when
// an API key is set, the mock otherwise.
func NewSuggester(cfg *config.Config) Suggester {
	if cfg.OpenAIAPIKey != "" {
		log.Println("🎵 Suggestions: OpenAI provider enabled")
		return NewOpenAISuggester(cfg.OpenAIAPIKey)
	}
	log.Println("⚠️  Suggestions: no OPENAI_API_KEY, using mock provider")
	return NewMockSuggester()
}
