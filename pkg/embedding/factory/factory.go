package factory

import (
	"fmt"

	"ai-researcher-be/pkg/embedding"
)

// NewEmbeddingProvider selects the embedding backend by name.
func NewEmbeddingProvider(providerType, model, ollamaBaseURL, geminiKey string) (embedding.EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return embedding.NewOllamaProvider(ollamaBaseURL, model), nil
	case "gemini":
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires GOOGLE_GEMINI_API_KEY")
		}
		return embedding.NewGeminiProvider(geminiKey), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
