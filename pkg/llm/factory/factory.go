package factory

import (
	"fmt"

	"smart-meal-be/pkg/llm"
	"smart-meal-be/pkg/llm/gemini"
	"smart-meal-be/pkg/llm/ollama"
)

func NewVisionProvider(providerType, modelName, baseURL, apiKey string) (llm.VisionProvider, error) {
	switch providerType {
	case "gemini", "":
		if modelName == "" {
			modelName = "gemini-1.5-flash"
		}
		p := gemini.NewGeminiProvider(apiKey, modelName)
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		return p, nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		if modelName == "" {
			modelName = "llava"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
