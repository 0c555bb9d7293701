// Package factory builds the llm.Provider named by configuration.
package factory

import (
	"fmt"

	"github.com/industryrunners/pulse/internal/config"
	"github.com/industryrunners/pulse/internal/llm"
	"github.com/industryrunners/pulse/internal/llm/claude"
	"github.com/industryrunners/pulse/internal/llm/ollama"
	"github.com/industryrunners/pulse/internal/llm/openai"
)

// New returns the provider selected by cfg.Provider.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
