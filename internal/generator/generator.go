// Package generator wraps the external text-generation services behind one
// narrow capability: turn a prompt into reply text.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/pfbot/internal/config"
	"github.com/kalambet/pfbot/internal/ollama"
	"github.com/kalambet/pfbot/internal/proxy"
)

//go:generate mockgen -destination=mocks/generator.go -package=mocks github.com/kalambet/pfbot/internal/generator Generator

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("generator returned an empty response")

// Generator produces reply text for a prompt. Implementations must be safe
// for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Named is implemented by generators that can identify themselves in
// interaction records.
type Named interface {
	Backend() string
	Model() string
}

// Readier is implemented by backends that can verify, before serving, that
// their model is reachable.
type Readier interface {
	Ready(ctx context.Context) error
}

// Describe returns the backend and model of g, or "unknown" when g does not
// implement Named.
func Describe(g Generator) (backend, model string) {
	if n, ok := g.(Named); ok {
		return n.Backend(), n.Model()
	}
	return "unknown", "unknown"
}

// New builds the generator selected by cfg.Generator.Backend.
func New(ctx context.Context, cfg config.Config, systemPrompt string) (Generator, error) {
	switch cfg.Generator.Backend {
	case config.BackendGemini, "":
		return NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, systemPrompt)
	case config.BackendOpenRouter:
		return NewOpenRouter(proxy.NewClient(cfg.OpenRouter.APIKey), cfg.OpenRouter.Model, systemPrompt), nil
	case config.BackendOllama:
		return NewOllama(ollama.New(cfg.Ollama.BaseURL), cfg.Ollama.Model, systemPrompt), nil
	}
	return nil, fmt.Errorf("unknown generator backend %q", cfg.Generator.Backend)
}
