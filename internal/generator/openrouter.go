package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/pfbot/internal/config"
	"github.com/kalambet/pfbot/internal/proxy"
)

// OpenRouter generates replies through the OpenRouter chat completions API.
type OpenRouter struct {
	client       *proxy.Client
	model        string
	systemPrompt string
}

// NewOpenRouter wraps an OpenRouter client.
func NewOpenRouter(client *proxy.Client, model, systemPrompt string) *OpenRouter {
	return &OpenRouter{client: client, model: model, systemPrompt: systemPrompt}
}

func (o *OpenRouter) Backend() string { return config.BackendOpenRouter }
func (o *OpenRouter) Model() string   { return o.model }

func (o *OpenRouter) Generate(ctx context.Context, prompt string) (string, error) {
	var msgs []proxy.Message
	if o.systemPrompt != "" {
		msgs = append(msgs, proxy.Message{Role: "system", Content: o.systemPrompt})
	}
	msgs = append(msgs, proxy.Message{Role: "user", Content: prompt})

	resp, err := o.client.Chat(ctx, proxy.ChatRequest{Model: o.model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	text := resp.Content()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openrouter: %w", ErrEmptyResponse)
	}
	return text, nil
}

// Ready checks that the configured model is listed by OpenRouter.
func (o *OpenRouter) Ready(ctx context.Context) error {
	models, err := o.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("listing openrouter models: %w", err)
	}
	for _, m := range models {
		if m.ID == o.model {
			return nil
		}
	}
	return fmt.Errorf("openrouter model %q not found", o.model)
}
