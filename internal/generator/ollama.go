package generator

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/pfbot/internal/config"
	"github.com/kalambet/pfbot/internal/ollama"
)

// Ollama generates replies with a model served by a local Ollama instance.
type Ollama struct {
	client       *ollama.Client
	model        string
	systemPrompt string
	progress     io.Writer
}

// NewOllama wraps an Ollama client.
func NewOllama(client *ollama.Client, model, systemPrompt string) *Ollama {
	return &Ollama{client: client, model: model, systemPrompt: systemPrompt, progress: io.Discard}
}

// WithProgress sets where Ready writes model pull progress.
func (o *Ollama) WithProgress(w io.Writer) *Ollama {
	o.progress = w
	return o
}

func (o *Ollama) Backend() string { return config.BackendOllama }
func (o *Ollama) Model() string   { return o.model }

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	var msgs []ollama.Message
	if o.systemPrompt != "" {
		msgs = append(msgs, ollama.Message{Role: "system", Content: o.systemPrompt})
	}
	msgs = append(msgs, ollama.Message{Role: "user", Content: prompt})

	text, err := o.client.Chat(ctx, o.model, msgs, nil)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}
	return text, nil
}

// Ready makes sure the server is up and the model is pulled and warm.
func (o *Ollama) Ready(ctx context.Context) error {
	return ollama.EnsureReady(ctx, o.client, o.model, o.progress)
}
