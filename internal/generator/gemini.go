package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kalambet/pfbot/internal/config"
)

const (
	geminiMaxAttempts    = 3
	geminiInitialBackoff = 500 * time.Millisecond
)

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates replies with the Google Gemini API.
type Gemini struct {
	models       contentGenerator
	model        string
	systemPrompt string
	backoff      time.Duration
}

// NewGemini connects a Gemini API client.
func NewGemini(ctx context.Context, apiKey, model, systemPrompt string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newGemini(client.Models, model, systemPrompt), nil
}

func newGemini(models contentGenerator, model, systemPrompt string) *Gemini {
	return &Gemini{
		models:       models,
		model:        model,
		systemPrompt: systemPrompt,
		backoff:      geminiInitialBackoff,
	}
}

func (g *Gemini) Backend() string { return config.BackendGemini }
func (g *Gemini) Model() string   { return g.model }

// Generate sends prompt with the system instruction attached. Transport
// errors and empty candidates are retried with exponential backoff.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if g.systemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.systemPrompt}}},
		}
	}

	var lastErr error
	for attempt := range geminiMaxAttempts {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		switch {
		case err != nil:
			lastErr = err
			slog.Warn("gemini generation failed", "attempt", attempt+1, "error", err)
		case resp == nil || strings.TrimSpace(resp.Text()) == "":
			lastErr = ErrEmptyResponse
			slog.Warn("gemini returned empty response", "attempt", attempt+1)
		default:
			return resp.Text(), nil
		}

		if attempt < geminiMaxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.backoff << attempt):
			}
		}
	}
	return "", fmt.Errorf("gemini: %w", lastErr)
}
