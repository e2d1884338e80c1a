package analysis

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/ayush/whattobuild/internal/config"
)

// Completer sends one prompt to a generative model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// GeminiCompleter calls the Gemini API through the genai SDK and asks for a JSON response.
type GeminiCompleter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiCompleter creates a completer. An empty API key yields a completer
// whose every call fails with config.ErrMissingCredential, so a missing key
// fails runs instead of the process.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, timeout time.Duration) (Completer, error) {
	if apiKey == "" {
		return missingKey{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}

type missingKey struct{}

func (missingKey) Complete(context.Context, string, float32) (string, error) {
	return "", fmt.Errorf("gemini: GEMINI_API_KEY: %w", config.ErrMissingCredential)
}
