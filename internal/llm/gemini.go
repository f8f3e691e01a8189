package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiCompleter calls generateContent on the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	opts   Options
}

func NewGeminiCompleter(ctx context.Context, apiKey string, opts Options) (*GeminiCompleter, error) {
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, opts: opts.withDefaults(ProviderGemini)}, nil
}

func (c *GeminiCompleter) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(c.opts.Temperature))}
	if c.opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.opts.Model, genai.Text(prompt), c.config())
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return firstCandidateText(resp)
}

// text of the first candidate that has any
func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			var sb strings.Builder
			for _, part := range cand.Content.Parts {
				sb.WriteString(part.Text)
			}
			if sb.Len() > 0 {
				return sb.String(), nil
			}
		}
	}
	return "", fmt.Errorf("%w from Gemini", ErrEmptyResponse)
}

func (c *GeminiCompleter) Close() error { return nil }
