// Package llm wraps the chat APIs the answer engine can call behind one
// single-prompt Completer interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Completer sends one user prompt and returns the model's text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// DefaultModels is used when Options.Model is empty.
var DefaultModels = map[Provider]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: string(anthropic.ModelClaudeHaiku4_5),
}

const (
	// DefaultTemperature keeps answers close to the retrieved context.
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 4096
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response")

type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int  // anthropic only
	JSON        bool // ask for a JSON object where the provider supports it
}

func (o Options) withDefaults(p Provider) Options {
	if o.Model == "" {
		o.Model = DefaultModels[p]
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

func requireKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// creates Completer based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Completer, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiCompleter(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAICompleter(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicCompleter(ctx, apiKey, opts)
	}
	return nil, fmt.Errorf("unsupported llm provider: %s", provider)
}

// ParseProvider normalises a provider name from config or flags.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := DefaultModels[p]; !ok {
		return "", fmt.Errorf("unsupported llm provider: %s", name)
	}
	return p, nil
}

var codeFence = regexp.MustCompile("```[a-zA-Z]*")

// CleanJSONResponse strips markdown code fences around a model reply.
func CleanJSONResponse(s string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(s, ""))
}
