package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicCompleter calls the Messages API. Claude has no JSON response
// mode, so Options.JSON is left to the prompt.
type AnthropicCompleter struct {
	client anthropic.Client
	opts   Options
}

func NewAnthropicCompleter(ctx context.Context, apiKey string, opts Options) (*AnthropicCompleter, error) {
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}
	return &AnthropicCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		opts:   opts.withDefaults(ProviderAnthropic),
	}, nil
}

func (c *AnthropicCompleter) request(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		MaxTokens:   int64(c.opts.MaxTokens),
		Temperature: anthropic.Float(c.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, c.request(prompt))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w from Anthropic", ErrEmptyResponse)
	}
	return sb.String(), nil
}

func (c *AnthropicCompleter) Close() error { return nil }
