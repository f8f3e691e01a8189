package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAICompleter calls the Chat Completions endpoint.
type OpenAICompleter struct {
	client openai.Client
	opts   Options
}

func NewOpenAICompleter(ctx context.Context, apiKey string, opts Options) (*OpenAICompleter, error) {
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}
	return &OpenAICompleter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		opts:   opts.withDefaults(ProviderOpenAI),
	}, nil
}

func (c *OpenAICompleter) request(prompt string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       c.opts.Model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.opts.Temperature),
	}
	if c.opts.JSON {
		params.ResponseFormat.OfJSONObject = &shared.ResponseFormatJSONObjectParam{Type: "json_object"}
	}
	return params
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, c.request(prompt))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w from OpenAI", ErrEmptyResponse)
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) Close() error { return nil }
