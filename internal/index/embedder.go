package index

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/mgpai22/querier/internal/llm"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultEmbedBatchSize is the number of texts sent per embedding request.
const DefaultEmbedBatchSize = 100

type EmbedOptions struct {
	Model     string
	BatchSize int
}

func (o EmbedOptions) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultEmbedBatchSize
}

// creates Embedder based on provider
func NewEmbedder(
	ctx context.Context,
	provider llm.Provider,
	apiKey string,
	opts EmbedOptions,
) (Embedder, error) {
	switch provider {
	case llm.ProviderOpenAI:
		return NewOpenAIEmbedder(apiKey, opts)
	case llm.ProviderGemini:
		return NewGeminiEmbedder(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

// splits texts into request-sized slices and concatenates the results
func embedInBatches(
	ctx context.Context,
	texts []string,
	size int,
	embed func(context.Context, []string) ([][]float32, error),
) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d failed: %w", i/size, err)
		}
		if len(vectors) != end-i {
			return nil, fmt.Errorf("batch %d: expected %d embeddings, got %d", i/size, end-i, len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// implements Embedder using the OpenAI embeddings API
type OpenAIEmbedder struct {
	client  openai.Client
	model   string
	options EmbedOptions
}

func NewOpenAIEmbedder(apiKey string, opts EmbedOptions) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	model := opts.Model
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	return &OpenAIEmbedder{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		options: opts,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, e.options.batchSize(), e.embedBatch)
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		vectors[d.Index] = v
	}
	return vectors, nil
}

// implements Embedder using Gemini embed-content
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	options EmbedOptions
}

func NewGeminiEmbedder(ctx context.Context, apiKey string, opts EmbedOptions) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "text-embedding-004"
	}

	return &GeminiEmbedder{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, e.options.batchSize(), e.embedBatch)
}

func (e *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			vectors = append(vectors, nil)
			continue
		}
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}
