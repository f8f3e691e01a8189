package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mgpai22/querier/internal/config"
	"github.com/mgpai22/querier/internal/ffmpeg"
	"github.com/mgpai22/querier/internal/index"
	"github.com/mgpai22/querier/internal/llm"
	"github.com/mgpai22/querier/internal/transcribe"
)

// clients are built once per command run and injected into the pipelines

func binaryOverrides(c *config.Config) ffmpeg.BinaryPaths {
	return ffmpeg.BinaryPaths{
		FFmpeg:  c.Binaries.FFmpeg,
		FFprobe: c.Binaries.FFprobe,
		YTDLP:   c.Binaries.YTDLP,
	}
}

func requireKey(c *config.Config, p llm.Provider) (string, error) {
	key := c.APIKey(p)
	if key == "" {
		return "", fmt.Errorf("%s API key is required: set it in the config file or the environment", p)
	}
	return key, nil
}

func newEmbedder(ctx context.Context, c *config.Config) (index.Embedder, error) {
	p, err := llm.ParseProvider(c.EmbedProvider)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(c, p)
	if err != nil {
		return nil, err
	}
	return index.NewEmbedder(ctx, p, key, index.EmbedOptions{Model: c.EmbedModel})
}

func openIndexStore(ctx context.Context, c *config.Config) (*index.SQLiteStore, error) {
	embedder, err := newEmbedder(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	store, err := index.OpenSQLiteStore(c.StorageDir, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	return store, nil
}

func newCompleter(ctx context.Context, c *config.Config) (llm.Completer, error) {
	p, err := llm.ParseProvider(c.LLMProvider)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(c, p)
	if err != nil {
		return nil, err
	}
	return llm.Factory(ctx, p, key, llm.Options{
		Model:       c.LLMModel,
		Temperature: c.Temperature,
		JSON:        true,
	})
}

func newTranscriber(ctx context.Context, c *config.Config) (transcribe.Transcriber, error) {
	p, err := llm.ParseProvider(c.TranscribeProvider)
	if err != nil {
		return nil, err
	}
	key, err := requireKey(c, p)
	if err != nil {
		return nil, err
	}
	return transcribe.Factory(ctx, transcribe.Provider(p), key, transcribe.Options{
		Language: c.CaptionLanguage,
		Model:    c.TranscribeModel,
	})
}

func closeQuietly(v interface{}) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}
