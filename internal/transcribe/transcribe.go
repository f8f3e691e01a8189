package transcribe

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/querier/internal/audio"
	"github.com/mgpai22/querier/internal/subtitle"
)

// DefaultConcurrency is the number of chunk uploads in flight when the
// caller does not choose one.
const DefaultConcurrency = 3

// Result is the timed text recognised in one audio file.
type Result struct {
	Segments []subtitle.Segment
	Language string
	Duration time.Duration
}

// Transcriber turns an audio file into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

type Options struct {
	Language string // spoken language of the audio, e.g. "pt"
	Model    string
	Prompt   string // extra instructions, e.g. vocabulary hints
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	}
	return nil, fmt.Errorf("unsupported transcription provider: %s", provider)
}

// TranscribeChunks sends every chunk to t, at most concurrency at a time,
// and returns the segments on the timeline of the whole recording. The first
// failing chunk cancels the rest.
func TranscribeChunks(
	ctx context.Context,
	t Transcriber,
	chunks []audio.ChunkInfo,
	language string,
	concurrency int,
) (*Result, error) {
	merged := &Result{Language: language}
	if len(chunks) == 0 {
		return merged, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	byChunk := make([][]subtitle.Segment, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range chunks {
		c := chunks[i]
		g.Go(func() error {
			res, err := t.Transcribe(gctx, c.Path)
			if err != nil {
				return fmt.Errorf("chunk %d failed: %w", c.Index, err)
			}
			byChunk[i] = shift(res.Segments, c.StartTime)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, segs := range byChunk {
		merged.Segments = append(merged.Segments, segs...)
	}
	merged.Duration = chunks[len(chunks)-1].EndTime
	return merged, nil
}
