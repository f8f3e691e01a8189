package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mgpai22/querier/internal/audio"
	"github.com/mgpai22/querier/internal/logging"
	"github.com/mgpai22/querier/internal/media"
	"github.com/mgpai22/querier/internal/subtitle"
	"github.com/mgpai22/querier/internal/transcribe"
)

// DefaultChunkDuration keeps each transcription request well under provider
// upload limits.
const DefaultChunkDuration = 5 * time.Minute

// Captioner produces a caption file for an asset that was fetched without one.
type Captioner interface {
	Caption(ctx context.Context, asset *media.Asset) (string, error)
}

// AudioProcessor is the subset of audio.Processor the transcription
// fallback needs.
type AudioProcessor interface {
	Compress(ctx context.Context, inputPath, outputPath string, opts audio.CompressionOptions) error
	Chunk(ctx context.Context, audioPath string, chunkDuration time.Duration, outputDir string, concurrency int) ([]audio.ChunkInfo, error)
}

type TranscriptionOptions struct {
	Language      string
	ChunkDuration time.Duration
	Concurrency   int
}

// TranscriptionCaptioner compresses the downloaded audio, transcribes it in
// chunks and writes the result next to the video as a WebVTT file.
type TranscriptionCaptioner struct {
	processor   AudioProcessor
	transcriber transcribe.Transcriber
	options     TranscriptionOptions
	logger      *logging.Logger
}

func NewTranscriptionCaptioner(
	processor AudioProcessor,
	transcriber transcribe.Transcriber,
	opts TranscriptionOptions,
	logger *logging.Logger,
) *TranscriptionCaptioner {
	if opts.ChunkDuration <= 0 {
		opts.ChunkDuration = DefaultChunkDuration
	}
	return &TranscriptionCaptioner{
		processor:   processor,
		transcriber: transcriber,
		options:     opts,
		logger:      logging.OrNop(logger).With("component", "transcription"),
	}
}

func (c *TranscriptionCaptioner) Caption(ctx context.Context, asset *media.Asset) (string, error) {
	source := asset.AudioPath
	if !fileExists(source) {
		source = asset.VideoPath
	}
	if !fileExists(source) {
		return "", fmt.Errorf("no audio to transcribe for %s", asset.ID)
	}

	tempDir, err := os.MkdirTemp("", "querier-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	compressed := filepath.Join(tempDir, "audio.mp3")
	c.logger.Infow("compressing audio for transcription", "video_id", asset.ID, "source", source)
	if err := c.processor.Compress(ctx, source, compressed, audio.DefaultCompressionOptions()); err != nil {
		return "", fmt.Errorf("failed to compress audio: %w", err)
	}

	chunks, err := c.processor.Chunk(ctx, compressed, c.options.ChunkDuration, filepath.Join(tempDir, "chunks"), c.options.Concurrency)
	if err != nil {
		return "", fmt.Errorf("failed to split audio: %w", err)
	}
	defer func() { _ = audio.CleanupChunks(chunks) }()

	c.logger.Infow("transcribing audio", "video_id", asset.ID, "chunks", len(chunks))
	result, err := transcribe.TranscribeChunks(ctx, c.transcriber, chunks, c.options.Language, c.options.Concurrency)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	path := filepath.Join(asset.Dir, subtitle.CaptionFileName(c.options.Language))
	if err := subtitle.WriteCaptionFile(path, result.Segments, c.options.Language); err != nil {
		return "", fmt.Errorf("failed to write captions: %w", err)
	}

	c.logger.Infow("transcription complete", "video_id", asset.ID, "segments", len(result.Segments), "path", path)
	return path, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
