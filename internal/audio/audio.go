// Package audio prepares a downloaded video's sound track for speech
// recognition: it extracts a small mono file and cuts it into chunks that
// fit the providers' upload limits.
package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/querier/internal/ffmpeg"
)

// ChunkInfo is one cut of a longer recording, placed on its timeline.
type ChunkInfo struct {
	Path      string
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
}

type CompressionOptions struct {
	Format     string // mp3, aac or wav
	SampleRate int    // Hz
	Channels   int
	Bitrate    string // e.g. "64k", unused for wav
}

// speech only needs 16kHz mono
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{Format: "mp3", SampleRate: 16000, Channels: 1, Bitrate: "64k"}
}

// Processor drives ffmpeg and ffprobe at the configured paths.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
}

func NewProcessor(paths ffmpegbin.BinaryPaths) *Processor {
	return &Processor{ffmpegPath: paths.FFmpeg, ffprobePath: paths.FFprobe}
}

var codecs = map[string]string{
	"mp3": "libmp3lame",
	"aac": "aac",
	"wav": "pcm_s16le",
}

func compressionArgs(opts CompressionOptions) ffmpeg.KwArgs {
	codec, ok := codecs[opts.Format]
	if !ok {
		codec = codecs["mp3"]
	}
	args := ffmpeg.KwArgs{
		"vn":     "",
		"ar":     opts.SampleRate,
		"ac":     opts.Channels,
		"acodec": codec,
	}
	if opts.Bitrate != "" && opts.Format != "wav" {
		args["b:a"] = opts.Bitrate
	}
	return args
}

// Compress drops the video stream of inputPath and writes the re-encoded
// audio to outputPath, creating its directory.
func (p *Processor) Compress(
	ctx context.Context,
	inputPath, outputPath string,
	opts CompressionOptions,
) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := p.run(ctx, inputPath, outputPath, compressionArgs(opts)); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}
	return nil
}

// ffmpeg-go has no context support, so cancellation is checked up front
func (p *Processor) run(ctx context.Context, in, out string, args ffmpeg.KwArgs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ffmpeg.Input(in).
		Output(out, args).
		OverWriteOutput().
		SetFfmpegPath(p.ffmpegPath).
		Run()
}
