// Package render cuts answer segments out of downloaded videos.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/querier/internal/timecode"
)

// Request describes one clip to cut from Source.
type Request struct {
	VideoID string
	Source  string
	Start   timecode.Timestamp
	End     timecode.Timestamp
	Output  string
}

// Renderer turns a request into a playable file and returns its path.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// holds options for clip encoding
type Options struct {
	VideoCodec string
	AudioCodec string
	Preset     string
}

func DefaultOptions() Options {
	return Options{
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Preset:     "veryfast",
	}
}

// FFmpegRenderer re-encodes the requested range with ffmpeg so cuts land
// on the exact timestamps rather than the nearest keyframe.
type FFmpegRenderer struct {
	ffmpegPath string
	options    Options
}

func NewFFmpegRenderer(ffmpegPath string, opts Options) *FFmpegRenderer {
	return &FFmpegRenderer{
		ffmpegPath: ffmpegPath,
		options:    opts,
	}
}

func (r *FFmpegRenderer) stream(req Request) *ffmpeg.Stream {
	input := ffmpeg.KwArgs{
		"ss": req.Start.String(),
		"to": req.End.String(),
	}
	output := ffmpeg.KwArgs{
		"c:v": r.options.VideoCodec,
		"c:a": r.options.AudioCodec,
	}
	if r.options.Preset != "" {
		output["preset"] = r.options.Preset
	}

	return ffmpeg.Input(req.Source, input).
		Output(req.Output, output).
		OverWriteOutput().
		SetFfmpegPath(r.ffmpegPath)
}

func (r *FFmpegRenderer) Render(ctx context.Context, req Request) (string, error) {
	if _, err := os.Stat(req.Source); err != nil {
		return "", fmt.Errorf("video file not found: %s", req.Source)
	}
	if req.End < req.Start {
		return "", fmt.Errorf("invalid clip range %s --> %s", req.Start, req.End)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.stream(req).Run(); err != nil {
		return "", fmt.Errorf("ffmpeg clip failed: %w", err)
	}
	return req.Output, nil
}
