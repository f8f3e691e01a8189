package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mgpai22/querier/internal/logging"
)

// FormatSelection keeps a <=720p mp4 with m4a audio plus an audio-only m4a.
const FormatSelection = "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a],bestaudio[ext=m4a]"

// Asset is a fetched video and where its files live.
type Asset struct {
	ID          string
	Uploader    string
	Title       string
	URL         string
	Dir         string
	VideoPath   string
	AudioPath   string
	CaptionPath string // empty when no caption track was downloaded
}

// Fetcher acquires the media and metadata for a video URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Asset, error)
}

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", filepath.Base(name), err, lastLine(msg))
		}
		return nil, fmt.Errorf("%s failed: %w", filepath.Base(name), err)
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// subset of the yt-dlp info dict the pipeline relies on
type videoInfo struct {
	ID       string `json:"id"`
	Uploader string `json:"uploader"`
	Channel  string `json:"channel"`
	Title    string `json:"title"`
}

func (v videoInfo) channelName() string {
	if v.Uploader != "" {
		return v.Uploader
	}
	return v.Channel
}

// YTDLPFetcher downloads videos and caption tracks with the yt-dlp binary.
type YTDLPFetcher struct {
	binary   string
	library  *Library
	language string
	runner   Runner
	logger   *logging.Logger
}

type FetcherOption func(*YTDLPFetcher)

// WithRunner replaces the process runner, mainly for tests.
func WithRunner(r Runner) FetcherOption {
	return func(f *YTDLPFetcher) {
		f.runner = r
	}
}

func NewYTDLPFetcher(
	binary string,
	library *Library,
	language string,
	logger *logging.Logger,
	opts ...FetcherOption,
) *YTDLPFetcher {
	f := &YTDLPFetcher{
		binary:   binary,
		library:  library,
		language: language,
		runner:   execRunner{},
		logger:   logging.OrNop(logger).With("component", "media"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch reads the video metadata, saves it as info.json and downloads the
// media and caption track unless the video is already in the library.
func (f *YTDLPFetcher) Fetch(ctx context.Context, url string) (*Asset, error) {
	raw, err := f.runner.Run(ctx, f.binary,
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
		url,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read video metadata: %w", err)
	}

	var info videoInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to parse video metadata: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("video metadata for %s has no id", url)
	}

	if err := os.MkdirAll(f.library.Dir(info.ID), 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(f.library.InfoPath(info.ID), raw, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", InfoFileName, err)
	}

	if f.library.HasVideo(info.ID) {
		f.logger.Infow("video already downloaded", "video_id", info.ID)
	} else {
		f.logger.Infow("downloading video", "video_id", info.ID, "url", url)
		if _, err := f.runner.Run(ctx, f.binary, f.downloadArgs(url)...); err != nil {
			return nil, fmt.Errorf("failed to download video: %w", err)
		}
	}

	asset := &Asset{
		ID:        info.ID,
		Uploader:  info.channelName(),
		Title:     info.Title,
		URL:       url,
		Dir:       f.library.Dir(info.ID),
		VideoPath: f.library.VideoPath(info.ID),
		AudioPath: f.library.AudioPath(info.ID),
	}
	if captions := f.library.CaptionPath(info.ID, f.language); exists(captions) {
		asset.CaptionPath = captions
	}
	return asset, nil
}

func (f *YTDLPFetcher) downloadArgs(url string) []string {
	root := f.library.Root
	return []string{
		"--no-warnings",
		"--no-playlist",
		"-f", FormatSelection,
		"-o", filepath.Join(root, "%(id)s", "%(id)s.%(ext)s"),
		"-o", "subtitle:" + filepath.Join(root, "%(id)s", "subs.%(ext)s"),
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", f.language,
		"--sub-format", "vtt",
		url,
	}
}
