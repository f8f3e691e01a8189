// Package ffmpeg locates the external media binaries the pipeline shells out
// to: ffmpeg, ffprobe and yt-dlp.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// BinaryPaths holds resolved executable paths. Empty fields in an override
// value mean "look it up".
type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
	YTDLP   string
}

// Tool describes one binary and where it was (or was not) found.
type Tool struct {
	Name string
	Env  string
	Path string
	Err  error
}

const (
	EnvFFmpeg  = "QUERIER_FFMPEG_PATH"
	EnvFFprobe = "QUERIER_FFPROBE_PATH"
	EnvYTDLP   = "QUERIER_YTDLP_PATH"
)

// ErrNotFound is returned when a binary is neither configured nor on PATH.
var ErrNotFound = errors.New("binary not found")

// Locate resolves every binary. Explicit overrides win, then the matching
// environment variable, then PATH.
func Locate(overrides BinaryPaths) (BinaryPaths, error) {
	tools := Check(overrides)

	var errs []error
	for _, t := range tools {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	if len(errs) > 0 {
		return BinaryPaths{}, errors.Join(errs...)
	}

	return BinaryPaths{
		FFmpeg:  tools[0].Path,
		FFprobe: tools[1].Path,
		YTDLP:   tools[2].Path,
	}, nil
}

// Check reports the lookup result for each binary without failing.
func Check(overrides BinaryPaths) []Tool {
	tools := []Tool{
		{Name: "ffmpeg", Env: EnvFFmpeg, Path: overrides.FFmpeg},
		{Name: "ffprobe", Env: EnvFFprobe, Path: overrides.FFprobe},
		{Name: "yt-dlp", Env: EnvYTDLP, Path: overrides.YTDLP},
	}
	for i := range tools {
		tools[i].Path, tools[i].Err = lookup(tools[i].Name, tools[i].Path, tools[i].Env)
	}
	return tools
}

func lookup(name, override, env string) (string, error) {
	if override == "" {
		override = os.Getenv(env)
	}
	if override != "" {
		if !fileExists(override) {
			return "", fmt.Errorf("%s: configured path %s: %w", name, override, ErrNotFound)
		}
		return override, nil
	}

	found, err := exec.LookPath(name + executableSuffix())
	if err != nil {
		return "", fmt.Errorf("%s (set %s or add it to PATH): %w", name, env, ErrNotFound)
	}
	return found, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
