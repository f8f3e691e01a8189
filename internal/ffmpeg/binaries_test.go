package ffmpeg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fakeBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+executableSuffix())
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}
	return path
}

func TestLocateUsesOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", t.TempDir())

	overrides := BinaryPaths{
		FFmpeg:  fakeBinary(t, dir, "ffmpeg"),
		FFprobe: fakeBinary(t, dir, "ffprobe"),
		YTDLP:   fakeBinary(t, dir, "yt-dlp"),
	}

	paths, err := Locate(overrides)
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if paths != overrides {
		t.Errorf("got %+v, want %+v", paths, overrides)
	}
}

func TestLocateUsesEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", t.TempDir())
	t.Setenv(EnvFFmpeg, fakeBinary(t, dir, "ffmpeg"))
	t.Setenv(EnvFFprobe, fakeBinary(t, dir, "ffprobe"))
	t.Setenv(EnvYTDLP, fakeBinary(t, dir, "yt-dlp"))

	paths, err := Locate(BinaryPaths{})
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if filepath.Base(paths.YTDLP) != "yt-dlp"+executableSuffix() {
		t.Errorf("unexpected yt-dlp path %s", paths.YTDLP)
	}
}

func TestLocateSearchesPath(t *testing.T) {
	dir := t.TempDir()
	fakeBinary(t, dir, "ffmpeg")
	fakeBinary(t, dir, "ffprobe")
	fakeBinary(t, dir, "yt-dlp")
	t.Setenv("PATH", dir)
	t.Setenv(EnvFFmpeg, "")
	t.Setenv(EnvFFprobe, "")
	t.Setenv(EnvYTDLP, "")

	paths, err := Locate(BinaryPaths{})
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if filepath.Dir(paths.FFmpeg) != dir {
		t.Errorf("ffmpeg not resolved from PATH: %s", paths.FFmpeg)
	}
}

func TestLocateReportsMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv(EnvFFmpeg, "")
	t.Setenv(EnvFFprobe, "")
	t.Setenv(EnvYTDLP, "")

	_, err := Locate(BinaryPaths{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	tools := Check(BinaryPaths{})
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}
	for _, tool := range tools {
		if tool.Err == nil {
			t.Errorf("%s should be missing", tool.Name)
		}
	}
}

func TestLocateRejectsMissingOverride(t *testing.T) {
	_, err := Locate(BinaryPaths{FFmpeg: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
