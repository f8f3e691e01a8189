// Package media acquires videos with yt-dlp and lays them out on disk as
// <root>/<id>/<id>.<ext> with captions at <root>/<id>/subs.<lang>.vtt.
package media

import (
	"os"
	"path/filepath"

	"github.com/mgpai22/querier/internal/subtitle"
)

// InfoFileName is the metadata dump written next to each video.
const InfoFileName = "info.json"

// Library resolves asset paths inside the media root.
type Library struct {
	Root string
}

func NewLibrary(root string) *Library {
	return &Library{Root: root}
}

func (l *Library) Dir(videoID string) string {
	return filepath.Join(l.Root, videoID)
}

// VideoPath is the merged video+audio file clips are cut from.
func (l *Library) VideoPath(videoID string) string {
	return filepath.Join(l.Dir(videoID), videoID+".mp4")
}

// AudioPath is the audio-only download used for transcription.
func (l *Library) AudioPath(videoID string) string {
	return filepath.Join(l.Dir(videoID), videoID+".m4a")
}

func (l *Library) CaptionPath(videoID, language string) string {
	return filepath.Join(l.Dir(videoID), subtitle.CaptionFileName(language))
}

func (l *Library) InfoPath(videoID string) string {
	return filepath.Join(l.Dir(videoID), InfoFileName)
}

// HasVideo reports whether the clip source for videoID is on disk.
func (l *Library) HasVideo(videoID string) bool {
	return exists(l.VideoPath(videoID))
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
