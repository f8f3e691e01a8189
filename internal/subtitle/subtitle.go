package subtitle

import (
	"time"

	"github.com/mgpai22/querier/internal/timecode"
)

// single caption cue as read from a caption file
type Cue struct {
	Start   timecode.Timestamp
	End     timecode.Timestamp
	Content string
}

func (c Cue) Duration() float64 {
	return timecode.DurationSeconds(c.Start, c.End)
}

// represents transcribed audio segment
type Segment struct {
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// represents supported subtitle formats
type Format string

const (
	FormatVTT Format = "vtt"
)

// caption file name inside a video's media directory, e.g. subs.pt.vtt
func CaptionFileName(language string) string {
	return "subs." + language + "." + string(FormatVTT)
}
