package transcribe

import (
	"strings"
	"time"

	"github.com/mgpai22/querier/internal/subtitle"
)

// timed text as both providers report it, offsets in seconds
type span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// converts spans to segments, dropping blank text and clamping inverted
// end times to the start
func toSegments(spans []span) []subtitle.Segment {
	out := make([]subtitle.Segment, 0, len(spans))
	for _, s := range spans {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		start, end := seconds(s.Start), seconds(s.End)
		if end < start {
			end = start
		}
		out = append(out, subtitle.Segment{StartTime: start, EndTime: end, Text: text})
	}
	return out
}

func shift(segments []subtitle.Segment, by time.Duration) []subtitle.Segment {
	out := make([]subtitle.Segment, len(segments))
	for i, s := range segments {
		s.StartTime += by
		s.EndTime += by
		out[i] = s
	}
	return out
}

func lastEnd(segments []subtitle.Segment) time.Duration {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].EndTime
}
