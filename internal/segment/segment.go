// Package segment turns parsed caption cues into the linked records that are
// stored in the search index.
package segment

import (
	"github.com/mgpai22/querier/internal/subtitle"
	"github.com/mgpai22/querier/internal/timecode"
)

// DefaultMargin is the playback margin added on both sides of a segment.
const DefaultMargin = 6.0

// MinDuration is the shortest unpadded cue, in seconds, that is kept.
const MinDuration = 1.0

// Segment is a cue that passed validation and had its boundaries padded.
type Segment struct {
	Start   timecode.Timestamp
	End     timecode.Timestamp
	Content string
}

// IsValid reports whether the unpadded cue lasts at least MinDuration.
func IsValid(c subtitle.Cue) bool {
	return timecode.DurationSeconds(c.Start, c.End) >= MinDuration
}

// Pad widens the cue by margin seconds on each side. A start that would fall
// before 00:00:00.000 is clamped to zero; the end is never clamped.
func Pad(c subtitle.Cue, margin float64) Segment {
	return Segment{
		Start:   timecode.ClampZero(timecode.Shift(c.Start, -margin)),
		End:     timecode.Shift(c.End, margin),
		Content: c.Content,
	}
}

// Prepare filters out cues shorter than MinDuration and pads the rest.
// Validity is judged before padding so a margin can never rescue a short cue.
func Prepare(cues []subtitle.Cue, margin float64) []Segment {
	out := make([]Segment, 0, len(cues))
	for _, c := range cues {
		if !IsValid(c) {
			continue
		}
		out = append(out, Pad(c, margin))
	}
	return out
}
