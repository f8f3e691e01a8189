package segment

import (
	"fmt"
	"strconv"
	"strings"
)

// Source identifies the video a list of segments was cut from.
type Source struct {
	VideoID string
	URL     string
	Channel string
}

// Metadata is the per-record payload carried into the index and shown to the
// language model next to the segment text.
type Metadata struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
	Channel string `json:"name"`
}

// Record is one indexable segment plus its links to neighbouring segments of
// the same video. Empty link fields mean there is no neighbour.
type Record struct {
	ID         string
	Content    string
	Metadata   Metadata
	PreviousID string
	NextID     string
}

// RecordID returns the stable identifier "{videoID}-{ordinal}".
func RecordID(videoID string, ordinal int) string {
	return videoID + "-" + strconv.Itoa(ordinal)
}

// Build converts padded segments into records and links them in file order.
// Re-running Build on the same input yields the same ids.
func Build(segments []Segment, src Source) []Record {
	records := make([]Record, len(segments))
	for i, seg := range segments {
		records[i] = Record{
			ID:      RecordID(src.VideoID, i),
			Content: seg.Content,
			Metadata: Metadata{
				Start:   seg.Start.String(),
				End:     seg.End.String(),
				URL:     src.URL,
				VideoID: src.VideoID,
				Channel: src.Channel,
			},
		}
	}

	for i := range records {
		if i > 0 {
			records[i].PreviousID = records[i-1].ID
		}
		if i+1 < len(records) {
			records[i].NextID = records[i+1].ID
		}
	}
	return records
}

// VerifyChain checks that the records, in the given order, form one doubly
// linked chain: walking NextID from the first record visits every record once
// and ends at the last, and every PreviousID points at the record before it.
func VerifyChain(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[string]int, len(records))
	for i, r := range records {
		if _, dup := byID[r.ID]; dup {
			return fmt.Errorf("duplicate record id %s", r.ID)
		}
		byID[r.ID] = i
	}

	for i, r := range records {
		want := ""
		if i > 0 {
			want = records[i-1].ID
		}
		if r.PreviousID != want {
			return fmt.Errorf("record %s has previous link %q, want %q", r.ID, r.PreviousID, want)
		}
	}

	cur := 0
	for records[cur].NextID != "" {
		next := records[cur].NextID
		n, ok := byID[next]
		if !ok {
			return fmt.Errorf("record %s links to unknown record %s", records[cur].ID, next)
		}
		if n != cur+1 {
			return fmt.Errorf("record %s links to %s out of order", records[cur].ID, next)
		}
		cur = n
	}
	if cur != len(records)-1 {
		return fmt.Errorf("chain ends at %s after %d of %d records", records[cur].ID, cur+1, len(records))
	}
	return nil
}

// Render formats the record the way it is presented to the language model:
// one "key: value" line per metadata field followed by the content.
func (r Record) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start: %s\n", r.Metadata.Start)
	fmt.Fprintf(&b, "end: %s\n", r.Metadata.End)
	fmt.Fprintf(&b, "url: %s\n", r.Metadata.URL)
	fmt.Fprintf(&b, "video_id: %s\n", r.Metadata.VideoID)
	fmt.Fprintf(&b, "name: %s\n", r.Metadata.Channel)
	b.WriteString("content: ")
	b.WriteString(r.Content)
	return b.String()
}
