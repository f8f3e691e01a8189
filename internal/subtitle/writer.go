package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/querier/internal/timecode"
)

// WriteCaptions renders transcribed segments in the same WebVTT layout that
// ParseCues reads, so captions and transcripts share one parsing path.
func WriteCaptions(w io.Writer, segments []Segment, language string) error {
	bw := bufio.NewWriter(w)

	// VTT header
	fmt.Fprintf(bw, "WEBVTT\nKind: captions\nLanguage: %s\n\n", language)

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		// timestamps: 00:00:00.000 --> 00:00:00.000
		fmt.Fprintf(bw, "%s --> %s\n",
			timecode.FromDuration(seg.StartTime),
			timecode.FromDuration(seg.EndTime))

		// collapse embedded newlines; a blank line would end the cue early
		bw.WriteString(strings.Join(strings.Fields(text), " "))
		bw.WriteString("\n\n")
	}

	return bw.Flush()
}

// writes the captions to path, creating parent directories as needed
func WriteCaptionFile(path string, segments []Segment, language string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create caption file: %w", err)
	}

	if err := WriteCaptions(file, segments, language); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write caption file: %w", err)
	}
	return file.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}
