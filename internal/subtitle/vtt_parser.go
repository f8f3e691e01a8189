package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mgpai22/querier/internal/timecode"
)

var (
	cueTimingRegex = regexp.MustCompile(
		`^(\d{2}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3})(?:\s|$)`,
	)
	inlineTagRegex  = regexp.MustCompile(`<[^>]*>`)
	annotationRegex = regexp.MustCompile(`\[[^\]]*\]`)
)

// ParseCueFile opens a caption file and parses it with ParseCues.
func ParseCueFile(path string) ([]Cue, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open caption file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return ParseCues(file)
}

// ParseCues reads a WebVTT-like caption stream and returns its cues in file
// order. The parser is tolerant: header lines, cue identifiers, NOTE/STYLE
// blocks and malformed timing lines are skipped. A cue is kept only when its
// accumulated text is longer than one character.
func ParseCues(r io.Reader) ([]Cue, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	var (
		cues    []Cue
		current *Cue
		text    []string
	)

	flush := func() {
		if current == nil {
			return
		}
		content := strings.TrimSpace(strings.Join(text, " "))
		if utf8.RuneCountInString(content) > 1 {
			current.Content = content
			cues = append(cues, *current)
		}
		text = nil
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if i == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if line == "" {
			continue
		}

		if isBlockStart(lines, i, line) {
			i = skipBlock(lines, i)
			continue
		}

		if strings.Contains(line, "-->") {
			start, end, ok := parseTiming(line)
			if !ok {
				continue
			}
			flush()
			current = &Cue{Start: start, End: end}
			continue
		}

		if current == nil || isCueIdentifier(lines, i) {
			continue
		}

		line = cleanLine(line)
		if utf8.RuneCountInString(line) > 1 {
			text = append(text, line)
		}
	}
	flush()

	return cues, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading captions: %w", err)
	}
	return lines, nil
}

func parseTiming(line string) (timecode.Timestamp, timecode.Timestamp, bool) {
	m := cueTimingRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	start, err := timecode.Parse(m[1])
	if err != nil {
		return 0, 0, false
	}
	end, err := timecode.Parse(m[2])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// strips inline markup and bracketed annotations such as [Música]
func cleanLine(line string) string {
	line = inlineTagRegex.ReplaceAllString(line, "")
	line = annotationRegex.ReplaceAllString(line, "")
	return strings.Join(strings.Fields(line), " ")
}

func precededByBlank(lines []string, i int) bool {
	return i == 0 || strings.TrimSpace(lines[i-1]) == ""
}

// a numeric cue id: digits only, right before a timing line
func isCueIdentifier(lines []string, i int) bool {
	if i+1 >= len(lines) || !isDigits(strings.TrimSpace(lines[i])) {
		return false
	}
	_, _, ok := parseTiming(strings.TrimSpace(lines[i+1]))
	return ok
}

func isBlockStart(lines []string, i int, line string) bool {
	if !precededByBlank(lines, i) {
		return false
	}
	return line == "NOTE" || strings.HasPrefix(line, "NOTE ") ||
		line == "STYLE" || line == "REGION"
}

// returns the index of the last line of the block starting at i
func skipBlock(lines []string, i int) int {
	for i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
		i++
	}
	return i
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
