package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// offset from 00:00:00.000 with millisecond precision.
// Arithmetic is unbounded: values may go negative or past 24h.
type Timestamp time.Duration

var (
	strictRegex  = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})\.(\d{3})$`)
	lenientRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})(?:[.,](\d{1,3}))?$`)
)

// FormatError reports text that is not a timecode.
type FormatError struct {
	Text string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timecode %q: expected HH:MM:SS.mmm", e.Text)
}

// Parse reads HH:MM:SS.mmm.
func Parse(text string) (Timestamp, error) {
	m := strictRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, &FormatError{Text: text}
	}
	return fromParts(text, m[1], m[2], m[3], m[4])
}

// ParseLenient also accepts H:MM:SS and fractions of one or two digits.
func ParseLenient(text string) (Timestamp, error) {
	m := lenientRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, &FormatError{Text: text}
	}
	frac := m[4]
	for len(frac) < 3 {
		frac += "0"
	}
	return fromParts(text, m[1], m[2], m[3], frac)
}

func fromParts(text, hours, minutes, seconds, millis string) (Timestamp, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	if m > 59 || s > 59 {
		return 0, &FormatError{Text: text}
	}
	d := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
	return Timestamp(d), nil
}

func MustParse(text string) Timestamp {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSeconds converts a float offset, as emitted by transcription services,
// rounding to the nearest millisecond.
func FromSeconds(seconds float64) Timestamp {
	ms := math.Round(seconds * 1000)
	return Timestamp(time.Duration(ms) * time.Millisecond)
}

func FromDuration(d time.Duration) Timestamp {
	return Timestamp(d.Truncate(time.Millisecond))
}

// Format renders t as HH:MM:SS.mmm; negative values carry a leading '-'.
func Format(t Timestamp) string {
	return t.String()
}

func (t Timestamp) String() string {
	ms := time.Duration(t).Milliseconds()
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	hours := ms / 3_600_000
	minutes := (ms / 60_000) % 60
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, hours, minutes, seconds, millis)
}

// Shift adds a signed offset in seconds without clamping.
func Shift(t Timestamp, deltaSeconds float64) Timestamp {
	delta := math.Round(deltaSeconds * 1000)
	return t + Timestamp(time.Duration(delta)*time.Millisecond)
}

// DurationSeconds is end - start; negative when misordered.
func DurationSeconds(start, end Timestamp) float64 {
	return time.Duration(end - start).Seconds()
}

func (t Timestamp) Seconds() float64 {
	return time.Duration(t).Seconds()
}

// ClampZero returns t, or zero when t is negative.
func ClampZero(t Timestamp) Timestamp {
	if t < 0 {
		return 0
	}
	return t
}
