package query

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when retrieval or the model call exceeds its deadline.
var ErrTimeout = errors.New("query timed out")

// SchemaError reports model output that does not match the answer shape.
type SchemaError struct {
	Reason   string
	Response string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid answer: %s (response: %s)", e.Reason, truncateString(e.Response, 200))
}

// ResolutionError reports an answer segment that could not be turned into a
// clip. It never aborts the other segments.
type ResolutionError struct {
	Index   int
	VideoID string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("segment %d (video %s): %v", e.Index, e.VideoID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ErrVideoMissing marks an answer segment whose video is not in the library.
var ErrVideoMissing = errors.New("video not found in media library")

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
