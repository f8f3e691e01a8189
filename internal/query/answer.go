package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mgpai22/querier/internal/llm"
	"github.com/mgpai22/querier/internal/timecode"
)

// Answer is the structured reply to a question.
type Answer struct {
	Summary  string          `json:"summary"`
	Segments []AnswerSegment `json:"segments"`
}

// AnswerSegment is one cited video range. Start and End are kept as the
// model wrote them; StartTime and EndTime hold the parsed values.
type AnswerSegment struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
	VideoID string `json:"video_id"`

	StartTime timecode.Timestamp `json:"-"`
	EndTime   timecode.Timestamp `json:"-"`
}

// wire shape with presence tracking
type rawSegment struct {
	Start   *string `json:"start"`
	End     *string `json:"end"`
	Name    *string `json:"name"`
	Content *string `json:"content"`
	VideoID *string `json:"video_id"`
}

// ParseAnswer decodes model output into an Answer. Markdown code fences are
// stripped; anything else that deviates from the shape is a *SchemaError.
func ParseAnswer(response string) (*Answer, error) {
	text := llm.CleanJSONResponse(response)
	fail := func(format string, args ...interface{}) error {
		return &SchemaError{Reason: fmt.Sprintf(format, args...), Response: response}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, fail("not a JSON object: %v", err)
	}

	summaryRaw, ok := top["summary"]
	if !ok {
		return nil, fail("missing summary")
	}
	var summary string
	if err := json.Unmarshal(summaryRaw, &summary); err != nil {
		return nil, fail("summary is not a string")
	}
	if strings.TrimSpace(summary) == "" {
		return nil, fail("summary is empty")
	}

	segmentsRaw, ok := top["segments"]
	if !ok {
		return nil, fail("missing segments")
	}
	if trimmed := bytes.TrimSpace(segmentsRaw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fail("segments is not an array")
	}
	var raws []rawSegment
	if err := json.Unmarshal(segmentsRaw, &raws); err != nil {
		return nil, fail("segments: %v", err)
	}

	answer := &Answer{
		Summary:  summary,
		Segments: make([]AnswerSegment, 0, len(raws)),
	}
	for i, r := range raws {
		seg, err := r.validate()
		if err != nil {
			return nil, fail("segment %d: %v", i, err)
		}
		answer.Segments = append(answer.Segments, seg)
	}
	return answer, nil
}

func (r rawSegment) validate() (AnswerSegment, error) {
	var seg AnswerSegment
	switch {
	case r.Start == nil:
		return seg, fmt.Errorf("missing start")
	case r.End == nil:
		return seg, fmt.Errorf("missing end")
	case r.VideoID == nil || strings.TrimSpace(*r.VideoID) == "":
		return seg, fmt.Errorf("missing video_id")
	}

	start, err := timecode.ParseLenient(*r.Start)
	if err != nil {
		return seg, err
	}
	end, err := timecode.ParseLenient(*r.End)
	if err != nil {
		return seg, err
	}
	if end < start {
		return seg, fmt.Errorf("end %s before start %s", *r.End, *r.Start)
	}

	seg = AnswerSegment{
		Start:     *r.Start,
		End:       *r.End,
		VideoID:   strings.TrimSpace(*r.VideoID),
		StartTime: start,
		EndTime:   end,
	}
	if r.Name != nil {
		seg.Name = *r.Name
	}
	if r.Content != nil {
		seg.Content = *r.Content
	}
	return seg, nil
}

// EmptyAnswer is returned without calling the model when retrieval finds
// nothing for the subject.
func EmptyAnswer(subject, question string) *Answer {
	return &Answer{
		Summary:  fmt.Sprintf("Não foram encontrados segmentos de %s para a pergunta: %s", subject, question),
		Segments: []AnswerSegment{},
	}
}
