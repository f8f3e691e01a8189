package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/querier/internal/subtitle"
)

const defaultWhisperModel = "whisper-1"

// OpenAITranscriber uploads audio to the Whisper transcription endpoint and
// asks for segment level timestamps.
type OpenAITranscriber struct {
	client openai.Client
	model  string
	opts   Options
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if opts.Model == "" {
		opts.Model = defaultWhisperModel
	}
	return &OpenAITranscriber{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  opts.Model,
		opts:   opts,
	}, nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	f, err := os.Open(audioPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, t.params(f))
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, duration, err := decodeVerbose(resp.RawJSON())
	if err != nil {
		// plain body, keep whatever text came back as one segment
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, fmt.Errorf("failed to read transcription: %w", err)
		}
		segments = []subtitle.Segment{{Text: text}}
	}

	return &Result{Segments: segments, Language: t.opts.Language, Duration: duration}, nil
}

func (t *OpenAITranscriber) params(file io.Reader) openai.AudioTranscriptionNewParams {
	p := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if t.opts.Language != "" {
		p.Language = openai.String(t.opts.Language)
	}
	if t.opts.Prompt != "" {
		p.Prompt = openai.String(t.opts.Prompt)
	}
	return p
}

type verboseBody struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []span  `json:"segments"`
}

// decodes a verbose_json body. Without usable segments the full text becomes
// one segment spanning the reported duration.
func decodeVerbose(raw string) ([]subtitle.Segment, time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, 0, errors.New("empty response")
	}
	var body verboseBody
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, 0, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	duration := seconds(body.Duration)
	if segments := toSegments(body.Segments); len(segments) > 0 {
		return segments, duration, nil
	}

	text := strings.TrimSpace(body.Text)
	if text == "" {
		return nil, duration, errors.New("no segments or text in response")
	}
	return []subtitle.Segment{{EndTime: duration, Text: text}}, duration, nil
}

func (t *OpenAITranscriber) Close() error { return nil }
