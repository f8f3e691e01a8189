package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/mgpai22/querier/internal/llm"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiTranscriber uploads audio through the Files API and asks the model
// for a JSON list of timed sentences.
type GeminiTranscriber struct {
	client *genai.Client
	model  string
	opts   Options
}

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	return &GeminiTranscriber{client: client, model: opts.Model, opts: opts}, nil
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	file, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}
	// remove the upload even when ctx was cancelled
	defer func() {
		_, _ = t.client.Files.Delete(context.WithoutCancel(ctx), file.Name, nil)
	}()

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(transcriptionPrompt(t.opts)),
		genai.NewPartFromURI(file.URI, file.MIMEType),
	}, genai.RoleUser)}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	spans, err := spansFromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}
	segments := toSegments(spans)
	return &Result{Segments: segments, Language: t.opts.Language, Duration: lastEnd(segments)}, nil
}

var languageNames = map[string]string{
	"pt": "Portuguese",
	"en": "English",
	"es": "Spanish",
}

func transcriptionPrompt(opts Options) string {
	lines := []string{
		"Transcribe this audio sentence by sentence.",
		`Answer with a JSON array of objects {"start": <seconds>, "end": <seconds>, "text": "<spoken words>"}.`,
		"Timestamps are numbers of seconds from the beginning of the audio.",
	}
	if opts.Language != "" {
		name := languageNames[strings.ToLower(opts.Language)]
		if name == "" {
			name = opts.Language
		}
		lines = append(lines, "The speech is in "+name+". Keep it in "+name+", do not translate.")
	}
	if opts.Prompt != "" {
		lines = append(lines, opts.Prompt)
	}
	lines = append(lines, "Reply with the JSON array only.")
	return strings.Join(lines, "\n")
}

func spansFromResponse(resp *genai.GenerateContentResponse) ([]span, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("empty response from Gemini")
	}
	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("no text in Gemini response")
	}
	return scanSpans(llm.CleanJSONResponse(sb.String()))
}

// scanSpans decodes the first JSON value in text that carries timed spans.
// Prose around the value is skipped and wrapper objects are searched.
func scanSpans(text string) ([]span, error) {
	for i := strings.IndexAny(text, "[{"); i >= 0; {
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err == nil {
			if spans, ok := spansIn(raw); ok {
				return spans, nil
			}
		}
		next := strings.IndexAny(text[i+1:], "[{")
		if next < 0 {
			break
		}
		i += next + 1
	}

	preview := text
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return nil, fmt.Errorf("no valid transcript JSON found in response (response: %s)", preview)
}

// well known wrapper keys are tried before the rest
var wrapperKeys = []string{"segments", "transcript", "data", "results"}

func spansIn(raw json.RawMessage) ([]span, bool) {
	var spans []span
	if json.Unmarshal(raw, &spans) == nil && anyTimed(spans) {
		return spans, true
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil, false
	}
	for _, k := range wrapperKeys {
		if v, ok := obj[k]; ok {
			if spans, ok := spansIn(v); ok {
				return spans, true
			}
		}
	}
	for _, v := range obj {
		if spans, ok := spansIn(v); ok {
			return spans, true
		}
	}
	return nil, false
}

// reports whether any span has text or a timestamp
func anyTimed(spans []span) bool {
	for _, s := range spans {
		if s != (span{}) {
			return true
		}
	}
	return false
}

func (t *GeminiTranscriber) Close() error { return nil }
