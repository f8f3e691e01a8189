package transcribe

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mgpai22/querier/internal/audio"
	"github.com/mgpai22/querier/internal/subtitle"
)

func TestFactoryReturnsOpenAITranscriber(t *testing.T) {
	tr, err := Factory(context.Background(), ProviderOpenAI, "fake-key", Options{Language: "pt"})
	if err != nil {
		t.Fatalf("Factory(ProviderOpenAI) returned error: %v", err)
	}
	if _, ok := tr.(*OpenAITranscriber); !ok {
		t.Errorf("expected *OpenAITranscriber, got %T", tr)
	}
}

func TestFactoryReturnsGeminiTranscriber(t *testing.T) {
	tr, err := Factory(context.Background(), ProviderGemini, "fake-key", Options{Language: "pt"})
	if err != nil {
		t.Fatalf("Factory(ProviderGemini) returned error: %v", err)
	}
	if _, ok := tr.(*GeminiTranscriber); !ok {
		t.Errorf("expected *GeminiTranscriber, got %T", tr)
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	if _, err := Factory(context.Background(), Provider("whisper-cpp"), "fake-key", Options{}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := Factory(context.Background(), ProviderOpenAI, "", Options{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

// returns one segment per chunk, named after the chunk file
type chunkTranscriber struct {
	mu      sync.Mutex
	seen    []string
	failOn  string
	latency time.Duration
}

func (c *chunkTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if c.latency > 0 {
		time.Sleep(c.latency)
	}
	c.mu.Lock()
	c.seen = append(c.seen, audioPath)
	c.mu.Unlock()

	if audioPath == c.failOn {
		return nil, errors.New("upload rejected")
	}
	return &Result{Segments: []subtitle.Segment{
		{StartTime: time.Second, EndTime: 3 * time.Second, Text: audioPath},
	}}, nil
}

func TestTranscribeChunksMergesInOrder(t *testing.T) {
	chunks := []audio.ChunkInfo{
		{Path: "c0", Index: 0, StartTime: 0, EndTime: 10 * time.Minute},
		{Path: "c1", Index: 1, StartTime: 10 * time.Minute, EndTime: 20 * time.Minute},
		{Path: "c2", Index: 2, StartTime: 20 * time.Minute, EndTime: 25 * time.Minute},
	}
	tr := &chunkTranscriber{latency: time.Millisecond}

	result, err := TranscribeChunks(context.Background(), tr, chunks, "pt", 3)
	if err != nil {
		t.Fatalf("TranscribeChunks error: %v", err)
	}
	if len(result.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(result.Segments))
	}
	for i, seg := range result.Segments {
		if seg.Text != chunks[i].Path {
			t.Errorf("segment %d out of order: %q", i, seg.Text)
		}
		if seg.StartTime != chunks[i].StartTime+time.Second {
			t.Errorf("segment %d not offset: %v", i, seg.StartTime)
		}
	}
	if result.Duration != 25*time.Minute {
		t.Errorf("duration: got %v", result.Duration)
	}
	if result.Language != "pt" {
		t.Errorf("language: got %q", result.Language)
	}
}

func TestTranscribeChunksFailure(t *testing.T) {
	chunks := []audio.ChunkInfo{
		{Path: "c0", Index: 0, EndTime: time.Minute},
		{Path: "c1", Index: 1, StartTime: time.Minute, EndTime: 2 * time.Minute},
	}
	_, err := TranscribeChunks(context.Background(), &chunkTranscriber{failOn: "c1"}, chunks, "pt", 1)
	if err == nil || !strings.Contains(err.Error(), "chunk 1 failed") {
		t.Errorf("expected chunk 1 failure, got %v", err)
	}
}

func TestTranscribeChunksEmpty(t *testing.T) {
	result, err := TranscribeChunks(context.Background(), &chunkTranscriber{}, nil, "pt", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Segments) != 0 {
		t.Errorf("expected no segments, got %d", len(result.Segments))
	}
}

// Integration test: only runs if OPENAI_API_KEY and QUERIER_TEST_AUDIO are set
func TestOpenAITranscriberIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	audioPath := os.Getenv("QUERIER_TEST_AUDIO")
	if apiKey == "" || audioPath == "" {
		t.Skip("OPENAI_API_KEY or QUERIER_TEST_AUDIO not set; skipping integration test")
	}

	tr, err := NewOpenAITranscriber(context.Background(), apiKey, Options{Language: "pt"})
	if err != nil {
		t.Fatalf("NewOpenAITranscriber error: %v", err)
	}
	result, err := tr.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if len(result.Segments) == 0 {
		t.Error("expected at least one segment")
	}
}
