package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mgpai22/querier/internal/ffmpeg"
	"github.com/mgpai22/querier/internal/index"
	"github.com/mgpai22/querier/internal/query"
	"github.com/mgpai22/querier/internal/render"
	"github.com/mgpai22/querier/internal/segment"
	"github.com/mgpai22/querier/internal/subtitle"
	"github.com/mgpai22/querier/internal/timecode"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestMissingCommandPrintsUsage(t *testing.T) {
	out, err := runRoot(t)
	if !errors.Is(err, errMissingCommand) {
		t.Fatalf("expected errMissingCommand, got %v", err)
	}
	if !strings.Contains(out, "Usage: querier <command> [args...]") {
		t.Errorf("usage not printed:\n%s", out)
	}
	for _, name := range []string{"store", "search", "doctor"} {
		if !strings.Contains(out, name) {
			t.Errorf("usage does not list %s:\n%s", name, out)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	out, err := runRoot(t, "frobnicate")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got %v", err)
	}
	if !strings.Contains(out, "Usage: querier <command> [args...]") {
		t.Errorf("usage not printed for unknown command:\n%s", out)
	}
}

func TestStoreRequiresURL(t *testing.T) {
	if _, err := runRoot(t, "store"); err == nil {
		t.Error("expected error without url")
	}
}

func TestSearchRequiresSubjectAndQuestion(t *testing.T) {
	if _, err := runRoot(t, "search", "coca"); err == nil {
		t.Error("expected error without question")
	}
}

func sampleResult() *query.Result {
	return &query.Result{
		Answer: &query.Answer{
			Summary: "Foram encontradas 2 menções",
			Segments: []query.AnswerSegment{
				{Start: "00:00:04", End: "00:00:19", VideoID: "gone"},
				{Start: "00:01:00", End: "00:01:10", VideoID: "abc"},
			},
		},
		Candidates: make([]index.Match, 3),
		Skipped: []*query.ResolutionError{
			{Index: 0, VideoID: "gone", Err: query.ErrVideoMissing},
		},
		Clips: []query.Clip{
			{Index: 1, Request: render.Request{VideoID: "abc"}, Path: "out/output_coca_1.mp4"},
		},
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, sampleResult())
	out := buf.String()

	if !strings.HasPrefix(out, "Foram encontradas 2 menções\n") {
		t.Errorf("summary should come first:\n%s", out)
	}
	if !strings.Contains(out, "out/output_coca_1.mp4") {
		t.Errorf("clip path missing:\n%s", out)
	}
	if !strings.Contains(out, "gone") {
		t.Errorf("skipped segment missing:\n%s", out)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("printJSON() error = %v", err)
	}

	var got jsonResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.Summary != "Foram encontradas 2 menções" || len(got.Segments) != 2 || got.Candidates != 3 {
		t.Errorf("got = %+v", got)
	}
	if len(got.Clips) != 2 {
		t.Fatalf("expected 2 clip entries, got %d", len(got.Clips))
	}
	if got.Clips[0].Index != 0 || got.Clips[0].Error == "" || got.Clips[0].Path != "" {
		t.Errorf("first clip = %+v", got.Clips[0])
	}
	if got.Clips[1].Path != "out/output_coca_1.mp4" || got.Clips[1].Error != "" {
		t.Errorf("second clip = %+v", got.Clips[1])
	}
}

func TestReportBinaries(t *testing.T) {
	var buf bytes.Buffer
	problems := reportBinaries(&buf, []ffmpeg.Tool{
		{Name: "ffmpeg", Path: "/usr/bin/ffmpeg"},
		{Name: "yt-dlp", Err: ffmpeg.ErrNotFound},
	})
	if problems != 1 {
		t.Errorf("problems = %d, want 1", problems)
	}
	if !strings.Contains(buf.String(), "/usr/bin/ffmpeg") || !strings.Contains(buf.String(), "missing") {
		t.Errorf("unexpected report:\n%s", buf.String())
	}
}

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

type listedMemoryStore struct {
	*index.MemoryStore
	names []string
}

func (s listedMemoryStore) IndexNames(ctx context.Context) ([]string, error) {
	return s.names, nil
}

func chain(videoID string, n int) []segment.Record {
	var cues []subtitle.Cue
	for i := 0; i < n; i++ {
		start := timecode.FromSeconds(float64(10 * (i + 1)))
		cues = append(cues, subtitle.Cue{Start: start, End: timecode.Shift(start, 2), Content: "olá"})
	}
	return segment.Build(segment.Prepare(cues, segment.DefaultMargin), segment.Source{VideoID: videoID, Channel: "Canal"})
}

func TestReportIndexes(t *testing.T) {
	ctx := context.Background()
	mem := index.NewMemoryStore(constEmbedder{})
	w := index.NewWriter(mem, nil)
	for _, recs := range [][]segment.Record{chain("abc", 3), chain("def", 2)} {
		if _, err := w.Write(ctx, "videos", recs); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	var buf bytes.Buffer
	problems, err := reportIndexes(ctx, &buf, listedMemoryStore{MemoryStore: mem, names: []string{"videos"}})
	if err != nil {
		t.Fatalf("reportIndexes() error = %v", err)
	}
	if problems != 0 {
		t.Errorf("problems = %d:\n%s", problems, buf.String())
	}
	if !strings.Contains(buf.String(), "videos: 5 segments across 2 videos") {
		t.Errorf("unexpected report:\n%s", buf.String())
	}
}

func TestGroupByVideo(t *testing.T) {
	records := append(chain("b", 2), chain("a", 1)...)
	videos, order := groupByVideo(records)

	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("order = %v", order)
	}
	if len(videos["b"]) != 2 || len(videos["a"]) != 1 {
		t.Errorf("videos = %v", videos)
	}
	for id, recs := range videos {
		if err := segment.VerifyChain(recs); err != nil {
			t.Errorf("VerifyChain(%s) error = %v", id, err)
		}
	}
}
