// Package query answers natural-language questions about the stored videos
// and turns the answer into clips.
package query

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/querier/internal/index"
	"github.com/mgpai22/querier/internal/llm"
	"github.com/mgpai22/querier/internal/logging"
	"github.com/mgpai22/querier/internal/media"
	"github.com/mgpai22/querier/internal/render"
	"github.com/mgpai22/querier/internal/segment"
)

type Options struct {
	IndexName         string
	TopK              int
	RetrievalTimeout  time.Duration
	LLMTimeout        time.Duration
	RenderConcurrency int
	OutputDir         string
	SkipClips         bool
}

func DefaultOptions() Options {
	return Options{
		IndexName:         index.DefaultName,
		TopK:              10,
		RetrievalTimeout:  30 * time.Second,
		LLMTimeout:        2 * time.Minute,
		RenderConcurrency: 2,
		OutputDir:         ".",
	}
}

// Clip is one resolved answer segment. Index is its position in the answer;
// Path and Err are set once it has been rendered.
type Clip struct {
	Index   int
	Request render.Request
	Path    string
	Err     error
}

// Result is everything a search produced. Answer is always set on success,
// even when no clip could be rendered.
type Result struct {
	Answer     *Answer
	Candidates []index.Match
	Clips      []Clip
	Skipped    []*ResolutionError
}

// Engine runs the retrieve, prompt, parse and resolve pipeline.
type Engine struct {
	store     index.Store
	completer llm.Completer
	renderer  render.Renderer
	library   *media.Library
	options   Options
	logger    *logging.Logger
}

func NewEngine(
	store index.Store,
	completer llm.Completer,
	renderer render.Renderer,
	library *media.Library,
	opts Options,
	logger *logging.Logger,
) *Engine {
	return &Engine{
		store:     store,
		completer: completer,
		renderer:  renderer,
		library:   library,
		options:   opts,
		logger:    logging.OrNop(logger).With("component", "query"),
	}
}

// Search answers question using only segments from channels matching subject.
// Load, retrieval, model and schema failures are returned as errors; clip
// failures are reported per segment in the result.
func (e *Engine) Search(ctx context.Context, subject, question string) (*Result, error) {
	idx, err := e.store.Load(ctx, e.options.IndexName)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	matches, err := e.retrieve(ctx, idx, subject, question)
	if err != nil {
		return nil, err
	}
	e.logger.Infow("retrieved candidates", "subject", subject, "count", len(matches))

	result := &Result{Candidates: matches}
	if len(matches) == 0 {
		result.Answer = EmptyAnswer(subject, question)
		return result, nil
	}

	records := make([]segment.Record, len(matches))
	for i, m := range matches {
		records[i] = m.Record
	}

	response, err := e.complete(ctx, BuildPrompt(records, question))
	if err != nil {
		return nil, err
	}

	answer, err := ParseAnswer(response)
	if err != nil {
		return nil, err
	}
	result.Answer = answer

	pending, skipped := e.Resolve(subject, answer)
	result.Skipped = skipped
	for _, s := range skipped {
		e.logger.Warnw("skipping answer segment", "index", s.Index, "video_id", s.VideoID, "error", s.Err)
	}

	if !e.options.SkipClips {
		result.Clips = e.RenderClips(ctx, pending)
	}
	return result, nil
}

func (e *Engine) retrieve(ctx context.Context, idx index.Index, subject, question string) ([]index.Match, error) {
	rctx, cancel := withTimeout(ctx, e.options.RetrievalTimeout)
	defer cancel()

	matches, err := idx.Retrieve(rctx, question, index.Filter{Channel: subject}, e.options.TopK)
	if err != nil {
		if timedOut(rctx, err) {
			return nil, fmt.Errorf("retrieval: %w", ErrTimeout)
		}
		return nil, fmt.Errorf("failed to retrieve segments: %w", err)
	}
	return matches, nil
}

func (e *Engine) complete(ctx context.Context, prompt string) (string, error) {
	cctx, cancel := withTimeout(ctx, e.options.LLMTimeout)
	defer cancel()

	start := time.Now()
	response, err := e.completer.Complete(cctx, prompt)
	if err != nil {
		if timedOut(cctx, err) {
			return "", fmt.Errorf("model call: %w", ErrTimeout)
		}
		return "", fmt.Errorf("failed to query model: %w", err)
	}
	e.logger.Debugw("model responded", "elapsed", time.Since(start), "bytes", len(response))
	return response, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// Resolve maps answer segments to pending clips, keyed by answer position.
// Segments whose video is not in the library are returned as skipped.
func (e *Engine) Resolve(subject string, answer *Answer) ([]Clip, []*ResolutionError) {
	var (
		pending []Clip
		skipped []*ResolutionError
	)
	for i, seg := range answer.Segments {
		if !e.library.HasVideo(seg.VideoID) {
			skipped = append(skipped, &ResolutionError{
				Index:   i,
				VideoID: seg.VideoID,
				Err:     ErrVideoMissing,
			})
			continue
		}
		pending = append(pending, Clip{
			Index: i,
			Request: render.Request{
				VideoID: seg.VideoID,
				Source:  e.library.VideoPath(seg.VideoID),
				Start:   seg.StartTime,
				End:     seg.EndTime,
				Output:  filepath.Join(e.options.OutputDir, ClipFileName(subject, i)),
			},
		})
	}
	return pending, skipped
}

// RenderClips renders pending clips with bounded parallelism. The returned
// clips keep the input order and carry their own error, if any.
func (e *Engine) RenderClips(ctx context.Context, pending []Clip) []Clip {
	clips := make([]Clip, len(pending))

	limit := e.options.RenderConcurrency
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, clip := range pending {
		g.Go(func() error {
			clip.Path, clip.Err = e.renderer.Render(ctx, clip.Request)
			if clip.Err != nil {
				e.logger.Warnw("clip failed", "index", clip.Index, "video_id", clip.Request.VideoID, "error", clip.Err)
			} else {
				e.logger.Infow("clip written", "index", clip.Index, "path", clip.Path)
			}
			clips[i] = clip
			return nil
		})
	}
	_ = g.Wait()

	return clips
}

// ClipFileName names the n-th clip of a search, e.g. output_canal_do_coca_0.mp4.
func ClipFileName(subject string, n int) string {
	return fmt.Sprintf("output_%s_%d.mp4", slug(subject), n)
}

func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "clip"
	}
	return out
}
