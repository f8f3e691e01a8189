// Package ingest turns a video URL into linked, indexed caption segments.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgpai22/querier/internal/logging"
	"github.com/mgpai22/querier/internal/media"
	"github.com/mgpai22/querier/internal/segment"
	"github.com/mgpai22/querier/internal/subtitle"
)

// ErrNoCaptions is returned when a video has no caption track and no
// transcription fallback is configured.
var ErrNoCaptions = errors.New("no captions available")

// IndexWriter persists a batch of records into a named index.
type IndexWriter interface {
	Write(ctx context.Context, name string, records []segment.Record) (int, error)
}

type Options struct {
	IndexName string
	Margin    float64
}

// Report summarizes one store run.
type Report struct {
	Asset       *media.Asset
	CaptionPath string
	Transcribed bool
	Cues        int
	Records     []segment.Record
}

// Pipeline fetches a video, obtains its captions, segments them and writes
// the linked records to the index.
type Pipeline struct {
	fetcher   media.Fetcher
	captioner Captioner
	writer    IndexWriter
	options   Options
	logger    *logging.Logger
}

// NewPipeline builds a pipeline. captioner may be nil, in which case videos
// without captions fail with ErrNoCaptions.
func NewPipeline(
	fetcher media.Fetcher,
	captioner Captioner,
	writer IndexWriter,
	opts Options,
	logger *logging.Logger,
) *Pipeline {
	if opts.Margin < 0 {
		opts.Margin = segment.DefaultMargin
	}
	return &Pipeline{
		fetcher:   fetcher,
		captioner: captioner,
		writer:    writer,
		options:   opts,
		logger:    logging.OrNop(logger).With("component", "ingest"),
	}
}

// Store runs the full pipeline for url. Re-storing a video replaces its
// records instead of duplicating them.
func (p *Pipeline) Store(ctx context.Context, url string) (*Report, error) {
	report, err := p.Prepare(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := p.Index(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Prepare fetches the video and builds its linked records without touching
// the index.
func (p *Pipeline) Prepare(ctx context.Context, url string) (*Report, error) {
	asset, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video: %w", err)
	}

	report := &Report{Asset: asset, CaptionPath: asset.CaptionPath}
	if report.CaptionPath == "" {
		if p.captioner == nil {
			return nil, fmt.Errorf("video %s: %w", asset.ID, ErrNoCaptions)
		}
		p.logger.Infow("no caption track, transcribing", "video_id", asset.ID)
		path, err := p.captioner.Caption(ctx, asset)
		if err != nil {
			return nil, err
		}
		report.CaptionPath = path
		report.Transcribed = true
	}

	cues, err := subtitle.ParseCueFile(report.CaptionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captions: %w", err)
	}
	report.Cues = len(cues)

	segments := segment.Prepare(cues, p.options.Margin)
	report.Records = segment.Build(segments, segment.Source{
		VideoID: asset.ID,
		URL:     asset.URL,
		Channel: asset.Uploader,
	})

	p.logger.Infow("segmented captions",
		"video_id", asset.ID,
		"cues", report.Cues,
		"segments", len(report.Records),
		"dropped", report.Cues-len(report.Records),
	)
	return report, nil
}

// Index writes the prepared records. An empty batch still creates the index.
func (p *Pipeline) Index(ctx context.Context, report *Report) error {
	_, err := p.writer.Write(ctx, p.options.IndexName, report.Records)
	return err
}
