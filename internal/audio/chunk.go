package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkConcurrency is the number of ffmpeg cuts run at once.
const DefaultChunkConcurrency = 4

// windows of length step over [0, total), the last one cut short; chunk
// files are named <base>_chunk_NNN<ext> inside dir
func planChunks(audioPath string, total, step time.Duration, dir string) []ChunkInfo {
	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), ext)

	var chunks []ChunkInfo
	for start := time.Duration(0); start < total; start += step {
		i := len(chunks)
		chunks = append(chunks, ChunkInfo{
			Path:      filepath.Join(dir, fmt.Sprintf("%s_chunk_%03d%s", base, i, ext)),
			Index:     i,
			StartTime: start,
			EndTime:   min(start+step, total),
		})
	}
	return chunks
}

// Chunk cuts audioPath into pieces of chunkDuration without re-encoding.
// On failure every chunk already written is removed.
func (p *Processor) Chunk(
	ctx context.Context,
	audioPath string,
	chunkDuration time.Duration,
	outputDir string,
	concurrency int,
) ([]ChunkInfo, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkDuration)
	}
	if concurrency <= 0 {
		concurrency = DefaultChunkConcurrency
	}

	total, err := p.Duration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	chunks := planChunks(audioPath, total, chunkDuration, outputDir)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, c := range chunks {
		g.Go(func() error {
			cut := ffmpeg.KwArgs{
				"ss": c.StartTime.Seconds(),
				"t":  (c.EndTime - c.StartTime).Seconds(),
				"c":  "copy",
			}
			if err := p.run(gctx, audioPath, c.Path, cut); err != nil {
				return fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = CleanupChunks(chunks)
		return nil, err
	}
	return chunks, nil
}

// CleanupChunks removes the chunk files, ignoring ones already gone.
func CleanupChunks(chunks []ChunkInfo) error {
	var errs []error
	for _, c := range chunks {
		if err := os.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
