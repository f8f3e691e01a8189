package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mgpai22/querier/internal/ffmpeg"
	"github.com/mgpai22/querier/internal/index"
	"github.com/mgpai22/querier/internal/segment"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check external binaries and the integrity of stored indexes",
	Long: `Report where ffmpeg, ffprobe and yt-dlp were found and walk the segment
chain of every stored video, failing if anything is missing or broken.

Examples:
  querier doctor
  querier doctor --config ./querier.toml`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	problems := reportBinaries(out, ffmpeg.Check(binaryOverrides(cfg)))

	// chain checks read stored rows only, no embedder needed
	store, err := index.OpenSQLiteStore(cfg.StorageDir, nil)
	if err != nil {
		return fmt.Errorf("failed to open index store: %w", err)
	}
	defer store.Close()

	fmt.Fprintf(out, "\nIndex store: %s\n", store.Path())
	n, err := reportIndexes(ctx, out, store)
	if err != nil {
		return err
	}
	problems += n

	if problems > 0 {
		return fmt.Errorf("doctor found %d problem(s)", problems)
	}
	fmt.Fprintln(out, "\nAll checks passed")
	return nil
}

func reportBinaries(w io.Writer, tools []ffmpeg.Tool) int {
	problems := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BINARY\tSTATUS\tPATH")
	for _, t := range tools {
		if t.Err != nil {
			problems++
			fmt.Fprintf(tw, "%s\tmissing\t%v\n", t.Name, t.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\tok\t%s\n", t.Name, t.Path)
	}
	_ = tw.Flush()
	return problems
}

type indexLister interface {
	index.Store
	IndexNames(ctx context.Context) ([]string, error)
}

func reportIndexes(ctx context.Context, w io.Writer, store indexLister) (int, error) {
	names, err := store.IndexNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list indexes: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "  no indexes stored yet")
		return 0, nil
	}

	problems := 0
	for _, name := range names {
		idx, err := store.Load(ctx, name)
		if err != nil {
			return problems, fmt.Errorf("failed to load index %s: %w", name, err)
		}
		records, err := idx.Records(ctx)
		if err != nil {
			return problems, fmt.Errorf("failed to read index %s: %w", name, err)
		}

		videos, order := groupByVideo(records)
		fmt.Fprintf(w, "  %s: %d segments across %d videos\n", name, len(records), len(order))
		for _, id := range order {
			if err := segment.VerifyChain(videos[id]); err != nil {
				problems++
				fmt.Fprintf(w, "    %s: broken chain: %v\n", id, err)
			}
		}
	}
	return problems, nil
}

// groups records by video, keeping the first-seen video order
func groupByVideo(records []segment.Record) (map[string][]segment.Record, []string) {
	videos := make(map[string][]segment.Record)
	var order []string
	for _, r := range records {
		id := r.Metadata.VideoID
		if _, ok := videos[id]; !ok {
			order = append(order, id)
		}
		videos[id] = append(videos[id], r)
	}
	return videos, order
}
