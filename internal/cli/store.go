package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/querier/internal/audio"
	"github.com/mgpai22/querier/internal/ffmpeg"
	"github.com/mgpai22/querier/internal/index"
	"github.com/mgpai22/querier/internal/ingest"
	"github.com/mgpai22/querier/internal/media"
)

var storeCmd = &cobra.Command{
	Use:   "store <url>",
	Short: "Download a video and index its captions",
	Long: `Download a video with yt-dlp, split its caption track into linked
segments and add them to the index.

Videos without a caption track are transcribed first, unless
--no-transcribe is set. Storing the same video again replaces its segments.

Examples:
  querier store https://www.youtube.com/watch?v=dQw4w9WgXcQ
  querier store -v --no-transcribe https://youtu.be/dQw4w9WgXcQ`,
	Args: cobra.ExactArgs(1),
	RunE: runStore,
}

func init() {
	rootCmd.AddCommand(storeCmd)

	storeCmd.Flags().
		Bool("no-transcribe", false, "Fail instead of transcribing videos without captions")
}

func runStore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	url := args[0]
	noTranscribe, _ := cmd.Flags().GetBool("no-transcribe")

	bins, err := ffmpeg.Locate(binaryOverrides(cfg))
	if err != nil {
		return err
	}

	library := media.NewLibrary(cfg.MediaDir)
	fetcher := media.NewYTDLPFetcher(bins.YTDLP, library, cfg.CaptionLanguage, logger)

	var captioner ingest.Captioner
	if !noTranscribe {
		transcriber, err := newTranscriber(ctx, cfg)
		if err != nil {
			logger.Warnw("transcription fallback disabled", "error", err)
		} else {
			defer closeQuietly(transcriber)
			captioner = ingest.NewTranscriptionCaptioner(
				audio.NewProcessor(bins),
				transcriber,
				ingest.TranscriptionOptions{Language: cfg.CaptionLanguage},
				logger,
			)
		}
	}

	store, err := openIndexStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := ingest.NewPipeline(
		fetcher,
		captioner,
		index.NewWriter(store, logger),
		ingest.Options{IndexName: cfg.IndexName, Margin: cfg.PaddingSeconds},
		logger,
	)

	report, err := pipeline.Prepare(ctx, url)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexing %d segments\n", len(report.Records))

	if err := pipeline.Index(ctx, report); err != nil {
		return err
	}

	fmt.Fprintf(out, "Stored %s (%s) in index %q\n", report.Asset.ID, report.Asset.Uploader, cfg.IndexName)
	if report.Transcribed {
		fmt.Fprintf(out, "  Captions transcribed: %s\n", report.CaptionPath)
	}
	return nil
}
