package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/querier/internal/ffmpeg"
	"github.com/mgpai22/querier/internal/media"
	"github.com/mgpai22/querier/internal/query"
	"github.com/mgpai22/querier/internal/render"
)

var searchCmd = &cobra.Command{
	Use:   "search <subject> <question>",
	Short: "Answer a question from one channel's videos",
	Long: `Retrieve the stored segments of channels matching <subject> that are closest
to <question>, ask the language model for an answer and cut a clip for every
segment it cites.

The subject matches channel names case-insensitively as a substring. Every
word after the subject is part of the question.

Examples:
  querier search "Canal do Coca" onde ele abre o nintendo switch
  querier search coca "qual o preço do jogo?" --no-clips
  querier search coca bolo de chocolate --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().
		Bool("no-clips", false, "Return the answer without rendering clips")
	searchCmd.Flags().
		Bool("json", false, "Print the structured answer as JSON")
	searchCmd.Flags().
		IntP("top-k", "k", 0, "Number of segments to retrieve (default from config)")
	searchCmd.Flags().
		StringP("output-dir", "o", "", "Directory for rendered clips (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	subject := args[0]
	question := strings.Join(args[1:], " ")

	noClips, _ := cmd.Flags().GetBool("no-clips")
	asJSON, _ := cmd.Flags().GetBool("json")
	topK, _ := cmd.Flags().GetInt("top-k")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	opts := query.Options{
		IndexName:         cfg.IndexName,
		TopK:              cfg.TopK,
		RetrievalTimeout:  cfg.RetrievalTimeout,
		LLMTimeout:        cfg.LLMTimeout,
		RenderConcurrency: cfg.RenderConcurrency,
		OutputDir:         cfg.OutputDir,
		SkipClips:         noClips,
	}
	if topK > 0 {
		opts.TopK = topK
	}
	if outputDir != "" {
		opts.OutputDir = outputDir
	}

	var renderer render.Renderer
	if !noClips {
		path, err := locateFFmpeg()
		if err != nil {
			return err
		}
		renderer = render.NewFFmpegRenderer(path, render.DefaultOptions())
	}

	store, err := openIndexStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}
	defer closeQuietly(completer)

	engine := query.NewEngine(store, completer, renderer, media.NewLibrary(cfg.MediaDir), opts, logger)

	out := cmd.OutOrStdout()
	if !asJSON {
		fmt.Fprintf(out, "Searching for %s\n", subject)
	}

	result, err := engine.Search(ctx, subject, question)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(out, result)
	}
	printResult(out, result)
	return nil
}

// only ffmpeg is needed to cut clips
func locateFFmpeg() (string, error) {
	for _, tool := range ffmpeg.Check(binaryOverrides(cfg)) {
		if tool.Name == "ffmpeg" {
			return tool.Path, tool.Err
		}
	}
	return "", ffmpeg.ErrNotFound
}

func printResult(w io.Writer, result *query.Result) {
	fmt.Fprintln(w, result.Answer.Summary)

	for _, s := range result.Skipped {
		fmt.Fprintf(w, "  Skipped %v\n", s)
	}
	for _, clip := range result.Clips {
		if clip.Err != nil {
			fmt.Fprintf(w, "  Clip %d failed: %v\n", clip.Index, clip.Err)
			continue
		}
		fmt.Fprintf(w, "  %s\n", clip.Path)
	}
}

type jsonClip struct {
	Index   int    `json:"index"`
	VideoID string `json:"video_id"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

type jsonResult struct {
	Summary    string                `json:"summary"`
	Segments   []query.AnswerSegment `json:"segments"`
	Candidates int                   `json:"candidates"`
	Clips      []jsonClip            `json:"clips"`
}

func printJSON(w io.Writer, result *query.Result) error {
	view := jsonResult{
		Summary:    result.Answer.Summary,
		Segments:   result.Answer.Segments,
		Candidates: len(result.Candidates),
		Clips:      []jsonClip{},
	}
	for _, s := range result.Skipped {
		view.Clips = append(view.Clips, jsonClip{Index: s.Index, VideoID: s.VideoID, Error: s.Err.Error()})
	}
	for _, c := range result.Clips {
		jc := jsonClip{Index: c.Index, VideoID: c.Request.VideoID, Path: c.Path}
		if c.Err != nil {
			jc.Error = c.Err.Error()
			jc.Path = ""
		}
		view.Clips = append(view.Clips, jc)
	}
	sort.SliceStable(view.Clips, func(i, j int) bool {
		return view.Clips[i].Index < view.Clips[j].Index
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(view)
}
