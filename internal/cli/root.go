package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/querier/internal/config"
	"github.com/mgpai22/querier/internal/logging"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	cfg        *config.Config
)

var errMissingCommand = errors.New("missing command")

const usageTemplate = `{{if .HasParent}}Usage: {{.UseLine}}{{else}}Usage: querier <command> [args...]{{end}}
{{if .HasAvailableSubCommands}}
Commands:{{range .Commands}}{{if .IsAvailableCommand}}
  {{rpad .Name .NamePadding}} {{.Short}}{{end}}{{end}}
{{end}}{{if .HasAvailableLocalFlags}}
Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableInheritedFlags}}
Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}`

var rootCmd = &cobra.Command{
	Use:   "querier",
	Short: "Ask questions about what was said in stored videos",
	Long: `Querier downloads videos, indexes their captions as linked segments and
answers questions about them with a language model, cutting a clip for
every segment the answer cites.

Commands:
  store <url>                 download a video and index its captions
  search <subject> <question> answer a question from one channel's videos`,
	SilenceUsage: true,
	Args:         rejectUnknownCommand,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = cmd.Usage()
		return errMissingCommand
	},
}

// replaces cobra's root argument check so unknown commands also print usage
func rejectUnknownCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	_ = cmd.Usage()
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}

// ExecuteContext runs the root command with ctx available to every command
// through cmd.Context(), then flushes the logger.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	logging.OrNop(logger).Close()
	return err
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/querier/config.toml)")
}
