package main

import (
	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "promptvault",
	Short: "Prompt catalog with cascading search resolution and versioned edits",
	Long: `Promptvault is a catalog for reusable generation prompts.

Entries carry tagged, model-scoped positive/negative prompt text with
variables, parameters, and thumbnails. The catalog is served over HTTP
and browsed through filterable, paginated views; node bindings resolve
to entries through a cascading search that loosens its criteria until
something matches.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.promptvault/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "promptvault home directory (default: ~/.promptvault)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
