package main

import (
	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running promptvault server via HTTP.

These commands require a running server (promptvault serve).
Use --server to specify a custom server URL.

Examples:
  promptvault api health                 # Check server health
  promptvault api entries list           # List catalog entries
  promptvault api entries get <id>       # Get a specific entry
  promptvault api resolve --query dusk   # Resolve a binding to an entry`,
}

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Entry management commands",
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Tag index commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))

	// Entries as subcommand group
	entriesCmd.AddCommand((&endpoints.CreateEntryEndpoint{}).Command(getServerURL))
	entriesCmd.AddCommand((&endpoints.ListEntriesEndpoint{}).Command(getServerURL))
	entriesCmd.AddCommand((&endpoints.GetEntryEndpoint{}).Command(getServerURL))
	entriesCmd.AddCommand((&endpoints.UpdateEntryEndpoint{}).Command(getServerURL))
	entriesCmd.AddCommand((&endpoints.DeleteEntryEndpoint{}).Command(getServerURL))
	entriesCmd.AddCommand((&endpoints.PurgeEntriesEndpoint{}).Command(getServerURL))
	entriesCmd.AddCommand((&endpoints.EntryVersionsEndpoint{}).Command(getServerURL))
	entriesCmd.AddCommand((&endpoints.EntryThumbnailEndpoint{}).Command(getServerURL))

	// Tags as subcommand group
	tagsCmd.AddCommand((&endpoints.ListTagsEndpoint{}).Command(getServerURL))
	tagsCmd.AddCommand((&endpoints.TidyTagsEndpoint{}).Command(getServerURL))

	// Assemble, bundle transfer, and resolve at top level
	apiCmd.AddCommand((&endpoints.AssembleEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ExportEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ImportEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand(resolveCmd)

	apiCmd.AddCommand(entriesCmd)
	apiCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(apiCmd)
}
