package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/catalog"
	"github.com/promptvault/promptvault/internal/resolver"
	"github.com/promptvault/promptvault/internal/vault"
)

var (
	resolveMode     string
	resolveEntryID  string
	resolveQuery    string
	resolveTitle    string
	resolveTags     string
	resolveModel    string
	resolveAssemble bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a binding to a catalog entry",
	Long: `Resolve a binding to a catalog entry the way a bound node would.

In locked mode the entry is fetched by id and any failure is reported
as is. In auto mode a cascade of searches runs, loosening the criteria
step by step until one matches; when nothing matches, the most recently
updated entry is used and the outcome says so.

Examples:
  promptvault api resolve --query "castle at dusk"
  promptvault api resolve --title "Portrait A" --tags portrait,studio --model sd15
  promptvault api resolve --mode locked --id 7f3a...
  promptvault api resolve --query dusk --assemble`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client := catalog.NewClient(getServerURL())
		r := resolver.New(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

		res, err := r.Resolve(ctx, resolver.Binding{
			Mode:    resolveMode,
			EntryID: resolveEntryID,
			Query:   resolveQuery,
			Title:   resolveTitle,
			Tags:    resolveTags,
			Model:   resolveModel,
		})
		if err != nil {
			return err
		}

		out := resolveOutput{Outcome: res.Outcome, Entry: res.Entry}
		if res.Entry != nil && resolveAssemble {
			asm, err := client.Assemble(ctx, res.Entry.ID, nil)
			if err != nil {
				return err
			}
			out.Assembled = asm
		}
		return api.Output(out)
	},
}

type resolveOutput struct {
	Outcome   string           `json:"outcome" yaml:"outcome"`
	Entry     *vault.Entry     `json:"entry,omitempty" yaml:"entry,omitempty"`
	Assembled *vault.Assembled `json:"assembled,omitempty" yaml:"assembled,omitempty"`
}

func init() {
	resolveCmd.Flags().StringVar(&resolveMode, "mode", resolver.ModeAuto, "Binding mode: auto or locked")
	resolveCmd.Flags().StringVar(&resolveEntryID, "id", "", "Entry id (locked mode)")
	resolveCmd.Flags().StringVar(&resolveQuery, "query", "", "Search text")
	resolveCmd.Flags().StringVar(&resolveTitle, "title", "", "Title hint, searched first and used to narrow candidates")
	resolveCmd.Flags().StringVar(&resolveTags, "tags", "", "Comma-separated tag filter")
	resolveCmd.Flags().StringVar(&resolveModel, "model", "", "Model scope filter")
	resolveCmd.Flags().BoolVar(&resolveAssemble, "assemble", false, "Also print the assembled prompt text")
}
