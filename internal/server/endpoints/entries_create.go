package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/svcctx"
	"github.com/promptvault/promptvault/internal/vault"
)

// CreateEntryEndpoint handles POST /api/entries.
type CreateEntryEndpoint struct{}

func (e *CreateEntryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/entries", e.handler
}

func (e *CreateEntryEndpoint) RequiresInit() bool { return true }

func (e *CreateEntryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	var draft vault.Draft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := vault.ValidateDraft(&draft); err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := st.CreateEntry(r.Context(), draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (e *CreateEntryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		title, positive, negative string
		tags, models              []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a catalog entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			draft := vault.Draft{
				Title:      title,
				Tags:       tags,
				ModelScope: models,
				Raw:        vault.Raw{Positive: positive, Negative: negative},
			}
			var entry vault.Entry
			if err := client.Post(cmd.Context(), "/api/entries", draft, &entry); err != nil {
				return err
			}
			return api.Output(entry)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Entry title")
	cmd.Flags().StringVar(&positive, "positive", "", "Positive prompt body")
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt body")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringSliceVar(&models, "model", nil, "Model scope (repeatable)")
	return cmd
}
