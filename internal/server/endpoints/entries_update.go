package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/svcctx"
	"github.com/promptvault/promptvault/internal/vault"
)

// UpdateEntryRequest is the payload for updating an entry. The expected
// pair is what the client last observed; the update only applies when it
// still matches the stored entry.
type UpdateEntryRequest struct {
	vault.Patch
	ExpectedVersion   int    `json:"expected_version"`
	ExpectedUpdatedAt string `json:"expected_updated_at"`
}

// UpdateEntryEndpoint handles PUT /api/entries/{id}.
type UpdateEntryEndpoint struct{}

func (e *UpdateEntryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/entries/{id}", e.handler
}

func (e *UpdateEntryEndpoint) RequiresInit() bool { return true }

func (e *UpdateEntryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	var req UpdateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := vault.ValidatePatch(&req.Patch); err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := st.UpdateEntry(r.Context(), r.PathValue("id"), req.Patch,
		req.ExpectedVersion, req.ExpectedUpdatedAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (e *UpdateEntryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		title, positive, negative string
		score                     int
		favorite                  bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a catalog entry",
		Long: `Update a catalog entry.

The current entry is fetched first and its version pair echoed back, so a
concurrent edit between fetch and update surfaces as a conflict.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			var current vault.Entry
			if err := client.Get(ctx, "/api/entries/"+args[0], &current); err != nil {
				return err
			}

			req := UpdateEntryRequest{
				ExpectedVersion:   current.Version,
				ExpectedUpdatedAt: current.UpdatedAt,
			}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("positive") {
				req.Positive = &positive
			}
			if cmd.Flags().Changed("negative") {
				req.Negative = &negative
			}
			if cmd.Flags().Changed("score") {
				req.Score = &score
			}
			if cmd.Flags().Changed("favorite") {
				req.Favorite = &favorite
			}

			var entry vault.Entry
			if err := client.Put(ctx, "/api/entries/"+args[0], req, &entry); err != nil {
				return err
			}
			return api.Output(entry)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&positive, "positive", "", "New positive prompt body")
	cmd.Flags().StringVar(&negative, "negative", "", "New negative prompt body")
	cmd.Flags().IntVar(&score, "score", 0, "Score (0-5)")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "Favorite flag")
	return cmd
}
