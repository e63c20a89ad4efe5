package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/svcctx"
	"github.com/promptvault/promptvault/internal/vault"
)

// DeleteEntryEndpoint handles DELETE /api/entries/{id}. Deletion is a
// status flip; the entry remains recoverable until a purge.
type DeleteEntryEndpoint struct{}

func (e *DeleteEntryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/entries/{id}", e.handler
}

func (e *DeleteEntryEndpoint) RequiresInit() bool { return true }

func (e *DeleteEntryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	entry, err := st.DeleteEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (e *DeleteEntryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var entry vault.Entry
			if err := client.Delete(cmd.Context(), "/api/entries/"+args[0], &entry); err != nil {
				return err
			}
			fmt.Printf("deleted %s (recoverable until purge)\n", entry.ID)
			return nil
		},
	}
}

// PurgeResponse reports how many soft-deleted entries were removed.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// PurgeEntriesEndpoint handles POST /api/entries/purge.
type PurgeEntriesEndpoint struct{}

func (e *PurgeEntriesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/entries/purge", e.handler
}

func (e *PurgeEntriesEndpoint) RequiresInit() bool { return true }

func (e *PurgeEntriesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	count, err := st.PurgeDeleted(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Purged: count})
}

func (e *PurgeEntriesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove soft-deleted entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PurgeResponse
			if err := client.Post(cmd.Context(), "/api/entries/purge", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("purged %d entries\n", resp.Purged)
			return nil
		},
	}
}
