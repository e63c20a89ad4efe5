package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/svcctx"
	"github.com/promptvault/promptvault/internal/vault"
)

// GetEntryEndpoint handles GET /api/entries/{id}.
type GetEntryEndpoint struct{}

func (e *GetEntryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/entries/{id}", e.handler
}

func (e *GetEntryEndpoint) RequiresInit() bool { return true }

func (e *GetEntryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	entry, err := st.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (e *GetEntryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var entry vault.Entry
			if err := client.Get(cmd.Context(), "/api/entries/"+args[0], &entry); err != nil {
				return err
			}
			return api.Output(entry)
		},
	}
}

// VersionsResponse is the response for listing an entry's version history.
type VersionsResponse struct {
	Versions []vault.VersionInfo `json:"versions"`
}

// EntryVersionsEndpoint handles GET /api/entries/{id}/versions.
type EntryVersionsEndpoint struct{}

func (e *EntryVersionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/entries/{id}/versions", e.handler
}

func (e *EntryVersionsEndpoint) RequiresInit() bool { return true }

func (e *EntryVersionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	versions, err := st.ListVersions(r.Context(), r.PathValue("id"), 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VersionsResponse{Versions: versions})
}

func (e *EntryVersionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <id>",
		Short: "Show an entry's version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp VersionsResponse
			if err := client.Get(cmd.Context(), "/api/entries/"+args[0]+"/versions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// EntryThumbnailEndpoint handles GET /api/entries/{id}/thumbnail.
type EntryThumbnailEndpoint struct{}

func (e *EntryThumbnailEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/entries/{id}/thumbnail", e.handler
}

func (e *EntryThumbnailEndpoint) RequiresInit() bool { return true }

func (e *EntryThumbnailEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	thumb, err := st.GetThumbnail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if thumb == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(thumb.PNG)
}

func (e *EntryThumbnailEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "thumbnail <id>",
		Short: "Download an entry's thumbnail PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, err := client.GetBytes(cmd.Context(), "/api/entries/"+args[0]+"/thumbnail")
			if err != nil {
				return err
			}
			if data == nil {
				fmt.Println("entry has no thumbnail")
				return nil
			}
			if out == "" {
				out = args[0] + ".png"
			}
			if err := writeFile(out, data); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "f", "", "Output file (default: <id>.png)")
	return cmd
}
