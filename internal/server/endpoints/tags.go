package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/internal/svcctx"
	"github.com/promptvault/promptvault/internal/vault"
)

// TagsResponse is the response for listing the tag index.
type TagsResponse struct {
	Tags []vault.Tag `json:"tags"`
}

// ListTagsEndpoint handles GET /api/tags.
type ListTagsEndpoint struct{}

func (e *ListTagsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/tags", e.handler
}

func (e *ListTagsEndpoint) RequiresInit() bool { return true }

func (e *ListTagsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tags, err := st.ListTags(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

func (e *ListTagsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tag index",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TagsResponse
			if err := client.Get(cmd.Context(), "/api/tags", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// TidyTagsEndpoint handles POST /api/tags/tidy.
type TidyTagsEndpoint struct{}

func (e *TidyTagsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/tags/tidy", e.handler
}

func (e *TidyTagsEndpoint) RequiresInit() bool { return true }

func (e *TidyTagsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	result, err := st.TidyTags(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *TidyTagsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "tidy",
		Short: "Reconcile the tag index against entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.TidyResult
			if err := client.Post(cmd.Context(), "/api/tags/tidy", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("removed %d, added %d\n", resp.Removed, resp.Added)
			return nil
		},
	}
}
