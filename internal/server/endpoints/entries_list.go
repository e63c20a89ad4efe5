package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/svcctx"
	"github.com/promptvault/promptvault/internal/vault"
)

// ListEntriesEndpoint handles GET /api/entries.
type ListEntriesEndpoint struct{}

func (e *ListEntriesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/entries", e.handler
}

func (e *ListEntriesEndpoint) RequiresInit() bool { return true }

func (e *ListEntriesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	query := vault.ListQuery{
		Status:       q.Get("status"),
		Query:        q.Get("q"),
		Tags:         q["tag"],
		Model:        q.Get("model"),
		Sort:         q.Get("sort"),
		Offset:       offset,
		Limit:        limit,
		FavoriteOnly: q.Get("favorite_only") == "true",
		HasThumbnail: q.Get("has_thumbnail") == "true",
	}

	result, err := st.SearchEntries(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ListEntriesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		query, model, sort, status string
		tags                       []string
		offset, limit              int
		favoriteOnly               bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			path := "/api/entries"
			params := url.Values{}
			if query != "" {
				params.Set("q", query)
			}
			for _, tag := range tags {
				params.Add("tag", tag)
			}
			if model != "" {
				params.Set("model", model)
			}
			if sort != "" {
				params.Set("sort", sort)
			}
			if status != "" {
				params.Set("status", status)
			}
			if offset > 0 {
				params.Set("offset", strconv.Itoa(offset))
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			if favoriteOnly {
				params.Set("favorite_only", "true")
			}
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var resp vault.ListResult
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Free-text search")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Filter by tag (repeatable)")
	cmd.Flags().StringVar(&model, "model", "", "Filter by model scope")
	cmd.Flags().StringVar(&sort, "sort", "", "Sort: updated_desc, score_desc, favorite_desc")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active, deleted)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().BoolVar(&favoriteOnly, "favorites", false, "Favorites only")
	return cmd
}
