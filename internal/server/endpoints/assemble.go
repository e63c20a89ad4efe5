package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/svcctx"
	"github.com/promptvault/promptvault/internal/vault"
)

// AssembleRequest asks the server to produce final prompt text for an
// entry with optional variable overrides.
type AssembleRequest struct {
	EntryID   string            `json:"entry_id"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// AssembleEndpoint handles POST /api/assemble.
type AssembleEndpoint struct{}

func (e *AssembleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/assemble", e.handler
}

func (e *AssembleEndpoint) RequiresInit() bool { return true }

func (e *AssembleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	var req AssembleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.EntryID == "" {
		writeError(w, http.StatusBadRequest, "entry_id is required")
		return
	}

	assembled, err := st.Assemble(r.Context(), req.EntryID, req.Overrides)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assembled)
}

func (e *AssembleEndpoint) Command(getServerURL func() string) *cobra.Command {
	var overrides []string
	cmd := &cobra.Command{
		Use:   "assemble <id>",
		Short: "Produce final prompt text for an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			req := AssembleRequest{EntryID: args[0]}
			for _, kv := range overrides {
				name, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("override %q must be name=value", kv)
				}
				if req.Overrides == nil {
					req.Overrides = map[string]string{}
				}
				req.Overrides[name] = value
			}

			var resp vault.Assembled
			if err := client.Post(cmd.Context(), "/api/assemble", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringSliceVar(&overrides, "var", nil, "Variable override name=value (repeatable)")
	return cmd
}
