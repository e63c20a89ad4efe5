package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/internal/svcctx"
)

// ExportEndpoint handles GET /api/export. The default format is the JSON
// bundle; ?format=csv renders the same rows as CSV.
type ExportEndpoint struct{}

func (e *ExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/export", e.handler
}

func (e *ExportEndpoint) RequiresInit() bool { return true }

func (e *ExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	bundle, err := st.ExportBundle(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="promptvault.csv"`)
		if err := store.WriteCSV(w, bundle); err != nil {
			logger := svcctx.LoggerFrom(r.Context())
			if logger != nil {
				logger.Error("csv export failed mid-stream", "error", err)
			}
		}
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (e *ExportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as a bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			path := "/api/export"
			if format == "csv" {
				path += "?format=csv"
			}
			data, err := client.GetBytes(cmd.Context(), path)
			if err != nil {
				return err
			}
			if out == "" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := writeFile(out, data); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "f", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "json", "Export format: json or csv")
	return cmd
}

// ImportEndpoint handles POST /api/import. Import is merge-only: known
// ids are updated through the normal versioned path, unknown ids created.
type ImportEndpoint struct{}

func (e *ImportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/import", e.handler
}

func (e *ImportEndpoint) RequiresInit() bool { return true }

func (e *ImportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not initialized")
		return
	}

	var bundle store.Bundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		writeError(w, http.StatusBadRequest, "invalid bundle: "+err.Error())
		return
	}

	result, err := st.ImportBundle(r.Context(), &bundle)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ImportEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a catalog bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var bundle store.Bundle
			if err := json.Unmarshal(data, &bundle); err != nil {
				return fmt.Errorf("failed to parse bundle: %w", err)
			}

			client := api.NewClient(getServerURL())
			var resp store.ImportResult
			if err := client.Post(cmd.Context(), "/api/import", bundle, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
