package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/promptvault/promptvault/internal/vault"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps catalog errors onto HTTP status codes. The status
// codes are part of the API contract: clients rebuild the same domain
// errors from them.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *vault.ValidationError
	switch {
	case vault.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case vault.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON decodes a request body, rejecting unknown fields so typos in
// client payloads fail loudly instead of silently dropping data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
